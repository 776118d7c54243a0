package annobuf_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	annobuf "github.com/nkmrtty/annobuf"
)

func editedDoc(t *testing.T, name string) annobuf.DocumentBuffer {
	t.Helper()
	doc, err := annobuf.FromDocument("d1", map[string]any{"name": "orig"}, []annobuf.Field{nameField}, nil)
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}
	doc, err = doc.ApplyFieldEdit(0, "name", name, nameField)
	if err != nil {
		t.Fatalf("ApplyFieldEdit: %v", err)
	}
	return doc
}

func recv(t *testing.T, ch <-chan annobuf.SaveResult) annobuf.SaveResult {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatalf("save result not delivered")
		return annobuf.SaveResult{}
	}
}

func TestSaveCoordinator_SingleSave(t *testing.T) {
	submit := func(ctx context.Context, payload any) (annobuf.SaveResponse, error) {
		return annobuf.SaveResponse{Success: true}, nil
	}
	c := annobuf.NewSaveCoordinator(submit)
	doc := editedDoc(t, "v1")
	res := recv(t, c.Save(context.Background(), doc))
	if res.Err != nil || !res.Resp.Success {
		t.Fatalf("save result: %+v", res)
	}
	if diff := cmp.Diff(doc.ToSubmissionPayload(), res.Doc.ToSubmissionPayload()); diff != "" {
		t.Fatalf("result snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveCoordinator_CoalescesAndSupersedes(t *testing.T) {
	started := make(chan any, 3)
	release := make(chan annobuf.SaveResponse)
	submit := func(ctx context.Context, payload any) (annobuf.SaveResponse, error) {
		started <- payload
		return <-release, nil
	}
	c := annobuf.NewSaveCoordinator(submit)

	doc1 := editedDoc(t, "v1")
	doc2 := editedDoc(t, "v2")
	doc3 := editedDoc(t, "v3")

	ch1 := c.Save(context.Background(), doc1)
	<-started // first submission is in flight
	ch2 := c.Save(context.Background(), doc2)
	ch3 := c.Save(context.Background(), doc3)

	// the queued second save was superseded by the third before starting;
	// its result still carries its own snapshot
	res2 := recv(t, ch2)
	if !errors.Is(res2.Err, annobuf.ErrSaveSuperseded) {
		t.Fatalf("expected ErrSaveSuperseded, got %v", res2.Err)
	}
	if diff := cmp.Diff(doc2.ToSubmissionPayload(), res2.Doc.ToSubmissionPayload()); diff != "" {
		t.Fatalf("superseded snapshot mismatch (-want +got):\n%s", diff)
	}

	release <- annobuf.SaveResponse{Success: true}
	res1 := recv(t, ch1)
	if res1.Err != nil || !res1.Resp.Success {
		t.Fatalf("first save result: %+v", res1)
	}
	if diff := cmp.Diff(doc1.ToSubmissionPayload(), res1.Doc.ToSubmissionPayload()); diff != "" {
		t.Fatalf("first snapshot mismatch (-want +got):\n%s", diff)
	}

	// only after the first completes does the coalesced third start, with
	// the latest snapshot
	payload3 := <-started
	if diff := cmp.Diff(doc3.ToSubmissionPayload(), payload3); diff != "" {
		t.Fatalf("third payload mismatch (-want +got):\n%s", diff)
	}
	release <- annobuf.SaveResponse{Success: true}
	res3 := recv(t, ch3)
	if res3.Err != nil || !res3.Resp.Success {
		t.Fatalf("third save result: %+v", res3)
	}
	if c.InFlight() {
		t.Fatalf("coordinator should be idle")
	}
}

func TestSaveCoordinator_CancelledContext(t *testing.T) {
	submit := func(ctx context.Context, payload any) (annobuf.SaveResponse, error) {
		t.Fatalf("submit must not run for a cancelled context")
		return annobuf.SaveResponse{}, nil
	}
	c := annobuf.NewSaveCoordinator(submit)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := recv(t, c.Save(ctx, editedDoc(t, "v1")))
	if !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", res.Err)
	}
}

func TestSaveCoordinator_ResponseFeedsErrorMapper(t *testing.T) {
	submit := func(ctx context.Context, payload any) (annobuf.SaveResponse, error) {
		return annobuf.SaveResponse{
			Success: false,
			Message: "validation failed",
			Detail: &annobuf.SaveResponseDetail{
				ErrorDetails: []annobuf.ErrorDetail{{Field: "name", Message: "too short"}},
			},
		}, nil
	}
	c := annobuf.NewSaveCoordinator(submit)
	res := recv(t, c.Save(context.Background(), editedDoc(t, "x")))
	if res.Err != nil {
		t.Fatalf("save: %v", res.Err)
	}
	// the verdict applies to the snapshot the save was issued against
	doc := annobuf.ApplySaveResponse(res.Doc, res.Resp, nil)
	ob, _ := doc.Object(0)
	if diff := cmp.Diff(map[string][]string{"name": {"too short"}}, ob.ErrorsByPath()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}
