package annobuf

import "sort"

// DiffKind classifies one leaf path of a structural diff.
type DiffKind string

const (
	DiffAdded     DiffKind = "added"
	DiffDeleted   DiffKind = "deleted"
	DiffModified  DiffKind = "modified"
	DiffUnchanged DiffKind = "unchanged"
)

// DiffEntry reports one leaf path of a diff. Original is meaningful unless
// Kind is DiffAdded; Annotated is meaningful unless Kind is DiffDeleted.
type DiffEntry struct {
	Path      string   `json:"path"`
	Original  any      `json:"original,omitempty"`
	Annotated any      `json:"annotated,omitempty"`
	Kind      DiffKind `json:"kind"`
}

// Diff computes the structural diff between an original and an annotated
// value for the review view. Mappings recurse key by key down to leaves; any
// other value, lists included, compares atomically at its own path, which
// keeps the walk linear in the leaf count and avoids a list-alignment policy.
//
// Entry order is deterministic: the original's keys in sorted order, then
// annotated-only keys in sorted order, at every level.
func Diff(original, annotated any) []DiffEntry {
	return diffAt(original, annotated, "")
}

func diffAt(original, annotated any, prefix string) []DiffEntry {
	om, oIsMap := original.(map[string]any)
	am, aIsMap := annotated.(map[string]any)
	if !oIsMap || !aIsMap {
		kind := DiffModified
		if DeepEqual(original, annotated) {
			kind = DiffUnchanged
		}
		return []DiffEntry{{Path: prefix, Original: original, Annotated: annotated, Kind: kind}}
	}

	var entries []DiffEntry
	for _, k := range sortedKeys(om) {
		p := joinPath(prefix, k)
		ov := om[k]
		av, inAnnotated := am[k]
		switch {
		case !inAnnotated:
			entries = append(entries, DiffEntry{Path: p, Original: ov, Kind: DiffDeleted})
		case DeepEqual(ov, av):
			entries = append(entries, DiffEntry{Path: p, Original: ov, Annotated: av, Kind: DiffUnchanged})
		default:
			if _, ok := ov.(map[string]any); ok {
				if _, ok := av.(map[string]any); ok {
					entries = append(entries, diffAt(ov, av, p)...)
					continue
				}
			}
			entries = append(entries, DiffEntry{Path: p, Original: ov, Annotated: av, Kind: DiffModified})
		}
	}
	for _, k := range sortedKeys(am) {
		if _, inOriginal := om[k]; inOriginal {
			continue
		}
		entries = append(entries, DiffEntry{Path: joinPath(prefix, k), Annotated: am[k], Kind: DiffAdded})
	}
	return entries
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
