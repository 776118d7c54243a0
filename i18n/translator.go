// Package i18n supplies localized message text for the error codes the
// engine surfaces per field. The engine itself only deals in codes and
// structured parameters; wording lives here.
package i18n

// Translator retrieves localized messages for error codes.
// data provides optional metadata to embed in the message (for example,
// "field" or "input").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	switch t.lang {
	case "zh":
		switch code {
		case "required":
			return data["field"] + "是必填项"
		case "current_input":
			return "(当前输入: " + data["input"] + ")"
		case "invalid_value":
			return "值无效"
		case "save_failed":
			return "保存失败"
		}
	default: // "en"
		switch code {
		case "required":
			return data["field"] + " is required"
		case "current_input":
			return "(current input: " + data["input"] + ")"
		case "invalid_value":
			return "invalid value"
		case "save_failed":
			return "save failed"
		}
	}
	return code
}

// Default returns the English translator.
func Default() Translator { return dictTranslator{lang: "en"} }

// ForLanguage returns a Translator for lang ("en" or "zh"); unknown languages
// fall back to English.
func ForLanguage(lang string) Translator { return dictTranslator{lang: lang} }
