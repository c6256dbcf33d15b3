package core

import "strings"

// CommandSet holds the trigger phrases recognized during form filling.
// The exact phrases are configuration, not hard-coded behavior.
type CommandSet struct {
	CancelPhrases  []string
	ConfirmPhrases []string
}

// DefaultCommandSet returns the Vietnamese phrases used when none are
// configured.
func DefaultCommandSet() CommandSet {
	return CommandSet{
		CancelPhrases:  []string{"hủy", "huỷ", "dừng lại", "thoát", "cancel"},
		ConfirmPhrases: []string{"xác nhận", "đồng ý", "ok", "yes"},
	}
}

func (c CommandSet) IsCancel(text string) bool {
	return matchPhrase(text, c.CancelPhrases)
}

func (c CommandSet) IsConfirm(text string) bool {
	return matchPhrase(text, c.ConfirmPhrases)
}

// matchPhrase does a whole-message comparison: a date or a number typed
// as a field answer must never be swallowed as a command, and free text
// that merely mentions a phrase is a field answer too.
func matchPhrase(text string, phrases []string) bool {
	normalized := normalizeCommand(text)
	if normalized == "" {
		return false
	}
	for _, p := range phrases {
		if normalized == normalizeCommand(p) {
			return true
		}
	}
	return false
}

func normalizeCommand(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	return strings.Trim(s, ".!?,;: ")
}

// ParseEditRequest recognizes "sửa <field>" messages sent from the
// confirmation step and resolves the field by name or display name.
func ParseEditRequest(text string, tmpl *FormTemplate) (string, bool) {
	normalized := normalizeCommand(text)
	rest, ok := strings.CutPrefix(normalized, "sửa ")
	if !ok {
		rest, ok = strings.CutPrefix(normalized, "sua ")
	}
	if !ok {
		return "", false
	}
	rest = strings.TrimSpace(rest)
	for _, f := range tmpl.Fields {
		if rest == strings.ToLower(f.Name) || rest == strings.ToLower(f.DisplayName) {
			return f.Name, true
		}
	}
	return "", false
}
