package pipeline

import "strings"

// NormalizeText unifies line breaks, trims every line and drops empty ones.
// The remaining lines are joined with "\n".
func NormalizeText(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")

	lines := strings.Split(raw, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// FormatPayload renders the text shown to observers for one accepted
// recognition. With sourceOnly set only the source is shown; otherwise both
// texts are shown in a [SRC]/[TRN] block.
func FormatPayload(source, translated string, sourceOnly bool) string {
	if sourceOnly {
		return source
	}
	return "[SRC]\n" + source + "\n\n[TRN]\n" + translated
}
