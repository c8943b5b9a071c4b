package transcript

import (
	"strings"
	"time"

	"github.com/MrWong99/ocrlite/internal/textsim"
)

// isNewWindow decides whether current, observed at now, starts a new dialogue
// window. The checks run in a fixed order and the first match wins:
//
//  1. nothing logged yet: new window
//  2. pause longer than the merge gap: new window
//  3. either text contains the other: same window
//  4. otherwise: new window iff similarity < sameWindowSimilarity
//
// The order of the checks is observable in ambiguous cases. Must be called with
// w.mu held.
func (w *Writer) isNewWindow(current string, now time.Time) bool {
	if strings.TrimSpace(w.lastText) == "" {
		return true
	}

	if now.Sub(w.lastAt) > w.mergeGap {
		return true
	}

	if strings.Contains(current, w.lastText) || strings.Contains(w.lastText, current) {
		return false
	}

	return textsim.Similarity(w.lastText, current) < w.sameWindowSimilarity
}
