package transcript

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultRoot is the log directory used when none is configured.
const DefaultRoot = "logs"

// ResolveRoot returns the absolute log directory for dir. A blank dir selects
// [DefaultRoot]; relative paths resolve against the working directory. The
// directory itself is created by [NewWriter].
func ResolveRoot(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = DefaultRoot
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("transcript: resolve log dir %q: %w", dir, err)
	}
	return abs, nil
}
