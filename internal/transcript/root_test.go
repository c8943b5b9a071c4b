package transcript

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveRoot(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	abs := filepath.Join(t.TempDir(), "transcripts")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "blank", in: "", want: filepath.Join(wd, DefaultRoot)},
		{name: "whitespace", in: "   ", want: filepath.Join(wd, DefaultRoot)},
		{name: "relative", in: "out/logs", want: filepath.Join(wd, "out", "logs")},
		{name: "absolute", in: abs, want: abs},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveRoot(tc.in)
			if err != nil {
				t.Fatalf("ResolveRoot(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ResolveRoot(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
