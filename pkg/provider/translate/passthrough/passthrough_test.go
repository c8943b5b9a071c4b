package passthrough

import (
	"context"
	"testing"
)

func TestTranslate(t *testing.T) {
	p := New()
	tests := []struct {
		in   string
		want string
	}{
		{in: "x", want: "x"},
		{in: "こんにちは\n世界", want: "こんにちは\n世界"},
		{in: "   ", want: ""},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		got, err := p.Translate(context.Background(), tt.in)
		if err != nil {
			t.Fatalf("Translate(%q): %v", tt.in, err)
		}
		if got.Text != tt.want || got.IsError || got.ErrorMessage != "" {
			t.Errorf("Translate(%q) = %+v, want {Text:%q}", tt.in, got, tt.want)
		}
	}
}

func TestName(t *testing.T) {
	if got := New().Name(); got != "None" {
		t.Errorf("Name() = %q, want None", got)
	}
}
