package resilience

import (
	"context"
	"errors"
	"image"
	"testing"

	ocrmock "github.com/MrWong99/ocrlite/pkg/provider/ocr/mock"
)

func TestRecognizerFallback_Failover(t *testing.T) {
	primary := &ocrmock.Recognizer{EngineName: "openai-vision", Err: errors.New("503 service unavailable")}
	local := &ocrmock.Recognizer{EngineName: "tesseract", Texts: []string{"こんにちは"}}

	fb := NewRecognizerFallback(primary, FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback(local)

	if fb.Name() != "openai-vision" {
		t.Errorf("Name() = %q, want primary's name", fb.Name())
	}

	got, err := fb.Recognize(context.Background(), image.NewRGBA(image.Rect(0, 0, 10, 10)))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if got != "こんにちは" {
		t.Errorf("text = %q, want fallback text", got)
	}
	if primary.Calls() != 1 || local.Calls() != 1 {
		t.Errorf("calls = %d/%d, want 1/1", primary.Calls(), local.Calls())
	}
}

func TestRecognizerFallback_Init(t *testing.T) {
	tests := []struct {
		name        string
		primaryErr  error
		fallbackErr error
		wantErr     bool
	}{
		{name: "all ok"},
		{name: "fallback fails", fallbackErr: errors.New("no traineddata")},
		{name: "primary fails", primaryErr: errors.New("bad key"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := &ocrmock.Recognizer{EngineName: "openai-vision", InitErr: tt.primaryErr}
			local := &ocrmock.Recognizer{EngineName: "tesseract", InitErr: tt.fallbackErr}
			fb := NewRecognizerFallback(primary, FallbackConfig{})
			fb.AddFallback(local)

			active, err := fb.Init(context.Background(), "JA")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Init err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && active != "ja" {
				t.Errorf("active = %q, want ja", active)
			}
			if len(primary.Languages) != 1 || len(local.Languages) != 1 {
				t.Errorf("Init calls = %d/%d, want both engines initialised", len(primary.Languages), len(local.Languages))
			}
		})
	}
}
