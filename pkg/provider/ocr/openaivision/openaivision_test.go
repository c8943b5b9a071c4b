package openaivision

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNew_Validation(t *testing.T) {
	if _, err := New("", "gpt-4o-mini"); err == nil {
		t.Error("expected error for empty api key")
	}
	if _, err := New("sk-test", ""); err == nil {
		t.Error("expected error for empty model")
	}
}

func TestEncodeDataURL(t *testing.T) {
	got, err := encodeDataURL(image.NewRGBA(image.Rect(0, 0, 3, 3)))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "data:image/png;base64,iVBORw0KGgo") {
		t.Errorf("data URL = %.40s...", got)
	}
}

func TestInit_AcceptsAnyLanguage(t *testing.T) {
	r, _ := New("sk-test", "gpt-4o-mini")
	for in, want := range map[string]string{"ja": "ja", "": "auto", "zh_TW": "zh-tw"} {
		if got, err := r.Init(context.Background(), in); err != nil || got != want {
			t.Errorf("Init(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
}

func TestRecognize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content []struct {
					Type     string `json:"type"`
					Text     string `json:"text"`
					ImageURL struct {
						URL string `json:"url"`
					} `json:"image_url"`
				} `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Model != "gpt-4o-mini" || len(req.Messages) != 1 || len(req.Messages[0].Content) != 2 {
			t.Errorf("unexpected request %+v", req)
		} else {
			parts := req.Messages[0].Content
			if parts[0].Type != "text" || !strings.Contains(parts[0].Text, `"ja"`) {
				t.Errorf("text part = %+v", parts[0])
			}
			if parts[1].Type != "image_url" || !strings.HasPrefix(parts[1].ImageURL.URL, "data:image/png;base64,") {
				t.Errorf("image part = %+v", parts[1])
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": req.Model,
			"choices": []map[string]any{{
				"index": 0, "finish_reason": "stop",
				"message": map[string]any{"role": "assistant", "content": "  こんにちは\n世界 \n"},
			}},
		})
	}))
	defer srv.Close()

	r, err := New("sk-test", "gpt-4o-mini", WithBaseURL(srv.URL+"/v1/"))
	if err != nil {
		t.Fatal(err)
	}
	r.Init(context.Background(), "ja")
	got, err := r.Recognize(context.Background(), image.NewRGBA(image.Rect(0, 0, 16, 8)))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if got != "こんにちは\n世界" {
		t.Errorf("text = %q", got)
	}
}
