package papago

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNew_MissingCredentials(t *testing.T) {
	for _, c := range [][2]string{{"", "secret"}, {"id", ""}, {" ", " "}} {
		if _, err := New(c[0], c[1], "ja", "ko"); err == nil {
			t.Errorf("New(%q, %q) succeeded, want error", c[0], c[1])
		}
	}
}

func TestTranslate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Naver-Client-Id"); got != "id" {
			t.Errorf("client id header = %q", got)
		}
		if got := r.Header.Get("X-Naver-Client-Secret"); got != "secret" {
			t.Errorf("client secret header = %q", got)
		}
		r.ParseForm()
		if r.PostForm.Get("source") != "ja" || r.PostForm.Get("target") != "ko" || r.PostForm.Get("text") != "猫" {
			t.Errorf("form = %v", r.PostForm)
		}
		w.Write([]byte(`{"message":{"result":{"srcLangType":"ja","tarLangType":"ko","translatedText":"고양이"}}}`))
	}))
	defer srv.Close()

	p, err := New("id", "secret", "ja", "ko", WithEndpoint(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	got, err := p.Translate(context.Background(), "猫")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got.IsError || got.Text != "고양이" {
		t.Fatalf("Translate = %+v", got)
	}
}

func TestTranslate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"errorCode":"024"}`, wantMsg: "Papago error: 401 Unauthorized"},
		{name: "missing result", status: http.StatusOK, body: `{"message":{}}`, wantMsg: "Papago response parse failed."},
		{name: "garbage", status: http.StatusOK, body: `nope`, wantMsg: "Papago response parse failed."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p, _ := New("id", "secret", "ja", "ko", WithEndpoint(srv.URL))
			got, err := p.Translate(context.Background(), "猫")
			if err != nil {
				t.Fatalf("Translate: %v", err)
			}
			if !got.IsError || got.Text != "猫" || got.ErrorMessage != tt.wantMsg {
				t.Errorf("Translate = %+v, want message %q", got, tt.wantMsg)
			}
		})
	}
}
