package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestProxyClientComplete(t *testing.T) {
	var gotAuth string
	var gotReq proxyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": `{"structure":{}}`}}},
		})
	}))
	defer srv.Close()

	c := NewProxyClient(srv.URL, "s3cret", "claude", time.Second)
	text, err := c.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != `{"structure":{}}` {
		t.Errorf("unexpected text %q", text)
	}
	if gotAuth != "Bearer s3cret" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if gotReq.Prompt != "hello" || gotReq.Model != "claude" {
		t.Errorf("unexpected request %+v", gotReq)
	}
}

func TestProxyClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"error":"quota exceeded"}`))
	}))
	defer srv.Close()

	if _, err := NewProxyClient(srv.URL+"/fail", "", "", time.Second).Complete(context.Background(), "x"); err == nil {
		t.Error("expected error on non-200 status")
	}
	if _, err := NewProxyClient(srv.URL, "", "", time.Second).Complete(context.Background(), "x"); err == nil {
		t.Error("expected error when proxy reports one")
	}
}
