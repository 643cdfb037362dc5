package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xelth-com/eckdocs/internal/models"
	"github.com/xelth-com/eckdocs/internal/utils"
)

const testSecret = "ws-secret"

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := NewHub(nil)
	go hub.Run(ctx)
	return hub
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestNotifyReachesRegisteredClient(t *testing.T) {
	hub := startHub(t)
	c := &Client{hub: hub, send: make(chan []byte, 4), ID: "a"}
	hub.register <- c
	waitFor(t, func() bool { return hub.Count() == 1 })

	hub.Notify("agreement.signed", map[string]int{"id": 3})

	select {
	case msg := <-c.send:
		var ev struct {
			Type    string         `json:"type"`
			Payload map[string]int `json:"payload"`
		}
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if ev.Type != "agreement.signed" || ev.Payload["id"] != 3 {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := startHub(t)
	c := &Client{hub: hub, send: make(chan []byte), ID: "slow"}
	hub.register <- c
	waitFor(t, func() bool { return hub.Count() == 1 })

	hub.Notify("x", nil)
	waitFor(t, func() bool { return hub.Count() == 0 })
}

func TestNotifyWithoutRunDoesNotBlock(t *testing.T) {
	hub := NewHub(nil)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Notify("x", i)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked")
	}
}

func TestHandlerRequiresToken(t *testing.T) {
	hub := startHub(t)
	srv := httptest.NewServer(Handler(hub, testSecret))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	if _, resp, err := websocket.DefaultDialer.Dial(wsURL, nil); err == nil {
		t.Fatal("expected dial without token to fail")
	} else if resp != nil && resp.StatusCode != 401 {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}

	access, _, err := utils.GenerateTokens(&models.UserAuth{ID: 1, Role: models.RoleAdmin}, testSecret)
	if err != nil {
		t.Fatal(err)
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+access, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return hub.Count() == 1 })

	hub.Notify("agreement.created", map[string]string{"number": "AG-1"})
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(msg), "agreement.created") {
		t.Errorf("unexpected message %s", msg)
	}
}
