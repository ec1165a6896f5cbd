package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

// echoDaemon answers every message with {"success":true,"echo":<msg>} and
// records the Authorization header of the upgrade request.
func echoDaemon(t *testing.T, gotAuth *string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	mux.HandleFunc("/v1/ws", func(w http.ResponseWriter, r *http.Request) {
		*gotAuth = r.Header.Get("Authorization")
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()
		for {
			_, msg, err := conn.Read(r.Context())
			if err != nil {
				return
			}
			b, _ := json.Marshal(map[string]any{"success": true, "echo": json.RawMessage(msg)})
			if err := conn.Write(r.Context(), websocket.MessageText, b); err != nil {
				return
			}
		}
	})
	return httptest.NewServer(mux)
}

func TestNewClientURLs(t *testing.T) {
	tests := []struct {
		in      string
		wantWS  string
		wantErr bool
	}{
		{"ws://127.0.0.1:9090/v1/ws", "ws://127.0.0.1:9090/v1/ws", false},
		{"http://127.0.0.1:9090", "ws://127.0.0.1:9090/v1/ws", false},
		{"https://bridge.local/", "wss://bridge.local/v1/ws", false},
		{"ftp://x", "", true},
	}
	for _, tt := range tests {
		c, err := NewClient(tt.in, "", 0)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %v", tt.in, err)
		}
		if got := c.URL().String(); got != tt.wantWS {
			t.Fatalf("%s: ws url = %s want %s", tt.in, got, tt.wantWS)
		}
	}
}

func TestSessionRelaysInOrder(t *testing.T) {
	var auth string
	srv := echoDaemon(t, &auth)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := NewClient(srv.URL, "sekrit", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	s, err := c.Dial(ctx)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer s.Close()

	if auth != "Bearer sekrit" {
		t.Fatalf("authorization = %q", auth)
	}
	for _, action := range []string{"check_status", "download", "history"} {
		resp := s.Handle(ctx, json.RawMessage(`{"action":"`+action+`"}`))
		raw, ok := resp.(json.RawMessage)
		if !ok {
			t.Fatalf("response = %#v", resp)
		}
		if !strings.Contains(string(raw), `"action":"`+action+`"`) {
			t.Fatalf("response out of order: %s", raw)
		}
	}
}

func TestSessionHandleReportsBrokenBridge(t *testing.T) {
	var auth string
	srv := echoDaemon(t, &auth)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, _ := NewClient(srv.URL, "", time.Second)
	s, err := c.Dial(ctx)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	_ = s.Close()
	srv.Close()

	resp, ok := s.Handle(ctx, json.RawMessage(`{"action":"check_status"}`)).(errorResponse)
	if !ok || resp.Success || !strings.HasPrefix(resp.Error, "Bridge unavailable") {
		t.Fatalf("response = %#v", resp)
	}
}

func TestPingFailsWhenDaemonDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c, _ := NewClient(srv.URL, "", time.Second)
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error for non-200 health")
	}
	srv.Close()
}
