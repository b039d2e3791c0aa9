package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-pool/internal/auth"
	"github.com/nerrad567/gray-logic-pool/internal/controller"
	"github.com/nerrad567/gray-logic-pool/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-pool/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-pool/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-pool/internal/state"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

type mockPresser struct {
	mu      sync.Mutex
	pressed []string
	err     error
}

func (m *mockPresser) PressAsync(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.pressed = append(m.pressed, name)
	return nil
}

type mockState struct{ s state.State }

func (m mockState) Snapshot() state.State { return m.s }

type mockDisplays map[string]string

func (m mockDisplays) Snapshot() map[string]string { return m }

type mockHealth struct{ err error }

func (m mockHealth) HealthCheck(context.Context) error { return m.err }

// testServer creates a Server with mock collaborators. An empty secret
// disables authentication.
func testServer(t *testing.T, secret string) (*Server, *mockPresser) {
	t.Helper()

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	presser := &mockPresser{}

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
			Auth: config.APIAuthConfig{JWTSecret: secret, AccessTokenTTL: 15},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger:   log,
		Buttons:  presser,
		State:    mockState{state.State{ForcedOn: true, BackwashStep: 2, TemperatureMax: 24.5}},
		Displays: mockDisplays{"control": "Actif Saison", "backwash": "Washing : 01:30"},
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	t.Cleanup(srv.hub.closeAll)

	return srv, presser
}

func token(t *testing.T, role auth.Role) string {
	t.Helper()
	tok, err := auth.GenerateAccessToken("test-client", role, testSecret, 15)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	return tok
}

func do(t *testing.T, srv *Server, method, path, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)
	return rec
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() without logger should fail")
	}
	log := logging.Default()
	if _, err := New(Deps{Logger: log}); err == nil {
		t.Error("New() without collaborators should fail")
	}
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t, testSecret)

	rec := do(t, srv, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestHealth_MQTTDown(t *testing.T) {
	srv, _ := testServer(t, testSecret)
	srv.mqtt = mockHealth{err: mqtt.ErrNotConnected}

	rec := do(t, srv, http.MethodGet, "/api/v1/health", "")
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "degraded" {
		t.Errorf("status = %v, want degraded", body["status"])
	}
}

func TestAuth(t *testing.T) {
	srv, _ := testServer(t, testSecret)

	tests := []struct {
		name   string
		method string
		path   string
		bearer string
		want   int
	}{
		{"state without token", http.MethodGet, "/api/v1/state", "", http.StatusUnauthorized},
		{"state with garbage", http.MethodGet, "/api/v1/state", "garbage", http.StatusUnauthorized},
		{"state as viewer", http.MethodGet, "/api/v1/state", token(t, auth.RoleViewer), http.StatusOK},
		{"displays as viewer", http.MethodGet, "/api/v1/displays", token(t, auth.RoleViewer), http.StatusOK},
		{"button as viewer", http.MethodPost, "/api/v1/buttons/booster", token(t, auth.RoleViewer), http.StatusForbidden},
		{"button as operator", http.MethodPost, "/api/v1/buttons/booster", token(t, auth.RoleOperator), http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, tt.method, tt.path, tt.bearer)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestAuth_QueryTokenOnlyForWebSocket(t *testing.T) {
	srv, _ := testServer(t, testSecret)

	rec := do(t, srv, http.MethodGet, "/api/v1/state?token="+token(t, auth.RoleViewer), "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for a query token outside a WebSocket upgrade", rec.Code)
	}
}

func TestAuth_Disabled(t *testing.T) {
	srv, presser := testServer(t, "")

	if rec := do(t, srv, http.MethodGet, "/api/v1/state", ""); rec.Code != http.StatusOK {
		t.Errorf("state status = %d, want 200", rec.Code)
	}
	if rec := do(t, srv, http.MethodPost, "/api/v1/buttons/stop", ""); rec.Code != http.StatusAccepted {
		t.Errorf("button status = %d, want 202", rec.Code)
	}
	if len(presser.pressed) != 1 {
		t.Errorf("pressed = %v", presser.pressed)
	}
}

func TestGetState(t *testing.T) {
	srv, _ := testServer(t, "")

	rec := do(t, srv, http.MethodGet, "/api/v1/state", "")
	var got state.State
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if !got.ForcedOn || got.BackwashStep != 2 || got.TemperatureMax != 24.5 {
		t.Errorf("state = %+v", got)
	}
}

func TestGetDisplays(t *testing.T) {
	srv, _ := testServer(t, "")

	rec := do(t, srv, http.MethodGet, "/api/v1/displays", "")
	var body struct {
		Displays map[string]string `json:"displays"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Displays["control"] != "Actif Saison" || len(body.Displays) != 2 {
		t.Errorf("displays = %v", body.Displays)
	}
}

func TestPressButton(t *testing.T) {
	tests := []struct {
		name       string
		button     string
		presserErr error
		want       int
	}{
		{"known button", controller.ButtonBackwash, nil, http.StatusAccepted},
		{"unknown button", "self_destruct", nil, http.StatusNotFound},
		{"shutting down", controller.ButtonReset, controller.ErrClosed, http.StatusServiceUnavailable},
		{"unexpected error", controller.ButtonReset, errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, presser := testServer(t, "")
			presser.err = tt.presserErr

			rec := do(t, srv, http.MethodPost, "/api/v1/buttons/"+tt.button, "")
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusAccepted && (len(presser.pressed) != 1 || presser.pressed[0] != tt.button) {
				t.Errorf("pressed = %v", presser.pressed)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := testServer(t, testSecret)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/state", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://dashboard.local" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestWebSocket_DisplayBroadcast(t *testing.T) {
	srv, _ := testServer(t, testSecret)
	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"

	if _, resp, err := websocket.DefaultDialer.Dial(wsURL, nil); err == nil {
		t.Fatal("dial without token should fail")
	} else if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("dial without token: resp = %v, err = %v", resp, err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+token(t, auth.RoleViewer), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(wsMessage{Type: wsSubscribe, ID: "1"}); err != nil {
		t.Fatal(err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var ack wsMessage
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("reading subscribe ack: %v", err)
	}
	if ack.Type != wsSubscribed || ack.ID != "1" || ack.Event != ChannelDisplayChanged {
		t.Fatalf("ack = %+v", ack)
	}

	// The current board follows the ack, sorted by display name.
	for _, want := range []wsMessage{
		{Name: "backwash", Text: "Washing : 01:30"},
		{Name: "control", Text: "Actif Saison"},
	} {
		var got wsMessage
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("reading board event: %v", err)
		}
		if got.Type != wsEvent || got.Name != want.Name || got.Text != want.Text {
			t.Errorf("board event = %+v, want %s=%q", got, want.Name, want.Text)
		}
	}

	srv.BroadcastDisplay("booster", "Active : 04:55")

	var event wsMessage
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("reading event: %v", err)
	}
	if event.Type != wsEvent || event.Event != ChannelDisplayChanged {
		t.Fatalf("event = %+v", event)
	}
	if event.Name != "booster" || event.Text != "Active : 04:55" {
		t.Errorf("event = %s=%q", event.Name, event.Text)
	}

	if err := conn.WriteJSON(wsMessage{Type: "bogus", ID: "2"}); err != nil {
		t.Fatal(err)
	}
	var reply wsMessage
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("reading error reply: %v", err)
	}
	if reply.Type != wsError || reply.ID != "2" {
		t.Errorf("reply = %+v, want error for id 2", reply)
	}
}

func TestDisplayHub_OnlySubscribedClientsReceive(t *testing.T) {
	hub := newDisplayHub(logging.Default())
	subscribed := &wsClient{send: make(chan []byte, 1)}
	subscribed.subscribed.Store(true)
	other := &wsClient{send: make(chan []byte, 1)}
	hub.add(subscribed)
	hub.add(other)

	hub.publish("control", "Auto Saison")

	if len(subscribed.send) != 1 {
		t.Error("subscribed client should receive the event")
	}
	if len(other.send) != 0 {
		t.Error("unsubscribed client should not receive the event")
	}

	// Full buffer: the event is dropped rather than blocking.
	hub.publish("control", "Actif Saison")
	if len(subscribed.send) != 1 {
		t.Errorf("buffered = %d, want 1", len(subscribed.send))
	}

	hub.remove(other)
	hub.remove(other)
	if hub.count() != 1 {
		t.Errorf("count() = %d, want 1", hub.count())
	}
	if _, open := <-other.send; open {
		t.Error("removed client's channel should be closed")
	}

	// Replies to a removed client are dropped, not sent on the closed channel.
	hub.reply(other, wsMessage{Type: wsPong})

	hub.closeAll()
	if hub.count() != 0 {
		t.Errorf("count() after closeAll = %d, want 0", hub.count())
	}
}
