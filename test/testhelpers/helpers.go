// Package testhelpers provides common utilities for testing the chat server
// end to end: dialing the WebSocket endpoint, sending actions and reading
// the events the hub fans out.
package testhelpers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"

	"github.com/Tyrowin/groupchat/internal/chat"
)

// Env holds the knobs integration tests read from GOCHAT_TEST_* variables.
type Env struct {
	Origin      string        `envconfig:"ORIGIN" default:"http://localhost:8080"`
	ReadTimeout time.Duration `envconfig:"READ_TIMEOUT" default:"2s"`
	QuietPeriod time.Duration `envconfig:"QUIET_PERIOD" default:"200ms"`
}

// LoadEnv reads the test environment, failing the test on malformed values.
func LoadEnv(t *testing.T) Env {
	t.Helper()
	var env Env
	if err := envconfig.Process("gochat_test", &env); err != nil {
		t.Fatalf("Failed to load test environment: %v", err)
	}
	return env
}

// WebSocketURL turns an httptest server URL into its /ws endpoint.
func WebSocketURL(serverURL string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
}

// ConnectWebSocket dials the WebSocket endpoint with the given Origin header.
func ConnectWebSocket(url, origin string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

// MustConnect dials with the test environment's origin and registers the
// connection for cleanup.
func MustConnect(t *testing.T, env Env, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := ConnectWebSocket(url, env.Origin)
	if err != nil {
		t.Fatalf("Failed to connect to %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendAction writes one inbound frame.
func SendAction(conn *websocket.Conn, actionType string, payload any) error {
	frame := map[string]any{"type": actionType}
	if payload != nil {
		frame["payload"] = payload
	}
	return conn.WriteJSON(frame)
}

// MustSend is SendAction that fails the test on error.
func MustSend(t *testing.T, conn *websocket.Conn, actionType string, payload any) {
	t.Helper()
	if err := SendAction(conn, actionType, payload); err != nil {
		t.Fatalf("Failed to send %s: %v", actionType, err)
	}
}

// ReadEvent reads the next outbound frame within timeout.
func ReadEvent(conn *websocket.Conn, timeout time.Duration) (chat.Envelope, error) {
	var env chat.Envelope
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return env, err
	}
	err := conn.ReadJSON(&env)
	return env, err
}

// ExpectEvent reads the next frame, checks its type and decodes the payload
// into out when out is non-nil.
func ExpectEvent(t *testing.T, env Env, conn *websocket.Conn, eventType string, out any) {
	t.Helper()
	evt, err := ReadEvent(conn, env.ReadTimeout)
	if err != nil {
		t.Fatalf("Waiting for %s: %v", eventType, err)
	}
	if evt.Type != eventType {
		t.Fatalf("Expected %s event, got %s (%s)", eventType, evt.Type, string(evt.Payload))
	}
	if out != nil {
		if err := json.Unmarshal(evt.Payload, out); err != nil {
			t.Fatalf("Decoding %s payload: %v", eventType, err)
		}
	}
}

// ExpectNoEvent asserts that nothing arrives during the quiet period. A read
// timeout leaves the connection unusable, so call it last on a conn.
func ExpectNoEvent(t *testing.T, env Env, conn *websocket.Conn) {
	t.Helper()
	evt, err := ReadEvent(conn, env.QuietPeriod)
	if err == nil {
		t.Fatalf("Expected no event, got %s (%s)", evt.Type, string(evt.Payload))
	}
	if !isTimeout(err) {
		t.Fatalf("Expected read timeout, got %v", err)
	}
}

// Join sends a join action and consumes the two roster snapshots the joiner
// receives, returning the second one.
func Join(t *testing.T, env Env, conn *websocket.Conn, name string) []chat.RosterEntry {
	t.Helper()
	MustSend(t, conn, chat.TypeJoin, map[string]string{"displayName": name})
	ExpectEvent(t, env, conn, chat.TypeRosterSnapshot, nil)
	var roster []chat.RosterEntry
	ExpectEvent(t, env, conn, chat.TypeRosterSnapshot, &roster)
	return roster
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

// AssertStatusCode checks if the HTTP response has the expected status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// Eventually polls cond until it holds or the timeout passes.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, format string, args ...any) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Condition not met within %s: %s", timeout, fmt.Sprintf(format, args...))
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
