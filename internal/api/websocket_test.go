package api

import (
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"github.com/nerrad567/relayhub/internal/automation"
	"github.com/nerrad567/relayhub/internal/relay"
	"github.com/nerrad567/relayhub/internal/schedule"
)

// mockController records the calls a session makes.
type mockController struct {
	calls []string
	err   error
}

func (m *mockController) Connect(automation.Session) {}

func (m *mockController) Toggle(id int) error {
	m.calls = append(m.calls, "toggle:"+strconv.Itoa(id))
	return m.err
}

func (m *mockController) SetMode(id int, mode relay.Mode) error {
	m.calls = append(m.calls, "mode:"+strconv.Itoa(id)+":"+string(mode))
	return m.err
}

func (m *mockController) AddSchedule(id int, rule schedule.Rule) (int, error) {
	m.calls = append(m.calls, "add:"+strconv.Itoa(id)+":"+rule.Time)
	return 2, m.err
}

func (m *mockController) DeleteSchedule(id, index int) error {
	m.calls = append(m.calls, "delete:"+strconv.Itoa(id)+":"+strconv.Itoa(index))
	return m.err
}

func testClient(engine RelayController) *WSClient {
	return &WSClient{
		hub:    NewHub(testWSConfig(), testLogger()),
		send:   make(chan []byte, 16),
		engine: engine,
	}
}

func lastSent(t *testing.T, c *WSClient) WSMessage {
	t.Helper()
	select {
	case data := <-c.send:
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return msg
	default:
		t.Fatal("nothing sent")
	}
	return WSMessage{}
}

func TestHandleMessage_Dispatch(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantCall string
		wantType string
	}{
		{"toggle number", `{"type":"toggleRelay","id":"1","payload":5}`, "toggle:5", WSTypeResponse},
		{"toggle string", `{"type":"toggleRelay","id":"1","payload":" 6 "}`, "toggle:6", WSTypeResponse},
		{"mode", `{"type":"setRelayMode","id":"1","payload":{"relay":2,"mode":"Manual"}}`, "mode:2:manual", WSTypeResponse},
		{"add", `{"type":"addSchedule","id":"1","payload":{"relay":"1","schedule":{"time":"07:00","days":[1],"action":"ON"}}}`, "add:1:07:00", WSTypeResponse},
		{"delete", `{"type":"deleteSchedule","id":"1","payload":{"relay":3,"index":1}}`, "delete:3:1", WSTypeResponse},
		{"delete fractional index", `{"type":"deleteSchedule","id":"1","payload":{"relay":3,"index":1.5}}`, "", WSTypeError},
		{"toggle object", `{"type":"toggleRelay","id":"1","payload":{"relay":7}}`, "toggle:7", WSTypeResponse},
		{"toggle object unknown field", `{"type":"toggleRelay","id":"1","payload":{"relay":1,"bogus":true}}`, "", WSTypeError},
		{"toggle object missing relay", `{"type":"toggleRelay","id":"1","payload":{}}`, "", WSTypeError},
		{"array relay", `{"type":"toggleRelay","id":"1","payload":[1]}`, "", WSTypeError},
		{"bool relay", `{"type":"toggleRelay","id":"1","payload":true}`, "", WSTypeError},
		{"unknown field", `{"type":"addSchedule","id":"1","payload":{"relay":1,"rule":{}}}`, "", WSTypeError},
		{"ping", `{"type":"ping","id":"1"}`, "", WSTypePong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockController{}
			c := testClient(m)
			c.handleMessage([]byte(tt.input))

			msg := lastSent(t, c)
			if msg.Type != tt.wantType {
				t.Fatalf("reply type = %s (%v), want %s", msg.Type, msg.Payload, tt.wantType)
			}
			if msg.ID != "1" {
				t.Errorf("reply id = %q, want 1", msg.ID)
			}
			gotCall := ""
			if len(m.calls) > 0 {
				gotCall = m.calls[0]
			}
			if gotCall != tt.wantCall {
				t.Errorf("call = %q, want %q", gotCall, tt.wantCall)
			}
		})
	}
}

func TestHandleMessage_AddScheduleReturnsIndex(t *testing.T) {
	c := testClient(&mockController{})
	c.handleMessage([]byte(`{"type":"addSchedule","id":"9","payload":{"relay":1,"schedule":{"time":"07:00","days":[1],"action":"ON"}}}`))

	msg := lastSent(t, c)
	p, _ := msg.Payload.(map[string]any)
	if p["ok"] != true || p["index"] != float64(2) {
		t.Errorf("payload = %v, want ok with index 2", msg.Payload)
	}
}

func TestHandleMessage_EngineErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"validation error is passed through", schedule.ErrRuleNotFound, schedule.ErrRuleNotFound.Error()},
		{"internal error is masked", errors.New("disk on fire"), "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(&mockController{err: tt.err})
			c.handleMessage([]byte(`{"type":"deleteSchedule","id":"1","payload":{"relay":1,"index":0}}`))

			msg := lastSent(t, c)
			if msg.Type != WSTypeError {
				t.Fatalf("reply type = %s, want error", msg.Type)
			}
			p, _ := msg.Payload.(map[string]any)
			if p["message"] != tt.wantMsg {
				t.Errorf("message = %v, want %q", p["message"], tt.wantMsg)
			}
		})
	}
}

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"relay":1,"mode":"auto"}`, false},
		{"surrounding whitespace", " {\"relay\":1,\"mode\":\"auto\"}\n", false},
		{"missing", ``, true},
		{"blank", `   `, true},
		{"trailing brace", `{"relay":1,"mode":"auto"}}`, true},
		{"trailing value", `{"relay":1,"mode":"auto"} 5`, true},
		{"second object", `{"relay":1,"mode":"auto"}{"relay":2,"mode":"auto"}`, true},
		{"unknown field", `{"relay":1,"mode":"auto","force":true}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p WSModePayload
			err := decodePayload(json.RawMessage(tt.raw), &p)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodePayload(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, automation.ErrInvalidPayload) {
				t.Errorf("error = %v, want ErrInvalidPayload", err)
			}
		})
	}
}

func TestSend_ClosedChannel(t *testing.T) {
	c := testClient(&mockController{})
	close(c.send)

	// Must not panic.
	c.Send(automation.EventRelayStatus, automation.RelayStatus{Relay: 1, Status: relay.StateOn})
}

func TestSend_FullBufferDrops(t *testing.T) {
	c := testClient(&mockController{})
	for i := 0; i < cap(c.send)+5; i++ {
		c.Send("probe", nil)
	}
	if len(c.send) != cap(c.send) {
		t.Errorf("buffered = %d, want %d", len(c.send), cap(c.send))
	}
}

func TestHub_BroadcastToAll(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())
	a := testClient(nil)
	b := testClient(nil)
	a.hub, b.hub = hub, hub
	hub.Register(a)
	hub.Register(b)

	hub.Broadcast(automation.EventMQTTStatus, automation.BusConnected)

	for name, c := range map[string]*WSClient{"a": a, "b": b} {
		msg := lastSent(t, c)
		if msg.EventType != automation.EventMQTTStatus || msg.Payload != automation.BusConnected {
			t.Errorf("client %s got %s %v", name, msg.EventType, msg.Payload)
		}
	}

	hub.Unregister(a)
	hub.Unregister(a) // second call must not double-close
	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount = %d, want 1", hub.ClientCount())
	}
}
