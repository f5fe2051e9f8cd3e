package websocket

import (
	"encoding/json"
	"testing"
	"time"
)

type quietLogger struct{}

func (quietLogger) Debug(module, message string, details map[string]interface{}) {}
func (quietLogger) Info(module, message string, details map[string]interface{})  {}
func (quietLogger) Warn(module, message string, details map[string]interface{})  {}
func (quietLogger) Error(module, message string, details map[string]interface{}) {}
func (quietLogger) Sync() error                                                  { return nil }

func newTestHub() *Hub {
	h := NewHub(nil, quietLogger{})
	go h.Run()
	return h
}

func waitForObservers(t *testing.T, h *Hub, sessionID string, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		h.mu.RLock()
		n := len(h.clients[sessionID])
		h.mu.RUnlock()
		if n == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("observer count for %s = %d, want %d", sessionID, n, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestUpdateReachesObserver(t *testing.T) {
	h := newTestHub()

	observer := &Client{Hub: h, SessionId: "sess-1", Send: make(chan []byte, 4)}
	bystander := &Client{Hub: h, SessionId: "sess-2", Send: make(chan []byte, 4)}
	h.register <- observer
	h.register <- bystander
	waitForObservers(t, h, "sess-1", 1)
	waitForObservers(t, h, "sess-2", 1)

	h.SendUpdate(LiveUpdate{SessionId: "sess-1", Reply: "Thank you.", Answered: 1, Total: 3})

	select {
	case raw := <-observer.Send:
		var envelope struct {
			Type string     `json:"type"`
			Data LiveUpdate `json:"data"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			t.Fatalf("unmarshal update: %v", err)
		}
		if envelope.Type != "turn_update" || envelope.Data.SessionId != "sess-1" {
			t.Errorf("unexpected envelope: %+v", envelope)
		}
	case <-time.After(time.Second):
		t.Fatal("observer never received the update")
	}

	select {
	case <-bystander.Send:
		t.Error("observer of another session received the update")
	default:
	}
}

func TestSlowObserverIsDroppedWithoutPanic(t *testing.T) {
	h := newTestHub()

	// Nothing drains this channel, so the first update overflows it.
	stuck := &Client{Hub: h, SessionId: "sess-1", Send: make(chan []byte)}
	h.register <- stuck
	waitForObservers(t, h, "sess-1", 1)

	h.SendUpdate(LiveUpdate{SessionId: "sess-1", Reply: "first"})
	waitForObservers(t, h, "sess-1", 0)

	if _, ok := <-stuck.Send; ok {
		t.Error("dropped observer's channel was not closed")
	}

	// The session has no observers left; further updates must be no-ops.
	h.SendUpdate(LiveUpdate{SessionId: "sess-1", Reply: "second"})

	// The hub goroutine must have survived the drop.
	replacement := &Client{Hub: h, SessionId: "sess-1", Send: make(chan []byte, 4)}
	h.register <- replacement
	waitForObservers(t, h, "sess-1", 1)

	h.SendUpdate(LiveUpdate{SessionId: "sess-1", Reply: "third"})
	select {
	case <-replacement.Send:
	case <-time.After(time.Second):
		t.Fatal("hub stopped delivering after dropping a slow observer")
	}
}

func TestClusterEchoIsSkipped(t *testing.T) {
	h := newTestHub()

	observer := &Client{Hub: h, SessionId: "sess-1", Send: make(chan []byte, 4)}
	h.register <- observer
	waitForObservers(t, h, "sess-1", 1)

	message := json.RawMessage(`{"type":"turn_update","data":{"session_id":"sess-1"}}`)

	selfEcho, _ := json.Marshal(map[string]interface{}{
		"origin":     h.instanceID,
		"session_id": "sess-1",
		"message":    message,
	})
	h.handleClusterMessage(selfEcho)

	select {
	case <-observer.Send:
		t.Fatal("self-published message was delivered twice")
	default:
	}

	remote, _ := json.Marshal(map[string]interface{}{
		"origin":     "another-instance",
		"session_id": "sess-1",
		"message":    message,
	})
	h.handleClusterMessage(remote)

	select {
	case raw := <-observer.Send:
		if string(raw) != string(message) {
			t.Errorf("relayed payload = %s, want %s", raw, message)
		}
	case <-time.After(time.Second):
		t.Fatal("remote-origin message was not delivered")
	}
}
