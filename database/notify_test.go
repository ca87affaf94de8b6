package database

import "testing"

func TestDecodeNotification(t *testing.T) {
	ev, err := decodeNotification(`{"table":"tasks","event":"UPDATE","record":{"id":"t1","user_id":"ana"}}`)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ev.Table != "tasks" || ev.Event != "UPDATE" {
		t.Errorf("Unexpected event %+v", ev)
	}
	if ev.Record["id"] != "t1" {
		t.Errorf("Expected record id t1, got %v", ev.Record["id"])
	}
	if ev.At.IsZero() {
		t.Error("Expected receive time set")
	}

	for _, payload := range []string{`not json`, `{"table":"tasks"}`, `{}`} {
		if _, err := decodeNotification(payload); err == nil {
			t.Errorf("Expected error for %q", payload)
		}
	}
}
