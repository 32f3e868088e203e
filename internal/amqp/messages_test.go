package amqp

import "testing"

func TestChangeMessageRoundTrip(t *testing.T) {
	msg := NewChangeMessage("u1", "expenses", OpCreate, "doc-1")
	if msg.Timestamp.IsZero() {
		t.Fatalf("timestamp not stamped")
	}

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("to json: %v", err)
	}

	back, err := ChangeMessageFromJSON(data)
	if err != nil {
		t.Fatalf("from json: %v", err)
	}
	if back.UserID != "u1" || back.Collection != "expenses" || back.Op != OpCreate || back.DocID != "doc-1" {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}

func TestChangeMessageFromJSONInvalid(t *testing.T) {
	if _, err := ChangeMessageFromJSON([]byte("not json")); err == nil {
		t.Fatalf("expected error for invalid payload")
	}
}
