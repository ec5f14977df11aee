package events

import (
	"strings"
	"testing"
)

func TestMessageRoundTrip(t *testing.T) {
	msg := NewMessage(KindFulfillmentRecorded)
	msg.Source = "recurring"
	msg.ObligationID = 7
	msg.Name = "Rent"
	msg.AmountCents = 95000
	msg.Date = "2024-06-05"
	msg.Month = 6
	msg.Year = 2024

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() failed: %v", err)
	}

	got, err := MessageFromJSON(data)
	if err != nil {
		t.Fatalf("MessageFromJSON() failed: %v", err)
	}
	if got.Kind != KindFulfillmentRecorded {
		t.Errorf("Kind = %q, want %q", got.Kind, KindFulfillmentRecorded)
	}
	if got.ObligationID != 7 || got.Name != "Rent" || got.AmountCents != 95000 {
		t.Errorf("payload lost on round trip: %+v", got)
	}
	if got.Month != 6 || got.Year != 2024 {
		t.Errorf("month scope lost on round trip: %+v", got)
	}
}

func TestMessageOmitsEmptyPayload(t *testing.T) {
	msg := NewMessage(KindSummaryUpdated)
	msg.Month = 6
	msg.Year = 2024

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() failed: %v", err)
	}

	s := string(data)
	for _, field := range []string{"source", "obligation_id", "name", "amount_cents", "date", "names"} {
		if strings.Contains(s, `"`+field+`"`) {
			t.Errorf("empty field %q serialized: %s", field, s)
		}
	}
}

func TestMessageFromJSONRejectsGarbage(t *testing.T) {
	if _, err := MessageFromJSON([]byte("not json")); err == nil {
		t.Error("MessageFromJSON(garbage) succeeded, want error")
	}
}
