package wire

import "testing"

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	frame, err := Marshal("Bidding", Bidding{PlayerID: "p0", Bid: "7"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	env, err := Unmarshal(frame)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if env.Method != "Bidding" {
		t.Fatalf("method = %q, want Bidding", env.Method)
	}

	var decoded Bidding
	if err := DecodePayload(env.Payload, &decoded); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if decoded != (Bidding{PlayerID: "p0", Bid: "7"}) {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestUnmarshalRejectsTruncatedFrame(t *testing.T) {
	frame, err := Marshal("PingPong", PingPong{ID: "1"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if _, err := Unmarshal(frame[:len(frame)-2]); err == nil {
		t.Fatalf("expected error decoding truncated frame")
	}
}

func TestCloseDirectiveRoundTrip(t *testing.T) {
	raw := EncodeCloseDirective("Another tab connected")
	reason, ok := IsCloseDirective(raw)
	if !ok {
		t.Fatalf("expected close directive")
	}
	if reason != "Another tab connected" {
		t.Fatalf("reason = %q", reason)
	}
}

func TestIsCloseDirectiveFalseForOrdinaryPayload(t *testing.T) {
	frame, err := Marshal("PingPong", PingPong{ID: "1"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if _, ok := IsCloseDirective(frame); ok {
		t.Fatalf("ordinary frame misidentified as close directive")
	}
}

func TestCorrelationIDStableForSamePayload(t *testing.T) {
	a := Envelope{Method: "PlayCard", Payload: []byte("abc")}
	b := Envelope{Method: "PlayCard", Payload: []byte("abc")}
	c := Envelope{Method: "PlayCard", Payload: []byte("xyz")}

	if a.CorrelationID() != b.CorrelationID() {
		t.Fatalf("identical envelopes must share a correlation id")
	}
	if a.CorrelationID() == c.CorrelationID() {
		t.Fatalf("different payloads should not collide (in this test)")
	}
}
