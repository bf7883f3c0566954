package message

import "testing"

func TestParseFrame_Message(t *testing.T) {
	f, err := ParseFrame([]byte(`{"type":"message","content":"hello","client_id":"c1"}`))
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if f.Type != FrameTypeMessage || f.Message == nil {
		t.Fatalf("unexpected frame: %+v", f)
	}
	if f.Message.Content != "hello" || f.Message.ClientID != "c1" {
		t.Fatalf("unexpected payload: %+v", f.Message)
	}
}

func TestParseFrame_MessageRequiresContent(t *testing.T) {
	if _, err := ParseFrame([]byte(`{"type":"message","content":""}`)); err == nil {
		t.Fatalf("empty content should be rejected")
	}
}

func TestParseFrame_TypingDefaultsTrue(t *testing.T) {
	f, err := ParseFrame([]byte(`{"type":"typing"}`))
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if !f.Typing.Typing() {
		t.Fatalf("is_typing should default to true")
	}

	f, err = ParseFrame([]byte(`{"type":"typing","is_typing":false}`))
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if f.Typing.Typing() {
		t.Fatalf("explicit false should stick")
	}
}

func TestParseFrame_Read(t *testing.T) {
	f, err := ParseFrame([]byte(`{"type":"read","last_read_message_id":42}`))
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if f.Read.LastReadMessageID != 42 {
		t.Fatalf("unexpected watermark: %d", f.Read.LastReadMessageID)
	}

	if _, err := ParseFrame([]byte(`{"type":"read","last_read_message_id":0}`)); err == nil {
		t.Fatalf("zero watermark should be rejected")
	}
}

func TestParseFrame_Ping(t *testing.T) {
	f, err := ParseFrame([]byte(`{"type":"ping"}`))
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if f.Type != FrameTypePing {
		t.Fatalf("unexpected type %q", f.Type)
	}
}

func TestParseFrame_Invalid(t *testing.T) {
	cases := []string{
		`not json`,
		`{"type":"unknown"}`,
		`{}`,
	}
	for _, c := range cases {
		if _, err := ParseFrame([]byte(c)); err == nil {
			t.Fatalf("expected error for %q", c)
		}
	}
}
