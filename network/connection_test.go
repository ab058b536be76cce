package network

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	payload := []byte(`{"room_id":"r1"}`)
	frame, err := Encode(MsgTypeJoinRoom, payload)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(frame) != 4+len(payload) {
		t.Fatalf("Expected frame length %d, got %d", 4+len(payload), len(frame))
	}

	packet, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if packet.MsgID != MsgTypeJoinRoom {
		t.Errorf("Expected msgID %d, got %d", MsgTypeJoinRoom, packet.MsgID)
	}
	if int(packet.Length) != len(payload) || !bytes.Equal(packet.Data, payload) {
		t.Errorf("Expected payload %q, got %q", payload, packet.Data)
	}
}

func TestDecode_Short(t *testing.T) {
	if _, err := Decode([]byte{0, 1}); !errors.Is(err, io.ErrShortBuffer) {
		t.Errorf("Expected ErrShortBuffer for a truncated header, got %v", err)
	}

	frame, _ := Encode(MsgTypeChat, []byte("hello"))
	if _, err := Decode(frame[:6]); !errors.Is(err, io.ErrShortBuffer) {
		t.Errorf("Expected ErrShortBuffer for a truncated body, got %v", err)
	}
}

func TestEncode_TooLarge(t *testing.T) {
	if _, err := Encode(MsgTypeChat, make([]byte, 0x10000)); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("Expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestMsgName(t *testing.T) {
	if got := MsgName(MsgTypeNominate); got != "nominate" {
		t.Errorf("Expected nominate, got %s", got)
	}
	if got := MsgName(9999); got != "unknown" {
		t.Errorf("Expected unknown, got %s", got)
	}
}
