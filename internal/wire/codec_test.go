package wire

import (
	"testing"

	"chordnode/internal/chorderr"
	"chordnode/internal/ring"
)

func mustNode(t *testing.T, addr string) ring.Node {
	t.Helper()
	n, err := ring.NodeFromAddr(addr)
	if err != nil {
		t.Fatalf("NodeFromAddr(%q): %v", addr, err)
	}
	return n
}

func TestRoundTrip(t *testing.T) {
	a := mustNode(t, "127.0.0.1:4000")
	b := mustNode(t, "127.0.0.2:4001")

	tests := []struct {
		name string
		msg  Message
	}{
		{"notify", Notify{Node: a}},
		{"get_predecessor_request", GetPredecessorRequest{}},
		{"get_predecessor_response empty", GetPredecessorResponse{}},
		{"get_predecessor_response present", GetPredecessorResponse{Node: a}},
		{"get_successor_list_request", GetSuccessorListRequest{}},
		{"get_successor_list_response empty", GetSuccessorListResponse{}},
		{"get_successor_list_response many", GetSuccessorListResponse{Successors: []ring.Node{a, b}}},
		{"start_find_successor_request", StartFindSuccessorRequest{Key: 0xDEADBEEF}},
		{"start_find_successor_response", StartFindSuccessorResponse{Node: b}},
		{"check_predecessor_request", CheckPredecessorRequest{}},
		{"check_predecessor_response", CheckPredecessorResponse{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packet := EncodePacket(12345, tt.msg)
			corrID, decoded, err := DecodePacket(packet)
			if err != nil {
				t.Fatalf("DecodePacket: %v", err)
			}
			if corrID != 12345 {
				t.Errorf("correlation id = %d, want 12345", corrID)
			}
			if decoded.Tag() != tt.msg.Tag() {
				t.Errorf("tag = %v, want %v", decoded.Tag(), tt.msg.Tag())
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	good := EncodePacket(1, CheckPredecessorRequest{})

	tests := []struct {
		name string
		data []byte
	}{
		{"too short for length prefix", []byte{0, 0, 0}},
		{"declared length mismatch", good[:len(good)-1]},
		{"empty", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := DecodePacket(tt.data); err == nil {
				t.Fatalf("expected error, got nil")
			}
		})
	}
}

func TestDecodeUnknownTag(t *testing.T) {
	packet := EncodePacket(1, CheckPredecessorRequest{})
	packet[10] = 0xFF // corrupt the tag byte
	_, _, err := DecodePacket(packet)
	if err == nil {
		t.Fatalf("expected MalformedFrame for unknown tag")
	}
	if err != chorderr.MalformedFrame {
		t.Fatalf("got %v, want chorderr.MalformedFrame", err)
	}
}

func TestNodeWireSizeBudget(t *testing.T) {
	// spec §6: an MTU-safe datagram is dominated by a successor list of
	// <=32 entries * 14 bytes per entry.
	if nodeLen != 14 {
		t.Fatalf("nodeLen = %d, want 14 (spec's per-entry wire size)", nodeLen)
	}
}
