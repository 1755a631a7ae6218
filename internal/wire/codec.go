// Package wire implements the Chord wire codec (spec component C2):
// length-prefixed UDP framing around a tagged request/response union.
//
// Every datagram is `len:u64-big-endian || payload`; payload is
// `version:u16-big-endian || tag:u8 || correlation_id:u64-big-endian ||
// body`. An equivalent concern elsewhere (internal/client, internal/server)
// is protobuf-over-gRPC; spec.md explicitly treats protocol-buffer message
// descriptors as an opaque, out-of-scope codec, so this codec is hand
// rolled with encoding/binary instead of carried forward unchanged.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"

	"chordnode/internal/chorderr"
	"chordnode/internal/ring"
)

// Version is the protocol version tag carried by every message.
const Version uint16 = 417

// headerLen is version(2) + tag(1) + correlation id(8).
const headerLen = 2 + 1 + 8

// nodeLen is the fixed wire size of a Node descriptor: id(8) + ip(4) + port(2).
const nodeLen = 8 + 4 + 2

// Tag identifies which message a frame carries.
type Tag byte

const (
	TagNotify Tag = iota + 1
	TagGetPredecessorRequest
	TagGetPredecessorResponse
	TagGetSuccessorListRequest
	TagGetSuccessorListResponse
	TagStartFindSuccessorRequest
	TagStartFindSuccessorResponse
	TagCheckPredecessorRequest
	TagCheckPredecessorResponse
)

func (t Tag) String() string {
	switch t {
	case TagNotify:
		return "NOTIFY"
	case TagGetPredecessorRequest:
		return "GET_PREDECESSOR_REQUEST"
	case TagGetPredecessorResponse:
		return "GET_PREDECESSOR_RESPONSE"
	case TagGetSuccessorListRequest:
		return "GET_SUCCESSOR_LIST_REQUEST"
	case TagGetSuccessorListResponse:
		return "GET_SUCCESSOR_LIST_RESPONSE"
	case TagStartFindSuccessorRequest:
		return "START_FIND_SUCCESSOR_REQUEST"
	case TagStartFindSuccessorResponse:
		return "START_FIND_SUCCESSOR_RESPONSE"
	case TagCheckPredecessorRequest:
		return "CHECK_PREDECESSOR_REQUEST"
	case TagCheckPredecessorResponse:
		return "CHECK_PREDECESSOR_RESPONSE"
	default:
		return fmt.Sprintf("TAG(%d)", byte(t))
	}
}

// Message is any payload that can ride inside a frame.
type Message interface {
	Tag() Tag
	encodeBody(buf *bytes.Buffer)
}

// Notify carries the sender's descriptor, advising the receiver that the
// sender may be its predecessor.
type Notify struct{ Node ring.Node }

func (Notify) Tag() Tag { return TagNotify }
func (m Notify) encodeBody(buf *bytes.Buffer) { encodeNode(buf, m.Node) }

// GetPredecessorRequest asks the peer for its current predecessor.
type GetPredecessorRequest struct{}

func (GetPredecessorRequest) Tag() Tag             { return TagGetPredecessorRequest }
func (GetPredecessorRequest) encodeBody(*bytes.Buffer) {}

// GetPredecessorResponse answers GetPredecessorRequest. Node is the zero
// value when the peer has no predecessor.
type GetPredecessorResponse struct{ Node ring.Node }

func (GetPredecessorResponse) Tag() Tag { return TagGetPredecessorResponse }
func (m GetPredecessorResponse) encodeBody(buf *bytes.Buffer) { encodeOptionalNode(buf, m.Node) }

// GetSuccessorListRequest asks the peer for its successor list.
type GetSuccessorListRequest struct{}

func (GetSuccessorListRequest) Tag() Tag              { return TagGetSuccessorListRequest }
func (GetSuccessorListRequest) encodeBody(*bytes.Buffer) {}

// GetSuccessorListResponse answers GetSuccessorListRequest.
type GetSuccessorListResponse struct{ Successors []ring.Node }

func (GetSuccessorListResponse) Tag() Tag { return TagGetSuccessorListResponse }
func (m GetSuccessorListResponse) encodeBody(buf *bytes.Buffer) {
	var n [2]byte
	binary.BigEndian.PutUint16(n[:], uint16(len(m.Successors)))
	buf.Write(n[:])
	for _, s := range m.Successors {
		encodeNode(buf, s)
	}
}

// StartFindSuccessorRequest asks the peer to locate (or forward towards)
// the successor of Key.
type StartFindSuccessorRequest struct{ Key ring.ID }

func (StartFindSuccessorRequest) Tag() Tag { return TagStartFindSuccessorRequest }
func (m StartFindSuccessorRequest) encodeBody(buf *bytes.Buffer) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(m.Key))
	buf.Write(b[:])
}

// StartFindSuccessorResponse answers StartFindSuccessorRequest.
type StartFindSuccessorResponse struct{ Node ring.Node }

func (StartFindSuccessorResponse) Tag() Tag { return TagStartFindSuccessorResponse }
func (m StartFindSuccessorResponse) encodeBody(buf *bytes.Buffer) { encodeNode(buf, m.Node) }

// CheckPredecessorRequest is a liveness probe sent to a node's predecessor.
type CheckPredecessorRequest struct{}

func (CheckPredecessorRequest) Tag() Tag              { return TagCheckPredecessorRequest }
func (CheckPredecessorRequest) encodeBody(*bytes.Buffer) {}

// CheckPredecessorResponse answers CheckPredecessorRequest; its mere
// arrival is the liveness signal, it carries no fields.
type CheckPredecessorResponse struct{}

func (CheckPredecessorResponse) Tag() Tag              { return TagCheckPredecessorResponse }
func (CheckPredecessorResponse) encodeBody(*bytes.Buffer) {}

func encodeNode(buf *bytes.Buffer, n ring.Node) {
	var id [8]byte
	binary.BigEndian.PutUint64(id[:], uint64(n.ID))
	buf.Write(id[:])
	var ip4 [4]byte
	if v := n.IP.To4(); v != nil {
		copy(ip4[:], v)
	}
	buf.Write(ip4[:])
	var port [2]byte
	binary.BigEndian.PutUint16(port[:], n.Port)
	buf.Write(port[:])
}

func decodeNode(r *bytes.Reader) (ring.Node, error) {
	raw := make([]byte, nodeLen)
	if _, err := readFull(r, raw); err != nil {
		return ring.Node{}, err
	}
	id := ring.ID(binary.BigEndian.Uint64(raw[0:8]))
	ip := net.IPv4(raw[8], raw[9], raw[10], raw[11])
	port := binary.BigEndian.Uint16(raw[12:14])
	return ring.Node{ID: id, IP: ip.To4(), Port: port}, nil
}

// encodeOptionalNode prefixes the node with a presence byte since the
// field "may be empty" (e.g. GetPredecessorResponse before any NOTIFY).
func encodeOptionalNode(buf *bytes.Buffer, n ring.Node) {
	if n.IsZero() {
		buf.WriteByte(0)
		return
	}
	buf.WriteByte(1)
	encodeNode(buf, n)
}

func decodeOptionalNode(r *bytes.Reader) (ring.Node, error) {
	present, err := r.ReadByte()
	if err != nil {
		return ring.Node{}, chorderr.MalformedFrame
	}
	if present == 0 {
		return ring.Node{}, nil
	}
	return decodeNode(r)
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	n, err := r.Read(buf)
	if err != nil || n != len(buf) {
		return n, chorderr.MalformedFrame
	}
	return n, nil
}

// EncodePacket renders msg into a complete length-prefixed UDP datagram.
func EncodePacket(correlationID uint64, msg Message) []byte {
	var payload bytes.Buffer
	var hdr [headerLen]byte
	binary.BigEndian.PutUint16(hdr[0:2], Version)
	hdr[2] = byte(msg.Tag())
	binary.BigEndian.PutUint64(hdr[3:11], correlationID)
	payload.Write(hdr[:])
	msg.encodeBody(&payload)

	out := make([]byte, 8+payload.Len())
	binary.BigEndian.PutUint64(out[0:8], uint64(payload.Len()))
	copy(out[8:], payload.Bytes())
	return out
}

// DecodePacket parses a received UDP datagram into its correlation id,
// tag, and typed Message. It returns chorderr.MalformedFrame on any
// length mismatch or unrecognized tag, per spec §4.2/§7 — callers treat
// that as "drop the datagram", never as fatal.
func DecodePacket(data []byte) (correlationID uint64, msg Message, err error) {
	if len(data) < 8 {
		return 0, nil, chorderr.MalformedFrame
	}
	declared := binary.BigEndian.Uint64(data[0:8])
	payload := data[8:]
	if uint64(len(payload)) != declared {
		return 0, nil, chorderr.MalformedFrame
	}
	if len(payload) < headerLen {
		return 0, nil, chorderr.MalformedFrame
	}
	version := binary.BigEndian.Uint16(payload[0:2])
	if version != Version {
		return 0, nil, chorderr.MalformedFrame
	}
	tag := Tag(payload[2])
	correlationID = binary.BigEndian.Uint64(payload[3:11])
	r := bytes.NewReader(payload[11:])

	switch tag {
	case TagNotify:
		n, err := decodeNode(r)
		if err != nil {
			return 0, nil, err
		}
		msg = Notify{Node: n}
	case TagGetPredecessorRequest:
		msg = GetPredecessorRequest{}
	case TagGetPredecessorResponse:
		n, err := decodeOptionalNode(r)
		if err != nil {
			return 0, nil, err
		}
		msg = GetPredecessorResponse{Node: n}
	case TagGetSuccessorListRequest:
		msg = GetSuccessorListRequest{}
	case TagGetSuccessorListResponse:
		var countBuf [2]byte
		if _, err := readFull(r, countBuf[:]); err != nil {
			return 0, nil, err
		}
		count := binary.BigEndian.Uint16(countBuf[:])
		succs := make([]ring.Node, 0, count)
		for i := uint16(0); i < count; i++ {
			n, err := decodeNode(r)
			if err != nil {
				return 0, nil, err
			}
			succs = append(succs, n)
		}
		msg = GetSuccessorListResponse{Successors: succs}
	case TagStartFindSuccessorRequest:
		var keyBuf [8]byte
		if _, err := readFull(r, keyBuf[:]); err != nil {
			return 0, nil, err
		}
		msg = StartFindSuccessorRequest{Key: ring.ID(binary.BigEndian.Uint64(keyBuf[:]))}
	case TagStartFindSuccessorResponse:
		n, err := decodeNode(r)
		if err != nil {
			return 0, nil, err
		}
		msg = StartFindSuccessorResponse{Node: n}
	case TagCheckPredecessorRequest:
		msg = CheckPredecessorRequest{}
	case TagCheckPredecessorResponse:
		msg = CheckPredecessorResponse{}
	default:
		return 0, nil, chorderr.MalformedFrame
	}
	return correlationID, msg, nil
}
