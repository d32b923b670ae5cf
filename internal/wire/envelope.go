// Package wire implements the binary envelope-plus-payload wire codec:
// a length-prefixed { method string, payload bytes } envelope, with a
// strongly typed payload struct per method name (spec §4.3, §6.1).
//
// Payloads are encoded with encoding/gob, the idiomatic Go analogue of
// the original server's schema-tagged binary serializer (the original
// used protobuf; reproducing that here would require a .proto/protoc
// code-generation step this repository cannot run — see DESIGN.md).
// gob is self-describing the same way: a decoder can reject a payload
// that doesn't match the target struct's shape.
package wire

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
)

// Envelope is one decoded wire message: the method name plus its
// still-encoded payload bytes.
type Envelope struct {
	Method  string
	Payload []byte
}

// CorrelationID is a short, non-cryptographic fingerprint of an
// envelope's (method, payload) pair, for correlating log lines about a
// single message. The session and dispatcher do not currently include
// it in their log lines. Never used for anything security-sensitive.
func (e Envelope) CorrelationID() uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(e.Method)
	_, _ = h.Write(e.Payload)
	return h.Sum64()
}

// Marshal gob-encodes payload and wraps it with method into a single
// length-prefixed frame: uint32(len(method)) | method | uint32(len(payload)) | payload.
func Marshal(method string, payload any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("wire: encode %s payload: %w", method, err)
	}

	out := make([]byte, 0, 4+len(method)+4+buf.Len())
	out = appendUint32Prefixed(out, []byte(method))
	out = appendUint32Prefixed(out, buf.Bytes())
	return out, nil
}

// Unmarshal decodes a single length-prefixed frame into an Envelope.
// Malformed frames return an error; callers should log and drop per
// spec §4.3/§7 rather than terminate the session.
func Unmarshal(frame []byte) (Envelope, error) {
	method, rest, err := readUint32Prefixed(frame)
	if err != nil {
		return Envelope{}, fmt.Errorf("wire: read method: %w", err)
	}
	payload, rest, err := readUint32Prefixed(rest)
	if err != nil {
		return Envelope{}, fmt.Errorf("wire: read payload: %w", err)
	}
	if len(rest) != 0 {
		return Envelope{}, fmt.Errorf("wire: %d trailing bytes after envelope", len(rest))
	}
	return Envelope{Method: string(method), Payload: payload}, nil
}

// DecodePayload gob-decodes an envelope's payload bytes into dst, which
// must be a pointer to the payload struct matching the envelope's method.
func DecodePayload(payload []byte, dst any) error {
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(dst); err != nil {
		return fmt.Errorf("wire: decode payload: %w", err)
	}
	return nil
}

func appendUint32Prefixed(dst []byte, data []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	dst = append(dst, lenBuf[:]...)
	dst = append(dst, data...)
	return dst
}

func readUint32Prefixed(src []byte) (data []byte, rest []byte, err error) {
	if len(src) < 4 {
		return nil, nil, io.ErrUnexpectedEOF
	}
	n := binary.BigEndian.Uint32(src[:4])
	src = src[4:]
	if uint64(len(src)) < uint64(n) {
		return nil, nil, io.ErrUnexpectedEOF
	}
	return src[:n], src[n:], nil
}

// CloseDirective is the special payload form (spec §4.4): a send-channel
// payload beginning with a single NUL byte directs the writer to close
// the connection with a policy-violation code, the rest of the bytes
// being the reason text.
type CloseDirective struct {
	Reason string
}

// EncodeCloseDirective builds the raw bytes a session writer recognizes
// as a close-with-reason directive: a leading NUL byte followed by the
// reason text.
func EncodeCloseDirective(reason string) []byte {
	out := make([]byte, 0, 1+len(reason))
	out = append(out, 0)
	out = append(out, reason...)
	return out
}

// IsCloseDirective reports whether raw is a close-with-reason directive
// and, if so, returns the reason text. A directive is a single leading
// NUL byte, i.e. one not followed by a second NUL; a frame built by
// Marshal begins with at least two NUL bytes (the high bytes of its
// big-endian method-length prefix), so it is never taken for one.
func IsCloseDirective(raw []byte) (reason string, ok bool) {
	if len(raw) == 0 || raw[0] != 0 {
		return "", false
	}
	if len(raw) > 1 && raw[1] == 0 {
		return "", false
	}
	return string(raw[1:]), true
}
