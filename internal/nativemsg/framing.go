// Package nativemsg implements the browser native messaging wire format:
// each message is a 32-bit length in native byte order followed by that
// many bytes of UTF-8 JSON.
package nativemsg

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const (
	// MaxIncoming is the largest message a browser may send to a host.
	MaxIncoming = 64 << 20
	// MaxOutgoing is the largest message a host may send to a browser.
	MaxOutgoing = 1 << 20
)

var (
	ErrTooLarge  = errors.New("native message too large")
	ErrTruncated = errors.New("native message truncated")
)

// ReadMessage reads one raw message. It returns io.EOF when the stream ends
// cleanly between messages.
func ReadMessage(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncated
		}
		return nil, err
	}
	n := binary.NativeEndian.Uint32(hdr[:])
	if n > MaxIncoming {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncated
		}
		return nil, err
	}
	return buf, nil
}

// WriteMessage writes payload as one framed message.
func WriteMessage(w io.Writer, payload []byte) error {
	if len(payload) > MaxOutgoing {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, len(payload))
	}
	var hdr [4]byte
	binary.NativeEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// WriteJSON encodes v and writes it as one framed message.
func WriteJSON(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return WriteMessage(w, b)
}
