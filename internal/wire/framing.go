package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const LengthPrefixSize = 4

// DefaultMaxFrameBytes bounds the allocation a single length prefix may request.
const DefaultMaxFrameBytes = 64 << 20

var ErrFrameTooLarge = errors.New("frame exceeds size limit")

// AppendFrame appends the length-prefixed encoding of payload to dst.
func AppendFrame(dst, payload []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...)
}

// WriteFrame writes prefix and payload with a single Write call.
// Callers sharing w between goroutines must serialize calls themselves.
func WriteFrame(w io.Writer, payload []byte) error {
	if uint64(len(payload)) > math.MaxUint32 {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	buf := AppendFrame(make([]byte, 0, LengthPrefixSize+len(payload)), payload)
	_, err := w.Write(buf)
	return err
}

// ReadFrame blocks until a whole frame is read.
//
// It returns io.EOF when the stream ends before a complete length prefix,
// io.ErrUnexpectedEOF when it ends inside the payload and ErrFrameTooLarge
// when the prefix exceeds maxBytes (maxBytes <= 0 uses DefaultMaxFrameBytes).
// ErrFrameTooLarge leaves the stream unsynchronized; the connection must be dropped.
func ReadFrame(r io.Reader, maxBytes int) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFrameBytes
	}
	var hdr [LengthPrefixSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if uint64(n) > uint64(maxBytes) {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, n, maxBytes)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}
