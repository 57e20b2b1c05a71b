// Package panel broadcasts composed frames to websocket clients standing in
// for the two LED matrices, and accepts tilt readings back from them.
package panel

import (
	"errors"
	"fmt"

	"github.com/san-kum/sandglass/internal/frame"
)

// MessageSize is one address byte followed by a frame.
const MessageSize = 1 + frame.Size

var ErrShortMessage = errors.New("panel: short message")

func Encode(addr uint8, f frame.Frame) []byte {
	b := make([]byte, MessageSize)
	b[0] = addr
	copy(b[1:], f[:])
	return b
}

func Decode(b []byte) (uint8, frame.Frame, error) {
	var f frame.Frame
	if len(b) != MessageSize {
		return 0, f, fmt.Errorf("%w: %d bytes", ErrShortMessage, len(b))
	}
	copy(f[:], b[1:])
	return b[0], f, nil
}
