// File: wire/padding.go
// Package wire implements the frame codec and padded-buffer ABI that
// sits between the multiplexer and the application callback.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Broadcast payloads travel the same padded-buffer contract the
// original libwebsockets used: PrePadding bytes of writable slack
// before the payload and PostPadding bytes after it, reserved for a
// framing header/trailer written in place by downstream code.

package wire

const (
	// PrePadding is the number of writable bytes reserved before the
	// payload in a PaddedBuffer.
	PrePadding = 16
	// PostPadding is the number of writable bytes reserved after the
	// payload in a PaddedBuffer.
	PostPadding = 16
)

// PaddedBuffer is a payload buffer surrounded by fixed pre/post slack.
// It is part of the stable ABI of broadcast/write buffers: a payload
// shorter than PrePadding+len(payload)+PostPadding is a contract
// violation and WrapPadded refuses to wrap one.
type PaddedBuffer struct {
	raw []byte
	n   int
}

// NewPaddedBuffer copies payload into a freshly allocated padded
// buffer.
func NewPaddedBuffer(payload []byte) *PaddedBuffer {
	raw := make([]byte, PrePadding+len(payload)+PostPadding)
	copy(raw[PrePadding:], payload)
	return &PaddedBuffer{raw: raw, n: len(payload)}
}

// WrapPadded validates that raw already carries PrePadding/PostPadding
// slack around the payload region [PrePadding, PrePadding+n) and wraps
// it without copying. Callers that build their own padded buffers (for
// example to avoid an allocation per broadcast) use this entry point.
func WrapPadded(raw []byte, n int) (*PaddedBuffer, error) {
	if len(raw) < PrePadding+n+PostPadding {
		return nil, ErrBufferNotPadded
	}
	return &PaddedBuffer{raw: raw, n: n}, nil
}

// Payload returns the payload region, excluding the pre/post slack.
func (b *PaddedBuffer) Payload() []byte {
	return b.raw[PrePadding : PrePadding+b.n]
}

// Pre returns the writable slack before the payload.
func (b *PaddedBuffer) Pre() []byte {
	return b.raw[:PrePadding]
}

// Post returns the writable slack after the payload.
func (b *PaddedBuffer) Post() []byte {
	return b.raw[PrePadding+b.n:]
}

// Raw returns the full underlying buffer (pre + payload + post).
func (b *PaddedBuffer) Raw() []byte {
	return b.raw
}
