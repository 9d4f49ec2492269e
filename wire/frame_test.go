package wire

import "bytes"

import "testing"

func TestEncodeDecodeFrameRoundTrip(t *testing.T) {
	f := &Frame{IsFinal: true, Opcode: OpcodeText, PayloadLen: 5, Payload: []byte("hello")}

	encoded, err := EncodeFrame(f, false)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, consumed, err := DecodeFrame(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded == nil {
		t.Fatal("expected a complete frame")
	}
	if consumed != len(encoded) {
		t.Errorf("consumed = %d, want %d", consumed, len(encoded))
	}
	if !bytes.Equal(decoded.Payload, []byte("hello")) {
		t.Errorf("payload = %q, want %q", decoded.Payload, "hello")
	}
	if decoded.Opcode != OpcodeText || !decoded.IsFinal {
		t.Errorf("unexpected opcode/fin: %v %v", decoded.Opcode, decoded.IsFinal)
	}
}

func TestDecodeFrameIncomplete(t *testing.T) {
	f := &Frame{IsFinal: true, Opcode: OpcodeBinary, PayloadLen: 200, Payload: bytes.Repeat([]byte{0x42}, 200)}
	encoded, err := EncodeFrame(f, false)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, consumed, err := DecodeFrame(encoded[:len(encoded)-1])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded != nil || consumed != 0 {
		t.Fatalf("expected incomplete-frame signal, got %+v consumed=%d", decoded, consumed)
	}
}

func TestDecodeFrameMasked(t *testing.T) {
	f := &Frame{IsFinal: true, Opcode: OpcodeText, PayloadLen: 3, Payload: []byte("abc")}
	encoded, err := EncodeFrame(f, true)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, _, err := DecodeFrame(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(decoded.Payload, []byte("abc")) {
		t.Errorf("payload = %q, want %q", decoded.Payload, "abc")
	}
}

func TestFrameTooLarge(t *testing.T) {
	f := &Frame{PayloadLen: MaxFramePayload + 1}
	if _, err := EncodeFrame(f, false); err != ErrFrameTooLarge {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestDecodeFrameReservedOpcode(t *testing.T) {
	raw := []byte{0x80 | 0x3, 0x00} // FIN=1, opcode=0x3 (reserved)
	if _, _, err := DecodeFrame(raw); err != ErrReservedOpcode {
		t.Fatalf("expected ErrReservedOpcode, got %v", err)
	}
}

func TestPaddedBufferContract(t *testing.T) {
	pb := NewPaddedBuffer([]byte("x"))
	if len(pb.Pre()) != PrePadding || len(pb.Post()) != PostPadding {
		t.Fatalf("padding sizes wrong: pre=%d post=%d", len(pb.Pre()), len(pb.Post()))
	}
	if string(pb.Payload()) != "x" {
		t.Fatalf("payload = %q, want %q", pb.Payload(), "x")
	}

	if _, err := WrapPadded(make([]byte, 4), 1); err != ErrBufferNotPadded {
		t.Fatalf("expected ErrBufferNotPadded, got %v", err)
	}
}
