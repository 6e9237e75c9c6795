package imu

import (
	"encoding/binary"
	"math"
	"testing"
)

func encodeFrame(t *testing.T, positionX, velocityX, accelX float32) []byte {
	t.Helper()
	payload := make([]byte, frameLen-2)
	binary.BigEndian.PutUint32(payload[0:4], math.Float32bits(positionX))
	binary.BigEndian.PutUint32(payload[4:8], math.Float32bits(velocityX))
	binary.BigEndian.PutUint32(payload[8:12], math.Float32bits(accelX))
	return append(payload, crcHelper(payload)...)
}

func TestDecodeFrameRoundTrip(t *testing.T) {
	frame := encodeFrame(t, 1.5, -2.25, 9.8)
	px, vx, ax, err := decodeFrame(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if px != 1.5 || vx != -2.25 || math.Abs(ax-9.8) > 1e-4 {
		t.Fatalf("decode mismatch: got %v %v %v", px, vx, ax)
	}
}

func TestDecodeFrameBadCRC(t *testing.T) {
	frame := encodeFrame(t, 1, 2, 3)
	frame[len(frame)-1] ^= 0xFF
	if _, _, _, err := decodeFrame(frame); err != ErrBadCRC {
		t.Fatalf("expected ErrBadCRC, got %v", err)
	}
}

func TestDecodeFrameShort(t *testing.T) {
	if _, _, _, err := decodeFrame([]byte{1, 2, 3}); err != ErrShortFrame {
		t.Fatalf("expected ErrShortFrame, got %v", err)
	}
}
