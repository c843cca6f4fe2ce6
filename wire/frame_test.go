package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestFramingRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		typ := MessageType(rapid.Byte().Draw(t, "type"))
		payload := rapid.SliceOfN(rapid.Byte(), 0, MaxPayload).Draw(t, "payload")

		encoded, err := Encode(typ, payload)
		assert.NoError(t, err)

		frames := ParseAll(encoded)
		if assert.Len(t, frames, 1, "expected exactly one frame") {
			assert.Equal(t, typ, frames[0].Type)
			assert.Equal(t, payload, frames[0].Payload)
		}
	})
}

func TestFramingResync(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p1 := rapid.SliceOfN(rapid.Byte(), 0, 16).Draw(t, "payload1")
		p2 := rapid.SliceOfN(rapid.Byte(), 0, 16).Draw(t, "payload2")
		typ1 := MessageType(rapid.Byte().Draw(t, "type1"))
		typ2 := MessageType(rapid.Byte().Draw(t, "type2"))

		f1, _ := Encode(typ1, p1)
		f2, _ := Encode(typ2, p2)

		// Garbage made of a byte that never equals Sync, so it can
		// never be mistaken for a frame start.
		garbageByte := byte(Sync + 1)
		garbage := make([]byte, rapid.IntRange(0, 8).Draw(t, "garbageLen"))
		for i := range garbage {
			garbage[i] = garbageByte
		}

		var stream []byte
		stream = append(stream, garbage...)
		stream = append(stream, f1...)
		stream = append(stream, garbage...)
		stream = append(stream, f2...)

		frames := ParseAll(stream)
		if assert.Len(t, frames, 2) {
			assert.Equal(t, typ1, frames[0].Type)
			assert.Equal(t, p1, frames[0].Payload)
			assert.Equal(t, typ2, frames[1].Type)
			assert.Equal(t, p2, frames[1].Payload)
		}
	})
}

func TestCrcSensitivity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		typ := MessageType(rapid.Byte().Draw(t, "type"))
		payload := rapid.SliceOfN(rapid.Byte(), 1, MaxPayload).Draw(t, "payload")
		encoded, err := Encode(typ, payload)
		assert.NoError(t, err)

		// Flip one bit somewhere in TYPE||PAYLOAD||CRC (offsets 2..end).
		bit := rapid.IntRange(0, (len(encoded)-2)*8-1).Draw(t, "bit")
		idx := 2 + bit/8
		mask := byte(1) << (bit % 8)
		encoded[idx] ^= mask

		var p Parser
		var gotErr error
		var gotFrame *Frame
		for _, b := range encoded {
			r := p.Feed(b)
			if r.Frame != nil {
				gotFrame = r.Frame
			}
			if r.Err != nil {
				gotErr = r.Err
			}
		}
		assert.Nil(t, gotFrame, "a single-bit flip must not still parse as a valid frame")
		assert.Equal(t, ErrCrcMismatch, gotErr)
	})
}

func TestEncodePayloadTooLarge(t *testing.T) {
	_, err := Encode(GetFrame, make([]byte, MaxPayload+1))
	if err != ErrPayloadTooLarge {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestParserHandlesShortLength(t *testing.T) {
	// LEN < 2 must resync without emitting a frame.
	var p Parser
	var frame *Frame
	for _, b := range []byte{Sync, 0x01, 0xAA, Sync, 0x02, byte(GetState), crc8([]byte{byte(GetState)})} {
		if r := p.Feed(b); r.Frame != nil {
			frame = r.Frame
		}
	}
	if frame == nil || frame.Type != GetState {
		t.Fatalf("expected to recover GET_STATE frame after a too-short length byte, got %v", frame)
	}
}
