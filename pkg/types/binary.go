package types

import (
	"encoding/binary"
	"fmt"
	"math"
)

// The three highest-frequency messages in each direction travel as
// compact binary frames: one opcode byte followed by a little-endian
// payload. Everything else stays JSON.

const (
	OpMove              = 0x01 // client->server: f32 x, f32 y
	OpDig               = 0x02 // client->server: i16 x, i16 y
	OpBlockUpdate       = 0x03 // server->client: i16 x, i16 y, u8 hp, u8 maxHp
	OpBlockDestroyed    = 0x04 // server->client: i16 x, i16 y
	OpOtherPlayerUpdate = 0x05 // server->client: u8 len, id, f32 x, f32 y, u8 action
)

// Peer action indicators for OpOtherPlayerUpdate.
const (
	ActionIdle    uint8 = 0
	ActionWalking uint8 = 1
	ActionDigging uint8 = 2
)

// DecodeBinaryCommand parses an inbound binary frame (opcodes 0x01, 0x02).
func DecodeBinaryCommand(frame []byte) (Command, error) {
	if len(frame) == 0 {
		return nil, fmt.Errorf("%s: empty binary frame", ErrInvalidMessage)
	}
	switch frame[0] {
	case OpMove:
		if len(frame) != 9 {
			return nil, fmt.Errorf("%s: move frame is %d bytes", ErrInvalidMessage, len(frame))
		}
		x := math.Float32frombits(binary.LittleEndian.Uint32(frame[1:5]))
		y := math.Float32frombits(binary.LittleEndian.Uint32(frame[5:9]))
		return MoveCmd{X: float64(x), Y: float64(y)}, nil
	case OpDig:
		if len(frame) != 5 {
			return nil, fmt.Errorf("%s: dig frame is %d bytes", ErrInvalidMessage, len(frame))
		}
		x := int(int16(binary.LittleEndian.Uint16(frame[1:3])))
		y := int(int16(binary.LittleEndian.Uint16(frame[3:5])))
		return DigCmd{X: x, Y: y}, nil
	}
	return nil, fmt.Errorf("%s: opcode 0x%02x", ErrUnknownType, frame[0])
}

// EncodeBlockUpdate packs opcode 0x03. HP values are clamped to the u8
// payload range; fractional hp rounds up so a damaged block never reads
// as destroyed early.
func EncodeBlockUpdate(x, y int, hp, maxHP float64) []byte {
	out := make([]byte, 7)
	out[0] = OpBlockUpdate
	binary.LittleEndian.PutUint16(out[1:3], uint16(int16(x)))
	binary.LittleEndian.PutUint16(out[3:5], uint16(int16(y)))
	out[5] = clampU8(math.Ceil(hp))
	out[6] = clampU8(math.Ceil(maxHP))
	return out
}

// EncodeBlockDestroyed packs opcode 0x04.
func EncodeBlockDestroyed(x, y int) []byte {
	out := make([]byte, 5)
	out[0] = OpBlockDestroyed
	binary.LittleEndian.PutUint16(out[1:3], uint16(int16(x)))
	binary.LittleEndian.PutUint16(out[3:5], uint16(int16(y)))
	return out
}

// EncodeOtherPlayerUpdate packs opcode 0x05.
func EncodeOtherPlayerUpdate(playerID string, x, y float64, action uint8) []byte {
	id := []byte(playerID)
	if len(id) > 255 {
		id = id[:255]
	}
	out := make([]byte, 2+len(id)+9)
	out[0] = OpOtherPlayerUpdate
	out[1] = uint8(len(id))
	copy(out[2:], id)
	off := 2 + len(id)
	binary.LittleEndian.PutUint32(out[off:off+4], math.Float32bits(float32(x)))
	binary.LittleEndian.PutUint32(out[off+4:off+8], math.Float32bits(float32(y)))
	out[off+8] = action
	return out
}

func clampU8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
