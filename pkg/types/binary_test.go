package types

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func TestDecodeMoveFrame(t *testing.T) {
	frame := make([]byte, 9)
	frame[0] = OpMove
	binary.LittleEndian.PutUint32(frame[1:5], math.Float32bits(10.5))
	binary.LittleEndian.PutUint32(frame[5:9], math.Float32bits(33.25))

	cmd, err := DecodeBinaryCommand(frame)
	if err != nil {
		t.Fatal(err)
	}
	move, ok := cmd.(MoveCmd)
	if !ok {
		t.Fatalf("decoded %T", cmd)
	}
	if move.X != 10.5 || move.Y != 33.25 {
		t.Fatalf("move = (%v, %v)", move.X, move.Y)
	}
}

func TestDecodeDigFrame(t *testing.T) {
	frame := []byte{OpDig, 0x2C, 0x01, 0xFE, 0xFF} // x=300, y=-2
	cmd, err := DecodeBinaryCommand(frame)
	if err != nil {
		t.Fatal(err)
	}
	dig := cmd.(DigCmd)
	if dig.X != 300 || dig.Y != -2 {
		t.Fatalf("dig = (%d, %d)", dig.X, dig.Y)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := [][]byte{
		nil,
		{OpMove, 1, 2},          // short move
		{OpDig, 1, 2, 3},        // short dig
		{0x7F, 0, 0, 0, 0},      // unknown opcode
		{OpBlockUpdate, 0, 0},   // server-side opcode inbound
	}
	for _, frame := range cases {
		if _, err := DecodeBinaryCommand(frame); err == nil {
			t.Errorf("frame %v decoded without error", frame)
		}
	}
}

func TestEncodeBlockUpdate(t *testing.T) {
	frame := EncodeBlockUpdate(300, 5, 2.3, 4)
	want := []byte{OpBlockUpdate, 0x2C, 0x01, 0x05, 0x00, 3, 4}
	if !bytes.Equal(frame, want) {
		t.Fatalf("frame = %v, want %v", frame, want)
	}
	// Deep-world hp values clamp into the u8 payload.
	frame = EncodeBlockUpdate(0, 0, 300, 300)
	if frame[5] != 255 || frame[6] != 255 {
		t.Fatalf("clamp failed: %v", frame)
	}
}

func TestEncodeBlockDestroyed(t *testing.T) {
	frame := EncodeBlockDestroyed(10, 1)
	want := []byte{OpBlockDestroyed, 0x0A, 0x00, 0x01, 0x00}
	if !bytes.Equal(frame, want) {
		t.Fatalf("frame = %v, want %v", frame, want)
	}
}

func TestEncodeOtherPlayerUpdate(t *testing.T) {
	frame := EncodeOtherPlayerUpdate("ab", 1, 2, ActionWalking)
	if frame[0] != OpOtherPlayerUpdate || frame[1] != 2 || string(frame[2:4]) != "ab" {
		t.Fatalf("header = %v", frame[:4])
	}
	x := math.Float32frombits(binary.LittleEndian.Uint32(frame[4:8]))
	y := math.Float32frombits(binary.LittleEndian.Uint32(frame[8:12]))
	if x != 1 || y != 2 || frame[12] != ActionWalking {
		t.Fatalf("payload = (%v, %v, %d)", x, y, frame[12])
	}
	if len(frame) != 13 {
		t.Fatalf("frame length = %d", len(frame))
	}
}
