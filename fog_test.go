package main

import (
	"testing"

	"deepmine/pkg/game"
	"deepmine/pkg/types"
)

// plantHazard forces a TNT block at (x, y) in the test world.
func plantHazard(w *WorldStore, x, y int) {
	rec := w.getChunk(y / game.ChunkHeight)
	rec.data[x*game.ChunkHeight+y%game.ChunkHeight].Type = types.BlockTNT
}

func TestFogRevealsOnApproach(t *testing.T) {
	setupTestEnv(t)
	w := NewWorldStore(5, newFakeClock())
	fog := NewFogOfWar(w)
	plantHazard(w, 100, 100)

	// Spawn out of range: nothing revealed.
	reveals := fog.AddPlayer("p1", 100, 90, 3)
	for _, r := range reveals {
		if r.X == 100 && r.Y == 100 {
			t.Fatal("revealed a hazard 10 blocks away with radius 3")
		}
	}

	// Walk into range.
	reveals = fog.Move("p1", 100, 98, 3)
	found := false
	for _, r := range reveals {
		if r.X == 100 && r.Y == 100 {
			found = true
			if r.BlockType != types.BlockTNT {
				t.Fatalf("reveal carried type %q", r.BlockType)
			}
		}
	}
	if !found {
		t.Fatal("hazard inside the torch disk not revealed")
	}

	// Leave and return: the reveal never repeats.
	fog.Move("p1", 100, 90, 3)
	for _, r := range fog.Move("p1", 100, 98, 3) {
		if r.X == 100 && r.Y == 100 {
			t.Fatal("hazard revealed twice")
		}
	}
	if !fog.Revealed("p1", 100, 100) {
		t.Fatal("revealed set forgot the hazard")
	}
}

func TestFogBlankedTorchRevealsNothing(t *testing.T) {
	setupTestEnv(t)
	w := NewWorldStore(5, newFakeClock())
	fog := NewFogOfWar(w)
	plantHazard(w, 50, 50)

	fog.AddPlayer("p1", 50, 40, 3)
	if got := fog.Move("p1", 50, 49, 0); len(got) != 0 {
		t.Fatalf("blanked torch revealed %d blocks", len(got))
	}
	// Torch relit next to the hazard: the wider disk rescans.
	found := false
	for _, r := range fog.Move("p1", 50, 49, 3) {
		if r.X == 50 && r.Y == 50 {
			found = true
		}
	}
	if !found {
		t.Fatal("relit torch missed the adjacent hazard")
	}
}

func TestFogWiderTorchRescans(t *testing.T) {
	setupTestEnv(t)
	w := NewWorldStore(5, newFakeClock())
	fog := NewFogOfWar(w)
	plantHazard(w, 50, 55)

	fog.AddPlayer("p1", 50, 50, 3) // hazard at distance 5, out of range
	found := false
	for _, r := range fog.Move("p1", 50, 50, 6) { // torch upgrade, no movement
		if r.X == 50 && r.Y == 55 {
			found = true
		}
	}
	if !found {
		t.Fatal("radius increase did not reveal the hazard")
	}
}

func TestFogMaskBlockType(t *testing.T) {
	setupTestEnv(t)
	w := NewWorldStore(5, newFakeClock())
	fog := NewFogOfWar(w)
	fog.AddPlayer("p1", 10, 10, 3)

	if got := fog.MaskBlockType("p1", 11, 10, types.BlockTNT); got != types.BlockTNT {
		t.Fatalf("adjacent hazard masked to %q", got)
	}
	if got := fog.MaskBlockType("p1", 10, 30, types.BlockTNT); got != types.BlockUnknown {
		t.Fatalf("distant hazard sent as %q", got)
	}
	if got := fog.MaskBlockType("p1", 10, 30, types.BlockDirt); got != types.BlockDirt {
		t.Fatalf("non-hazard masked to %q", got)
	}
	if got := fog.MaskBlockType("ghost", 10, 10, types.BlockTNT); got != types.BlockUnknown {
		t.Fatalf("unknown player saw %q", got)
	}
}

func TestFogRevealsSurviveTeleport(t *testing.T) {
	setupTestEnv(t)
	w := NewWorldStore(5, newFakeClock())
	fog := NewFogOfWar(w)
	plantHazard(w, 20, 20)

	fog.Move("p1", 20, 19, 3)
	if !fog.Revealed("p1", 20, 20) {
		t.Fatal("setup: hazard not revealed")
	}
	// Teleport to the surface and back next to it.
	fog.AddPlayer("p1", 20, 0, 3)
	for _, r := range fog.AddPlayer("p1", 20, 19, 3) {
		if r.X == 20 && r.Y == 20 {
			t.Fatal("teleport re-revealed a known hazard")
		}
	}
}
