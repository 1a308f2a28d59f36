package main

import (
	"deepmine/pkg/game"
	"deepmine/pkg/types"
)

// FogOfWar tracks, per player, which hazards have entered the torch
// radius. The revealed set only grows: once a hazard has been shown it
// stays known, and crossing the radius boundary repeatedly never
// re-emits a reveal. The radius is passed per call so the shard can
// zero it while a gas pocket has the torch blanked.
type FogOfWar struct {
	world   *WorldStore
	players map[string]*fogState
}

type fogState struct {
	x, y     float64
	radius   float64
	revealed map[game.Coord]bool
}

func NewFogOfWar(world *WorldStore) *FogOfWar {
	return &FogOfWar{world: world, players: make(map[string]*fogState)}
}

// AddPlayer registers a player (spawn or teleport) and returns the
// reveals for every hazard already inside the torch disk.
func (f *FogOfWar) AddPlayer(id string, x, y, radius float64) []types.RevealBlockMsg {
	st := &fogState{x: x, y: y, radius: radius, revealed: make(map[game.Coord]bool)}
	if prev, ok := f.players[id]; ok {
		st.revealed = prev.revealed // discovered hazards survive teleports
	}
	f.players[id] = st
	if radius <= 0 {
		return nil
	}
	return f.collect(st, f.world.HazardsNear(x, y, radius))
}

// Move advances a player's position and returns reveals for hazards
// that newly entered the disk. Torch upgrades are picked up through
// the widened radius.
func (f *FogOfWar) Move(id string, x, y, radius float64) []types.RevealBlockMsg {
	st, ok := f.players[id]
	if !ok {
		return f.AddPlayer(id, x, y, radius)
	}
	oldX, oldY, oldRadius := st.x, st.y, st.radius
	st.x, st.y = x, y
	st.radius = radius

	if radius <= 0 {
		return nil
	}
	var candidates []types.Block
	if radius > oldRadius {
		// A widened radius can reveal blocks the old disk never
		// covered regardless of movement; rescan the whole disk.
		candidates = f.world.HazardsNear(x, y, radius)
	} else {
		candidates = f.world.RevealedBlocks(x, y, oldX, oldY, radius)
	}
	return f.collect(st, candidates)
}

func (f *FogOfWar) collect(st *fogState, hazards []types.Block) []types.RevealBlockMsg {
	var out []types.RevealBlockMsg
	for _, b := range hazards {
		key := game.Coord{X: b.X, Y: b.Y}
		if st.revealed[key] {
			continue
		}
		st.revealed[key] = true
		out = append(out, types.RevealBlockMsg{
			Type: "reveal_block", X: b.X, Y: b.Y,
			BlockType: b.Type, HP: b.HP, MaxHP: b.MaxHP,
		})
	}
	return out
}

// MaskBlockType hides a hazard's identity from a player whose torch
// does not currently reach it.
func (f *FogOfWar) MaskBlockType(id string, x, y int, actual types.BlockType) types.BlockType {
	if !actual.IsHazard() {
		return actual
	}
	st, ok := f.players[id]
	if !ok {
		return types.BlockUnknown
	}
	if dist(st.x, st.y, float64(x), float64(y)) > st.radius {
		return types.BlockUnknown
	}
	return actual
}

// Revealed reports whether a player has already seen a hazard.
func (f *FogOfWar) Revealed(id string, x, y int) bool {
	st, ok := f.players[id]
	return ok && st.revealed[game.Coord{X: x, Y: y}]
}

func (f *FogOfWar) RemovePlayer(id string) {
	delete(f.players, id)
}
