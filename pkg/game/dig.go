package game

import (
	"math"
	"time"

	"deepmine/pkg/core"
	"deepmine/pkg/types"
)

// --- Dig Validation ---

// ValidateDig runs the pre-block checks in order: stun, adjacency,
// helmet depth cap. An empty string means the dig may proceed to the
// block fetch.
func ValidateDig(p *types.Player, x, y int, now time.Time) string {
	if p.IsStunned && p.StunEndTime.After(now) {
		return types.ErrStunned
	}
	dx := math.Abs(float64(x) - p.X)
	dy := math.Abs(float64(y) - p.Y)
	if math.Max(dx, dy) > 1 {
		return types.ErrNotAdjacent
	}
	if y > HelmetMaxDepth(p.Equipment.Helmet) {
		return types.ErrDepthLimit
	}
	return ""
}

// --- Loot ---

// RollLoot consumes the loot stream for one destroyed block: first a
// drop-chance gate, then a weighted pick from the layer table. Both
// draws happen even when the gate fails so every destruction advances
// the stream by the same amount.
func RollLoot(layer *Layer, rng *core.Stream) (types.ItemType, bool) {
	gate := rng.Next()
	pick := rng.Next()
	if gate >= layer.DropChance {
		return "", false
	}
	return WeightedPick(layer.Loot, pick), true
}

// WeightedPick maps a draw in [0,1) onto the weight table.
func WeightedPick(loot []LootEntry, draw float64) types.ItemType {
	total := 0
	for _, e := range loot {
		total += e.Weight
	}
	if total == 0 {
		return ""
	}
	target := draw * float64(total)
	acc := 0.0
	for _, e := range loot {
		acc += float64(e.Weight)
		if target < acc {
			return e.Item
		}
	}
	return loot[len(loot)-1].Item
}
