package game

import (
	"testing"
	"time"

	"deepmine/pkg/core"
	"deepmine/pkg/types"
)

func TestValidateDig(t *testing.T) {
	now := time.Now()
	p := testPlayer()
	p.X, p.Y = 10, 5

	if code := ValidateDig(p, 10, 6, now); code != "" {
		t.Fatalf("adjacent dig rejected: %s", code)
	}
	if code := ValidateDig(p, 11, 4, now); code != "" {
		t.Fatalf("diagonal dig rejected: %s", code)
	}
	if code := ValidateDig(p, 12, 5, now); code != types.ErrNotAdjacent {
		t.Fatalf("dx=2 dig gave %q, want NOT_ADJACENT", code)
	}

	p.IsStunned = true
	p.StunEndTime = now.Add(time.Second)
	if code := ValidateDig(p, 10, 6, now); code != types.ErrStunned {
		t.Fatalf("stunned dig gave %q", code)
	}
	// An expired stun no longer blocks.
	if code := ValidateDig(p, 10, 6, now.Add(2*time.Second)); code != "" {
		t.Fatalf("expired stun still blocks: %s", code)
	}
}

func TestValidateDigDepthLimit(t *testing.T) {
	now := time.Now()
	p := testPlayer()
	p.X, p.Y = 10, 100 // tier 1 helmet caps at 100
	if code := ValidateDig(p, 10, 101, now); code != types.ErrDepthLimit {
		t.Fatalf("dig past helmet cap gave %q", code)
	}
	p.Equipment.Helmet = 2
	if code := ValidateDig(p, 10, 101, now); code != "" {
		t.Fatalf("upgraded helmet still blocked: %s", code)
	}
}

func TestRollLootDrawCount(t *testing.T) {
	// Every destruction must consume exactly two draws, hit or miss,
	// so the loot stream stays aligned across servers.
	rng := core.LootStream(777)
	layer := LayerAt(0)
	for i := 0; i < 50; i++ {
		before := rng.Index()
		RollLoot(layer, rng)
		if rng.Index()-before != 2 {
			t.Fatalf("roll %d consumed %d draws", i, rng.Index()-before)
		}
	}
}

func TestRollLootRespectsTable(t *testing.T) {
	rng := core.LootStream(12345)
	layer := LayerAt(1) // Topsoil: dirt, clay, copper_ore, lost_coins
	valid := map[types.ItemType]bool{
		types.ItemDirt: true, types.ItemClay: true,
		types.ItemCopperOre: true, types.ItemLostCoins: true,
	}
	drops := 0
	for i := 0; i < 1000; i++ {
		item, ok := RollLoot(layer, rng)
		if !ok {
			continue
		}
		drops++
		if !valid[item] {
			t.Fatalf("topsoil dropped %q", item)
		}
	}
	// DropChance 0.30 over 1000 rolls; allow generous slack.
	if drops < 200 || drops > 400 {
		t.Fatalf("drop count %d implausible for 30%% chance", drops)
	}
}

func TestWeightedPickBuckets(t *testing.T) {
	loot := []LootEntry{{types.ItemDirt, 60}, {types.ItemClay, 25}, {types.ItemCopperOre, 10}, {types.ItemLostCoins, 5}}
	cases := []struct {
		draw float64
		want types.ItemType
	}{
		{0.0, types.ItemDirt}, {0.599, types.ItemDirt},
		{0.60, types.ItemClay}, {0.849, types.ItemClay},
		{0.85, types.ItemCopperOre}, {0.949, types.ItemCopperOre},
		{0.95, types.ItemLostCoins}, {0.999, types.ItemLostCoins},
	}
	for _, c := range cases {
		if got := WeightedPick(loot, c.draw); got != c.want {
			t.Errorf("WeightedPick(%v) = %q, want %q", c.draw, got, c.want)
		}
	}
}
