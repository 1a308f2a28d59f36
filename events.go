package main

import (
	"time"

	"deepmine/pkg/game"
	"deepmine/pkg/types"
)

// Random events roll once per destroyed block, in priority order:
// treasure chest, underground spring, cave-in, gas pocket, rock slide.
// The first roll that lands wins the block; at most one event fires.
// All entropy comes from the shard's event stream.

func (s *Shard) rollEventsLocked(sp *shardPlayer, x, y int, now time.Time) {
	switch {
	case s.eventRNG.Next() < game.TreasureChestChance:
		s.eventTreasureChest(sp, x, y)
	case s.eventRNG.Next() < game.UndergroundSpringChance:
		s.eventSpring(sp, x, y)
	case s.eventRNG.Next() < game.CaveInChance:
		s.eventCaveIn(sp, now)
	case s.eventRNG.Next() < game.GasPocketChance:
		s.eventGasPocket(sp, now)
	case s.eventRNG.Next() < game.RockSlideChance:
		s.eventRockSlide(sp)
	}
}

// eventTreasureChest always yields one drop from the current layer and
// has an even chance of a bonus drop from the layer below.
func (s *Shard) eventTreasureChest(sp *shardPlayer, x, y int) {
	layer := game.LayerAt(y)
	items := []types.ItemType{game.WeightedPick(layer.Loot, s.eventRNG.Next())}
	if s.eventRNG.Next() < 0.5 {
		below := game.LayerBelow(y)
		items = append(items, game.WeightedPick(below.Loot, s.eventRNG.Next()))
	}

	var ids []string
	for _, item := range items {
		d := s.spawnDropLocked(item, float64(x), float64(y))
		ids = append(ids, d.ID)
		s.broadcastLocked("", dropSpawnedMsg(d))
	}
	s.broadcastLocked("", types.EventMsg{Type: "event", EventType: "treasure_chest",
		Detail: map[string]interface{}{"x": x, "y": y, "drops": ids, "playerId": sp.state.ID}})
}

// eventSpring washes out 3 to 5 drops from the current layer table.
func (s *Shard) eventSpring(sp *shardPlayer, x, y int) {
	layer := game.LayerAt(y)
	n := s.eventRNG.IntRange(3, 5)
	var ids []string
	for i := 0; i < n; i++ {
		d := s.spawnDropLocked(game.WeightedPick(layer.Loot, s.eventRNG.Next()), float64(x), float64(y))
		ids = append(ids, d.ID)
		s.broadcastLocked("", dropSpawnedMsg(d))
	}
	s.broadcastLocked("", types.EventMsg{Type: "event", EventType: "underground_spring",
		Detail: map[string]interface{}{"x": x, "y": y, "drops": ids, "playerId": sp.state.ID}})
}

// eventCaveIn pushes the victim up and spills items unless the vest
// protection roll saves them.
func (s *Shard) eventCaveIn(sp *shardPlayer, now time.Time) {
	p := sp.state
	if s.eventRNG.Next() < game.VestProtection(p.Equipment.Vest) {
		s.sendLocked(sp, types.EventMsg{Type: "event", EventType: "cave_in",
			Detail: map[string]interface{}{"protected": true}})
		return
	}

	newY := p.Y - game.CaveInPushDistance
	if newY < 0 {
		newY = 0
	}
	p.Y = newY
	p.IsOnSurface = newY < 1
	lost := game.RemoveRandomItems(p, game.CaveInItemsLost, s.eventRNG.Intn)

	lostNames := make([]string, len(lost))
	for i, it := range lost {
		lostNames[i] = string(it)
	}
	s.sendLocked(sp, types.EventMsg{Type: "event", EventType: "cave_in",
		Detail: map[string]interface{}{"protected": false, "pushedToY": newY, "itemsLost": lostNames}})

	for _, reveal := range s.fog.Move(p.ID, p.X, p.Y, s.torchRadius(p, now)) {
		s.sendLocked(sp, reveal)
	}
	s.sendStateLocked(sp)
	s.broadcastBinaryLocked(p.ID, types.EncodeOtherPlayerUpdate(p.ID, p.X, p.Y, types.ActionIdle))
}

// eventGasPocket blanks the torch for its duration. High-tier torches
// burn hot enough to shrug it off.
func (s *Shard) eventGasPocket(sp *shardPlayer, now time.Time) {
	p := sp.state
	if p.Equipment.Torch >= 4 {
		s.sendLocked(sp, types.EventMsg{Type: "event", EventType: "gas_pocket",
			Detail: map[string]interface{}{"resisted": true}})
		return
	}
	p.TorchBlankedUntil = now.Add(game.GasPocketDurationMs * time.Millisecond)
	s.sendLocked(sp, types.EventMsg{Type: "event", EventType: "gas_pocket",
		Detail: map[string]interface{}{"resisted": false, "durationMs": game.GasPocketDurationMs}})
}

// eventRockSlide hardens the next stretch of blocks. High-tier helmets
// deflect the debris entirely.
func (s *Shard) eventRockSlide(sp *shardPlayer) {
	p := sp.state
	if p.Equipment.Helmet >= 4 {
		s.sendLocked(sp, types.EventMsg{Type: "event", EventType: "rock_slide",
			Detail: map[string]interface{}{"resisted": true}})
		return
	}
	p.RockSlideBlocksLeft = game.RockSlideDurationBlocks
	s.sendLocked(sp, types.EventMsg{Type: "event", EventType: "rock_slide",
		Detail: map[string]interface{}{"resisted": false, "blocks": game.RockSlideDurationBlocks}})
}
