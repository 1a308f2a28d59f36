package main

import (
	"math"
	"sort"
	"time"

	"deepmine/pkg/game"
	"deepmine/pkg/types"
)

// ProcessCommand runs on the shard goroutine and is the only place
// authoritative player/world state is mutated.
func (s *Shard) ProcessCommand(qc QueuedCommand) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp, ok := s.players[qc.PlayerID]
	if !ok {
		return
	}
	if qc.RateLimited {
		s.sendLocked(sp, types.NewError(types.ErrRateLimited, "dig rate exceeded"))
		return
	}
	now := s.clock.Now()

	switch cmd := qc.Cmd.(type) {
	case types.DigCmd:
		s.handleDig(sp, cmd, now)
	case types.MoveCmd:
		s.handleMove(sp, cmd, now)
	case types.CollectItemCmd:
		s.handleCollect(sp, cmd)
	case types.GoSurfaceCmd:
		s.handleGoSurface(sp, now)
	case types.SellCmd:
		s.handleSell(sp, cmd)
	case types.BuyEquipmentCmd:
		s.handleBuyEquipment(sp, cmd, now)
	case types.BuyInventoryUpgradeCmd:
		s.handleBuyInventoryUpgrade(sp)
	case types.SetCheckpointCmd:
		s.handleSetCheckpoint(sp, cmd)
	case types.DescendCmd:
		s.handleDescend(sp, cmd, now)
	case types.ChatCmd:
		s.handleChat(sp, cmd)
	default:
		s.sendLocked(sp, types.NewError(types.ErrInvalidMessage, "command not valid inside a shard"))
	}
}

func (s *Shard) sendLocked(sp *shardPlayer, msg types.Message) {
	if sp.connected() {
		sp.conn.SendJSON(msg)
	}
}

func (s *Shard) sendStateLocked(sp *shardPlayer) {
	s.sendLocked(sp, types.PlayerStateUpdateMsg{Type: "player_state_update", State: sp.state})
}

// --- Digging ---

func (s *Shard) handleDig(sp *shardPlayer, cmd types.DigCmd, now time.Time) {
	p := sp.state
	if code := game.ValidateDig(p, cmd.X, cmd.Y, now); code != "" {
		s.sendLocked(sp, types.NewError(code, ""))
		return
	}
	s.ensureChunk(cmd.Y / game.ChunkHeight)
	block := s.world.GetBlock(cmd.X, cmd.Y)
	if block == nil || block.Type == types.BlockEmpty {
		s.sendLocked(sp, types.NewError(types.ErrNoBlock, ""))
		return
	}

	if block.Type.IsHazard() {
		s.detonateLocked(sp, cmd.X, cmd.Y, now)
		return
	}

	damage := game.ShovelDamage(p.Equipment.Shovel)
	if p.RockSlideBlocksLeft > 0 {
		// Rock slide debuff: blocks read as harder until it wears off.
		damage = math.Max(0.5, damage-game.RockSlideHardnessBonus)
	}
	destroyed, remaining := s.world.DamageBlock(cmd.X, cmd.Y, damage)
	if !destroyed {
		s.broadcastBinaryLocked("", types.EncodeBlockUpdate(cmd.X, cmd.Y, remaining, block.MaxHP))
		return
	}

	p.TotalBlocksMined++
	if p.RockSlideBlocksLeft > 0 {
		p.RockSlideBlocksLeft--
	}

	layer := game.LayerAt(cmd.Y)
	if item, ok := game.RollLoot(layer, s.lootRNG); ok {
		d := s.spawnDropLocked(item, float64(cmd.X), float64(cmd.Y))
		s.broadcastLocked("", types.BlockDestroyedMsg{
			Type: "block_destroyed", X: cmd.X, Y: cmd.Y, Actor: p.ID, Drop: d,
		})
	} else {
		s.broadcastBinaryLocked("", types.EncodeBlockDestroyed(cmd.X, cmd.Y))
	}

	s.rollEventsLocked(sp, cmd.X, cmd.Y, now)
}

// detonateLocked runs the chain engine over a snapshot halo around the
// initiating hazard, then applies the result: block clears, penalty,
// stun and upward launch.
func (s *Shard) detonateLocked(sp *shardPlayer, x, y int, now time.Time) {
	p := sp.state

	const halo = 5
	// The halo may straddle a chunk border; replay persisted mods for
	// every chunk it touches before snapshotting.
	for cy := (y - halo) / game.ChunkHeight; cy <= (y+halo)/game.ChunkHeight; cy++ {
		s.ensureChunk(cy)
	}
	view := make(map[game.Coord]types.BlockType)
	for dx := -halo; dx <= halo; dx++ {
		for dy := -halo; dy <= halo; dy++ {
			b := s.world.GetBlock(x+dx, y+dy)
			if b == nil || b.Type == types.BlockEmpty {
				continue
			}
			view[game.Coord{X: x + dx, Y: y + dy}] = b.Type
		}
	}

	res := game.RunChain(view, game.Coord{X: x, Y: y})
	for _, c := range res.Destroyed {
		s.world.DestroyBlock(c.X, c.Y)
	}

	goldLost, newGold := game.ApplyTNTPenalty(p.Gold, res.TotalGoldPenalty)
	p.Gold = newGold
	p.IsStunned = true
	p.StunEndTime = now.Add(game.StunDurationMs * time.Millisecond)
	p.TotalExplosions++

	launchY := res.LaunchY(p.Y)
	p.Y = float64(launchY)
	p.IsOnSurface = launchY == 0

	msg := types.ExplosionMsg{
		Type: "explosion", CenterX: x, CenterY: y, Radius: 1,
		GoldPenalty: goldLost, AffectedPlayer: p.ID, PlayerLaunchToY: launchY,
	}
	for _, c := range res.Destroyed {
		msg.DestroyedBlocks = append(msg.DestroyedBlocks, [2]int{c.X, c.Y})
	}
	for _, ph := range res.Phases {
		pm := types.ExplosionPhaseMsg{CenterX: ph.Center.X, CenterY: ph.Center.Y, DelayMs: ph.DelayMs}
		for _, c := range ph.Destroyed {
			pm.Destroyed = append(pm.Destroyed, [2]int{c.X, c.Y})
		}
		msg.Chain = append(msg.Chain, pm)
	}
	s.broadcastLocked("", msg)

	for _, reveal := range s.fog.Move(p.ID, p.X, p.Y, s.torchRadius(p, now)) {
		s.sendLocked(sp, reveal)
	}
	s.sendStateLocked(sp)
	s.broadcastBinaryLocked(p.ID, types.EncodeOtherPlayerUpdate(p.ID, p.X, p.Y, types.ActionIdle))
}

// --- Movement ---

func (s *Shard) handleMove(sp *shardPlayer, cmd types.MoveCmd, now time.Time) {
	p := sp.state
	if math.IsNaN(cmd.X) || math.IsInf(cmd.X, 0) || math.IsNaN(cmd.Y) || math.IsInf(cmd.Y, 0) {
		s.sendLocked(sp, types.NewError(types.ErrInvalidMessage, "non-finite coordinates"))
		return
	}
	x := math.Mod(cmd.X, game.ChunkWidth)
	if x < 0 {
		x += game.ChunkWidth
	}
	y := math.Max(0, cmd.Y)

	oldChunk := int(p.Y) / game.ChunkHeight
	p.X, p.Y = x, y
	p.IsOnSurface = y < 1
	if int(y) > p.MaxDepthReached {
		p.MaxDepthReached = int(y)
	}

	if newChunk := int(y) / game.ChunkHeight; newChunk != oldChunk {
		s.ensureChunk(newChunk)
		s.sendLocked(sp, s.world.ChunkForClient(newChunk, x, y, s.torchRadius(p, now)))
	}
	for _, reveal := range s.fog.Move(p.ID, x, y, s.torchRadius(p, now)) {
		s.sendLocked(sp, reveal)
	}
	s.broadcastBinaryLocked(p.ID, types.EncodeOtherPlayerUpdate(p.ID, x, y, types.ActionWalking))
}

// --- Drops ---

func (s *Shard) handleCollect(sp *shardPlayer, cmd types.CollectItemCmd) {
	p := sp.state
	d, ok := s.drops[cmd.ItemID]
	if !ok || d.CollectedBy != "" {
		s.sendLocked(sp, types.CollectResultMsg{
			Type: "collect_result", Success: false, ItemID: cmd.ItemID, Error: "item gone",
		})
		return
	}
	if !game.AddToInventory(p, d.Item, 1) {
		s.sendLocked(sp, types.InventoryFullMsg{Type: "inventory_full", ItemID: cmd.ItemID})
		return
	}
	d.CollectedBy = p.ID
	delete(s.drops, cmd.ItemID)
	s.broadcastLocked("", types.CollectResultMsg{
		Type: "collect_result", Success: true, ItemID: cmd.ItemID, Item: d.Item,
	})
	s.sendStateLocked(sp)
}

// --- Surface & Descent ---

func (s *Shard) handleGoSurface(sp *shardPlayer, now time.Time) {
	p := sp.state
	ascentMs := game.RopeAscentMs(p.Equipment.Rope, p.Y)
	p.Y = 0
	p.IsOnSurface = true

	// Position is authoritative immediately; the client animates the
	// climb over the rope-rate duration.
	if ascentMs > 0 {
		s.sendLocked(sp, types.EventMsg{Type: "event", EventType: "surface_ascent",
			Detail: map[string]interface{}{"durationMs": ascentMs}})
	}

	s.ensureChunk(0)
	s.sendLocked(sp, s.world.ChunkForClient(0, p.X, 0, s.torchRadius(p, now)))
	for _, reveal := range s.fog.AddPlayer(p.ID, p.X, 0, s.torchRadius(p, now)) {
		s.sendLocked(sp, reveal)
	}
	s.sendStateLocked(sp)
	s.broadcastBinaryLocked(p.ID, types.EncodeOtherPlayerUpdate(p.ID, p.X, 0, types.ActionIdle))
}

func (s *Shard) handleSetCheckpoint(sp *shardPlayer, cmd types.SetCheckpointCmd) {
	p := sp.state
	if cmd.Depth < 0 || cmd.Depth > p.MaxDepthReached {
		s.sendLocked(sp, types.NewError(types.ErrInvalidMessage, "checkpoint deeper than best depth"))
		return
	}
	for _, d := range p.Checkpoints {
		if d == cmd.Depth {
			s.sendLocked(sp, types.NewError(types.ErrInvalidMessage, "checkpoint already set"))
			return
		}
	}
	if len(p.Checkpoints) >= game.RopeCheckpoints(p.Equipment.Rope) {
		s.sendLocked(sp, types.NewError(types.ErrInvalidMessage, "no free checkpoint slots"))
		return
	}
	p.Checkpoints = append(p.Checkpoints, cmd.Depth)
	sort.Ints(p.Checkpoints)
	s.sendStateLocked(sp)
}

func (s *Shard) handleDescend(sp *shardPlayer, cmd types.DescendCmd, now time.Time) {
	p := sp.state
	if !p.IsOnSurface {
		s.sendLocked(sp, types.NewError(types.ErrInvalidMessage, "descend requires the surface"))
		return
	}
	if len(p.Checkpoints) == 0 {
		s.sendLocked(sp, types.NewError(types.ErrInvalidMessage, "no checkpoints set"))
		return
	}
	// Default target is the deepest checkpoint; an explicit one must
	// exist in the player's list.
	target := p.Checkpoints[len(p.Checkpoints)-1]
	if cmd.Checkpoint != nil {
		found := false
		for _, d := range p.Checkpoints {
			if d == *cmd.Checkpoint {
				found = true
				break
			}
		}
		if !found {
			s.sendLocked(sp, types.NewError(types.ErrInvalidMessage, "unknown checkpoint"))
			return
		}
		target = *cmd.Checkpoint
	}
	if target > game.HelmetMaxDepth(p.Equipment.Helmet) {
		s.sendLocked(sp, types.NewError(types.ErrDepthLimit, "helmet rating too low"))
		return
	}

	p.Y = float64(target)
	p.IsOnSurface = false

	chunkY := target / game.ChunkHeight
	s.ensureChunk(chunkY)
	s.sendLocked(sp, s.world.ChunkForClient(chunkY, p.X, p.Y, s.torchRadius(p, now)))
	for _, reveal := range s.fog.AddPlayer(p.ID, p.X, p.Y, s.torchRadius(p, now)) {
		s.sendLocked(sp, reveal)
	}
	s.sendStateLocked(sp)
	s.broadcastBinaryLocked(p.ID, types.EncodeOtherPlayerUpdate(p.ID, p.X, p.Y, types.ActionIdle))
}

// --- Economy ---

func (s *Shard) handleSell(sp *shardPlayer, cmd types.SellCmd) {
	p := sp.state
	res := game.ProcessSell(p, cmd.Items)
	if !res.Success {
		s.sendLocked(sp, types.SellResultMsg{Type: "sell_result", Success: false, Error: res.Err})
		return
	}
	game.ApplySell(p, res)

	msg := types.SellResultMsg{
		Type: "sell_result", Success: true,
		TotalGoldEarned: res.TotalEarned, NewGoldBalance: res.NewGold,
	}
	for _, line := range res.Lines {
		msg.Items = append(msg.Items, types.SellResultLineMsg{
			Item: line.Item, Quantity: line.Quantity, UnitPrice: line.UnitPrice, Total: line.Total,
		})
	}
	s.sendLocked(sp, msg)
	s.sendStateLocked(sp)
}

func (s *Shard) handleBuyEquipment(sp *shardPlayer, cmd types.BuyEquipmentCmd, now time.Time) {
	p := sp.state
	res := game.ProcessEquipmentPurchase(p, cmd.Slot)
	if !res.Success {
		s.sendLocked(sp, types.BuyResultMsg{Type: "buy_result", Success: false, Slot: cmd.Slot, Error: res.Err})
		return
	}
	game.ApplyEquipmentPurchase(p, res)

	if cmd.Slot == types.SlotTorch {
		// A wider torch can expose hazards without any movement.
		for _, reveal := range s.fog.Move(p.ID, p.X, p.Y, s.torchRadius(p, now)) {
			s.sendLocked(sp, reveal)
		}
	}
	s.sendLocked(sp, types.BuyResultMsg{
		Type: "buy_result", Success: true, Slot: res.Slot, NewTier: res.NewTier,
		GoldSpent: res.Price, NewGold: res.NewGold,
	})
	s.sendStateLocked(sp)
}

func (s *Shard) handleBuyInventoryUpgrade(sp *shardPlayer) {
	p := sp.state
	res := game.ProcessInventoryUpgrade(p)
	if !res.Success {
		s.sendLocked(sp, types.BuyResultMsg{Type: "buy_result", Success: false, Error: res.Err})
		return
	}
	game.ApplyInventoryUpgrade(p, res)
	s.sendLocked(sp, types.BuyResultMsg{
		Type: "buy_result", Success: true, NewLevel: res.NewLevel, NewSlots: res.NewSlots,
		GoldSpent: res.Price, NewGold: res.NewGold,
	})
	s.sendStateLocked(sp)
}

// --- Chat ---

func (s *Shard) handleChat(sp *shardPlayer, cmd types.ChatCmd) {
	p := sp.state
	msg := sanitizeChat(cmd.Message)
	if msg == "" {
		return
	}
	if !s.chatLimiter(p.ID).Allow() {
		s.sendLocked(sp, types.NewError(types.ErrChatRateLimit, ""))
		return
	}
	s.broadcastLocked("", types.ChatMessageMsg{
		Type: "chat_message", PlayerID: p.ID, DisplayName: p.DisplayName, Message: msg,
	})
}
