package main

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"deepmine/pkg/core"
	"deepmine/pkg/game"
	"deepmine/pkg/types"
)

// Conn is the shard's view of a client connection. The websocket
// gateway implements it; tests substitute a recording fake.
type Conn interface {
	SendJSON(msg types.Message)
	SendBinary(frame []byte)
	CloseWithCode(code int, reason string)
}

// Shard lifecycle states.
const (
	ShardWaiting = "waiting"
	ShardActive  = "active"
	ShardClosing = "closing"
)

const persistFlushInterval = 10 * time.Second

type shardPlayer struct {
	state *types.Player
	conn  Conn
	// disconnectedAt is zero while connected. A non-zero value starts
	// the grace window; expiry finalizes removal.
	disconnectedAt time.Time
}

func (sp *shardPlayer) connected() bool { return sp.disconnectedAt.IsZero() && sp.conn != nil }

// Shard is one game instance: a world, its players, and the single
// goroutine (the game loop) that mutates them. Everything below the
// mutex is shard-goroutine state; the mutex exists because joins,
// reconnects and disconnects arrive on gateway goroutines.
type Shard struct {
	ID         string
	RoomCode   string
	Private    bool
	MaxPlayers int

	mu      sync.Mutex
	state   string
	players map[string]*shardPlayer
	drops   map[string]*types.DropItem

	world    *WorldStore
	fog      *FogOfWar
	loop     *GameLoop
	store    PersistenceStore
	clock    Clock
	replayed map[int]bool // chunks whose persisted mods were applied

	lootRNG   *core.Stream
	eventRNG  *core.Stream
	jitterRNG *core.Stream

	chatLimiters map[string]*rate.Limiter
	lastFlush    time.Time

	// onEmpty fires (off the shard goroutine) when the last player is
	// gone; the manager tears the shard down. onRemove fires per final
	// player removal so the gateway can drop routing state.
	onEmpty  func(shardID string)
	onRemove func(playerID string)
}

func NewShard(id string, seed int64, maxPlayers int, roomCode string, private bool, store PersistenceStore, clock Clock) *Shard {
	s := &Shard{
		ID:           id,
		RoomCode:     roomCode,
		Private:      private,
		MaxPlayers:   maxPlayers,
		state:        ShardWaiting,
		players:      make(map[string]*shardPlayer),
		drops:        make(map[string]*types.DropItem),
		world:        NewWorldStore(seed, clock),
		store:        store,
		clock:        clock,
		replayed:     make(map[int]bool),
		lootRNG:      core.LootStream(seed),
		eventRNG:     core.EventStream(seed),
		jitterRNG:    core.JitterStream(seed),
		chatLimiters: make(map[string]*rate.Limiter),
		lastFlush:    clock.Now(),
	}
	s.fog = NewFogOfWar(s.world)
	s.loop = NewGameLoop(s, clock)
	return s
}

// Start launches the shard's game loop goroutine.
func (s *Shard) Start() {
	go s.loop.Run()
	InfoLog.Printf("shard %s started (seed=%d, max=%d)", s.ID, s.world.Seed(), s.MaxPlayers)
}

func (s *Shard) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PlayerCount counts members, connected or in grace.
func (s *Shard) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

// Enqueue pushes a command onto the shard's queue. A full queue is
// answered with RATE_LIMITED straight from the gateway goroutine.
func (s *Shard) Enqueue(playerID string, cmd types.Command) {
	if s.loop.Enqueue(QueuedCommand{PlayerID: playerID, Cmd: cmd}) {
		return
	}
	s.mu.Lock()
	sp := s.players[playerID]
	s.mu.Unlock()
	if sp != nil && sp.connected() {
		sp.conn.SendJSON(types.NewError(types.ErrRateLimited, "command queue full"))
	}
}

// ensureChunk replays any persisted modification log the first time a
// chunk is touched in this shard's lifetime.
func (s *Shard) ensureChunk(chunkY int) {
	if chunkY < 0 || s.replayed[chunkY] {
		return
	}
	s.replayed[chunkY] = true
	mods, err := s.store.LoadChunkMods(s.world.Seed(), chunkY)
	if err != nil {
		ErrorLog.Printf("shard %s: load chunk %d mods: %v", s.ID, chunkY, err)
		return
	}
	if len(mods) > 0 {
		s.world.ApplyModifications(chunkY, mods)
	}
}

func (s *Shard) torchRadius(p *types.Player, now time.Time) float64 {
	if p.TorchBlankedUntil.After(now) {
		return 0
	}
	return game.TorchRadius(p.Equipment.Torch)
}

// --- Membership ---

// AddPlayer admits a player: capacity checks, spawn placement, joined
// broadcast. The join sync is a separate step (SyncPlayer) so the
// gateway can acknowledge the placement before streaming the world.
func (s *Shard) AddPlayer(conn Conn, p *types.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == ShardClosing {
		return fmt.Errorf("shard %s is closing", s.ID)
	}
	if len(s.players) >= s.MaxPlayers {
		return fmt.Errorf("shard %s is full", s.ID)
	}
	if _, exists := s.players[p.ID]; exists {
		return fmt.Errorf("player %s already in shard %s", p.ID, s.ID)
	}

	if p.X == 0 && p.Y == 0 {
		// Fresh spawn: surface, spread so party members don't stack.
		p.X = float64(game.ChunkWidth/2 + len(s.players)*2)
		p.IsOnSurface = true
	}
	sp := &shardPlayer{state: p, conn: conn}
	s.players[p.ID] = sp
	s.state = ShardActive

	s.broadcastLocked(p.ID, types.OtherPlayerJoinedMsg{
		Type: "other_player_joined", PlayerID: p.ID, DisplayName: p.DisplayName, X: p.X, Y: p.Y,
	})
	InfoLog.Printf("shard %s: %s (%s) joined, %d/%d", s.ID, p.DisplayName, p.ID, len(s.players), s.MaxPlayers)
	return nil
}

// SyncPlayer streams the full join view to an admitted player.
func (s *Shard) SyncPlayer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sp, ok := s.players[id]; ok && sp.connected() {
		s.syncPlayerLocked(sp)
	}
}

// syncPlayerLocked sends the full view a (re)joining client needs.
func (s *Shard) syncPlayerLocked(sp *shardPlayer) {
	p := sp.state
	now := s.clock.Now()
	radius := s.torchRadius(p, now)

	chunkY := int(p.Y) / game.ChunkHeight
	s.ensureChunk(chunkY)
	sp.conn.SendJSON(s.world.ChunkForClient(chunkY, p.X, p.Y, radius))
	sp.conn.SendJSON(types.PlayerStateUpdateMsg{Type: "player_state_update", State: p})
	for _, msg := range s.fog.AddPlayer(p.ID, p.X, p.Y, radius) {
		sp.conn.SendJSON(msg)
	}
	for _, d := range s.drops {
		sp.conn.SendJSON(dropSpawnedMsg(d))
	}
	for id, other := range s.players {
		if id == p.ID {
			continue
		}
		sp.conn.SendJSON(types.OtherPlayerJoinedMsg{
			Type: "other_player_joined", PlayerID: id,
			DisplayName: other.state.DisplayName, X: other.state.X, Y: other.state.Y,
		})
	}
}

// OnPlayerDisconnect starts the grace window. The player stays a shard
// member; their state freezes in place until reconnect or expiry.
func (s *Shard) OnPlayerDisconnect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.players[id]
	if !ok || !sp.disconnectedAt.IsZero() {
		return
	}
	sp.disconnectedAt = s.clock.Now()
	sp.conn = nil
	InfoLog.Printf("shard %s: %s disconnected, grace window open", s.ID, id)
}

// OnPlayerReconnect rebinds a new connection to a player still inside
// the grace window and replays the join sync. Returns the live state
// for the gateway's welcome frame, or nil when the session is gone.
func (s *Shard) OnPlayerReconnect(id string, conn Conn) *types.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.players[id]
	if !ok {
		return nil
	}
	if old := sp.conn; old != nil {
		old.CloseWithCode(4000, "session taken over")
	}
	sp.conn = conn
	sp.disconnectedAt = time.Time{}
	s.syncPlayerLocked(sp)
	InfoLog.Printf("shard %s: %s reconnected", s.ID, id)
	return sp.state
}

// RemovePlayer is the explicit-leave path: no grace, immediate persist.
func (s *Shard) RemovePlayer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalizeRemoveLocked(id)
}

func (s *Shard) finalizeRemoveLocked(id string) {
	sp, ok := s.players[id]
	if !ok {
		return
	}
	if err := s.store.SavePlayer(sp.state.ToRecord(s.ID)); err != nil {
		ErrorLog.Printf("shard %s: persist player %s: %v", s.ID, id, err)
	}
	delete(s.players, id)
	delete(s.chatLimiters, id)
	s.fog.RemovePlayer(id)
	s.loop.forgetPlayer(id)
	s.broadcastLocked(id, types.OtherPlayerLeftMsg{Type: "other_player_left", PlayerID: id})
	InfoLog.Printf("shard %s: %s removed, %d remain", s.ID, id, len(s.players))
	if s.onRemove != nil {
		go s.onRemove(id)
	}

	if len(s.players) == 0 && s.state != ShardClosing && s.onEmpty != nil {
		s.state = ShardClosing
		go s.onEmpty(s.ID)
	}
}

// --- Per-Tick Work ---

// TickHook runs after the queue drain each tick: stun expiry, grace
// expiry, drop TTLs and the periodic persistence flush.
func (s *Shard) TickHook(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sp := range s.players {
		p := sp.state
		if p.IsStunned && !p.StunEndTime.After(now) {
			p.IsStunned = false
			if sp.connected() {
				sp.conn.SendJSON(types.PlayerStateUpdateMsg{Type: "player_state_update", State: p})
			}
		}
	}

	var expired []string
	for id, sp := range s.players {
		if !sp.disconnectedAt.IsZero() && now.Sub(sp.disconnectedAt) > game.PlayerDisconnectGraceSec*time.Second {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		InfoLog.Printf("shard %s: grace expired for %s", s.ID, id)
		s.finalizeRemoveLocked(id)
	}

	for id, d := range s.drops {
		if now.Sub(d.SpawnedAt) > game.DropItemTTLSec*time.Second {
			delete(s.drops, id)
			s.broadcastLocked("", types.EventMsg{Type: "event", EventType: "drop_expired",
				Detail: map[string]interface{}{"id": id}})
		}
	}

	if now.Sub(s.lastFlush) >= persistFlushInterval {
		s.lastFlush = now
		s.flushLocked()
	}
}

// flushLocked writes dirty chunks and member records through the store.
func (s *Shard) flushLocked() {
	dirty := s.world.DirtyChunks()
	var saved []int
	for _, cy := range dirty {
		if err := s.store.SaveChunk(s.world.Seed(), cy, s.world.Modifications(cy)); err != nil {
			ErrorLog.Printf("shard %s: save chunk %d: %v", s.ID, cy, err)
			continue
		}
		saved = append(saved, cy)
	}
	s.world.MarkChunksSaved(saved)
	for id, sp := range s.players {
		if err := s.store.SavePlayer(sp.state.ToRecord(s.ID)); err != nil {
			ErrorLog.Printf("shard %s: persist player %s: %v", s.ID, id, err)
		}
	}
}

// Shutdown stops the loop, flushes everything, and closes the
// remaining connections with a going-away code.
func (s *Shard) Shutdown() {
	s.mu.Lock()
	s.state = ShardClosing
	s.mu.Unlock()

	s.loop.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
	for _, sp := range s.players {
		if sp.connected() {
			sp.conn.CloseWithCode(1001, "shard shutting down")
		}
	}
	s.players = make(map[string]*shardPlayer)
	InfoLog.Printf("shard %s shut down", s.ID)
}

// --- Outbound Helpers ---

func (s *Shard) broadcastLocked(exceptID string, msg types.Message) {
	for id, sp := range s.players {
		if id == exceptID || !sp.connected() {
			continue
		}
		sp.conn.SendJSON(msg)
	}
}

func (s *Shard) broadcastBinaryLocked(exceptID string, frame []byte) {
	for id, sp := range s.players {
		if id == exceptID || !sp.connected() {
			continue
		}
		sp.conn.SendBinary(frame)
	}
}

func (s *Shard) chatLimiter(id string) *rate.Limiter {
	l, ok := s.chatLimiters[id]
	if !ok {
		l = rate.NewLimiter(1, 3)
		s.chatLimiters[id] = l
	}
	return l
}

// spawnDropLocked creates a world drop near (x, y) with placement
// jitter from the jitter stream.
func (s *Shard) spawnDropLocked(item types.ItemType, x, y float64) *types.DropItem {
	d := &types.DropItem{
		ID:        newID(),
		Item:      item,
		X:         x + (s.jitterRNG.Next()-0.5)*1.5,
		Y:         y,
		SpawnedAt: s.clock.Now(),
	}
	s.drops[d.ID] = d
	return d
}

func dropSpawnedMsg(d *types.DropItem) types.EventMsg {
	return types.EventMsg{Type: "event", EventType: "drop_spawned", Detail: map[string]interface{}{
		"id": d.ID, "itemType": string(d.Item), "x": d.X, "y": d.Y,
	}}
}
