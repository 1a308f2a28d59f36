package main

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"deepmine/pkg/game"
)

// Matchmaking capacities.
const (
	QuickPlayMaxPlayers = 8
	PartyDefaultPlayers = 4
	PartyMaxPlayers     = 8
)

// ShardManager owns every live shard and the matchmaking decisions
// that place players into them.
type ShardManager struct {
	mu          sync.Mutex
	shards      map[string]*Shard
	byRoomCode  map[string]*Shard
	playerShard map[string]string
	store       PersistenceStore
	clock       Clock

	// OnPlayerRemoved is invoked after a player's final removal from a
	// shard; the gateway hooks session cleanup here. Set before any
	// shard is created.
	OnPlayerRemoved func(playerID string)
}

func NewShardManager(store PersistenceStore, clock Clock) *ShardManager {
	return &ShardManager{
		shards:      make(map[string]*Shard),
		byRoomCode:  make(map[string]*Shard),
		playerShard: make(map[string]string),
		store:       store,
		clock:       clock,
	}
}

// QuickPlay places a player into the best public shard, creating one
// when nothing suitable exists. Mid-sized shards score highest so
// sessions consolidate without piling onto nearly-full ones.
func (m *ShardManager) QuickPlay(playerID string) *Shard {
	m.mu.Lock()
	defer m.mu.Unlock()

	var best *Shard
	bestScore := 0
	for _, s := range m.shards {
		if s.Private || s.State() == ShardClosing {
			continue
		}
		count := s.PlayerCount()
		if count >= s.MaxPlayers {
			continue
		}
		score := 1
		switch {
		case count >= 3 && count <= 6:
			score = 10
		case count >= 1 && count < 3:
			score = 5
		}
		if score > bestScore || (score == bestScore && best != nil && count > best.PlayerCount()) {
			best = s
			bestScore = score
		}
	}
	if best == nil {
		best = m.createShardLocked(QuickPlayMaxPlayers, "", false)
	}
	m.playerShard[playerID] = best.ID
	return best
}

// CreateParty makes a private shard addressable by room code.
func (m *ShardManager) CreateParty(playerID string, maxPlayers int) *Shard {
	if maxPlayers <= 0 {
		maxPlayers = PartyDefaultPlayers
	}
	if maxPlayers > PartyMaxPlayers {
		maxPlayers = PartyMaxPlayers
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.createShardLocked(maxPlayers, m.newRoomCodeLocked(), true)
	m.playerShard[playerID] = s.ID
	return s
}

// JoinParty resolves a room code (case-insensitive) to its shard.
func (m *ShardManager) JoinParty(playerID, roomCode string) (*Shard, error) {
	code := strings.ToUpper(strings.TrimSpace(roomCode))
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byRoomCode[code]
	if !ok || s.State() == ShardClosing {
		return nil, fmt.Errorf("no party with code %s", code)
	}
	if s.PlayerCount() >= s.MaxPlayers {
		return nil, fmt.Errorf("party %s is full", code)
	}
	m.playerShard[playerID] = s.ID
	return s, nil
}

// PlaySolo gives a player a single-seat private shard.
func (m *ShardManager) PlaySolo(playerID string) *Shard {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.createShardLocked(1, "", true)
	m.playerShard[playerID] = s.ID
	return s
}

// ShardFor resolves a player's current shard, if any.
func (m *ShardManager) ShardFor(playerID string) *Shard {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.playerShard[playerID]
	if !ok {
		return nil
	}
	return m.shards[id]
}

func (m *ShardManager) ShardByID(id string) *Shard {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shards[id]
}

// Unbind forgets the player->shard mapping after a final removal.
func (m *ShardManager) Unbind(playerID string) {
	m.mu.Lock()
	delete(m.playerShard, playerID)
	m.mu.Unlock()
}

func (m *ShardManager) ShardCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.shards)
}

// PlayerTotal counts members across every live shard, grace included.
func (m *ShardManager) PlayerTotal() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, s := range m.shards {
		total += s.PlayerCount()
	}
	return total
}

func (m *ShardManager) createShardLocked(maxPlayers int, roomCode string, private bool) *Shard {
	s := NewShard(newID(), randomSeed(), maxPlayers, roomCode, private, m.store, m.clock)
	s.onEmpty = m.destroyShard
	s.onRemove = func(playerID string) {
		m.Unbind(playerID)
		if m.OnPlayerRemoved != nil {
			m.OnPlayerRemoved(playerID)
		}
	}
	m.shards[s.ID] = s
	if roomCode != "" {
		m.byRoomCode[roomCode] = s
	}
	s.Start()
	return s
}

// destroyShard tears down an emptied shard. Runs off the shard
// goroutine so Shutdown can join the loop.
func (m *ShardManager) destroyShard(id string) {
	m.mu.Lock()
	s, ok := m.shards[id]
	if ok {
		delete(m.shards, id)
		if s.RoomCode != "" {
			delete(m.byRoomCode, s.RoomCode)
		}
		for pid, sid := range m.playerShard {
			if sid == id {
				delete(m.playerShard, pid)
			}
		}
	}
	m.mu.Unlock()
	if ok {
		s.Shutdown()
		InfoLog.Printf("shard %s destroyed (empty)", id)
	}
}

// ShutdownAll stops every shard; used on server exit.
func (m *ShardManager) ShutdownAll() {
	m.mu.Lock()
	shards := make([]*Shard, 0, len(m.shards))
	for _, s := range m.shards {
		shards = append(shards, s)
	}
	m.shards = make(map[string]*Shard)
	m.byRoomCode = make(map[string]*Shard)
	m.playerShard = make(map[string]string)
	m.mu.Unlock()
	for _, s := range shards {
		s.Shutdown()
	}
}

// newRoomCodeLocked draws codes from an alphabet without lookalike
// characters, retrying the rare collision.
func (m *ShardManager) newRoomCodeLocked() string {
	for {
		buf := make([]byte, game.RoomCodeLength)
		rand.Read(buf)
		code := make([]byte, game.RoomCodeLength)
		for i, b := range buf {
			code[i] = game.RoomCodeAlphabet[int(b)%len(game.RoomCodeAlphabet)]
		}
		if _, taken := m.byRoomCode[string(code)]; !taken {
			return string(code)
		}
	}
}

func randomSeed() int64 {
	var buf [8]byte
	rand.Read(buf[:])
	return int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
}
