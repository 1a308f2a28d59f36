package main

import (
	"sync"

	"deepmine/pkg/types"
)

// PersistenceStore is the key/value facade for durable state. The dev
// implementation is in-memory; production is sqlite (db.go). Lookups
// for absent players return (nil, nil).
type PersistenceStore interface {
	LoadPlayer(id string) (*types.PlayerRecord, error)
	SavePlayer(rec types.PlayerRecord) error
	SaveChunk(worldSeed int64, chunkY int, mods []Modification) error
	LoadChunkMods(worldSeed int64, chunkY int) ([]Modification, error)
	Close() error
}

// --- In-Memory Store (dev & tests) ---

type MemoryStore struct {
	mu      sync.Mutex
	players map[string]types.PlayerRecord
	chunks  map[chunkKey][]Modification
}

type chunkKey struct {
	seed   int64
	chunkY int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		players: make(map[string]types.PlayerRecord),
		chunks:  make(map[chunkKey][]Modification),
	}
}

func (m *MemoryStore) LoadPlayer(id string) (*types.PlayerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.players[id]
	if !ok {
		return nil, nil
	}
	cp := rec
	return &cp, nil
}

func (m *MemoryStore) SavePlayer(rec types.PlayerRecord) error {
	m.mu.Lock()
	m.players[rec.ID] = rec
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) SaveChunk(worldSeed int64, chunkY int, mods []Modification) error {
	m.mu.Lock()
	m.chunks[chunkKey{worldSeed, chunkY}] = append([]Modification(nil), mods...)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) LoadChunkMods(worldSeed int64, chunkY int) ([]Modification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Modification(nil), m.chunks[chunkKey{worldSeed, chunkY}]...), nil
}

func (m *MemoryStore) Close() error { return nil }
