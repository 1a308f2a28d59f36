package main

import (
	"math"
	"time"

	"deepmine/pkg/core"
	"deepmine/pkg/game"
	"deepmine/pkg/types"
)

// Modification is one replayable block change. Reapplying a chunk's
// modifications over freshly regenerated terrain reproduces the
// current data exactly.
type Modification struct {
	X    int             `json:"x"`
	Y    int             `json:"y"`
	Type types.BlockType `json:"type"`
	HP   float64         `json:"hp"`
}

type chunkRecord struct {
	data         []types.Block // ChunkWidth*ChunkHeight, index x*ChunkHeight+localY
	mods         map[game.Coord]Modification
	dirty        bool
	lastAccessed time.Time
}

// WorldStore owns every loaded chunk of one shard's world. It is
// single-writer: only the shard goroutine touches it.
type WorldStore struct {
	seed   int64
	chunks map[int]*chunkRecord
	clock  Clock
}

func NewWorldStore(seed int64, clock Clock) *WorldStore {
	return &WorldStore{seed: seed, chunks: make(map[int]*chunkRecord), clock: clock}
}

func (w *WorldStore) Seed() int64 { return w.seed }

func wrapX(x int) int {
	x %= game.ChunkWidth
	if x < 0 {
		x += game.ChunkWidth
	}
	return x
}

// generateChunk derives the strip [0,ChunkWidth) x [cy*H,(cy+1)*H) from
// the chunk stream. Exactly one draw is consumed per block in
// column-major order (x outer, localY inner), so a single-block lookup
// that skips to index x*ChunkHeight+localY sees the same placement.
// The safe-spawn rows consume their draw but never become hazards.
func (w *WorldStore) generateChunk(chunkY int) *chunkRecord {
	stream := core.ChunkStream(w.seed, chunkY)
	data := make([]types.Block, game.ChunkWidth*game.ChunkHeight)
	for x := 0; x < game.ChunkWidth; x++ {
		for ly := 0; ly < game.ChunkHeight; ly++ {
			y := chunkY*game.ChunkHeight + ly
			layer := game.LayerAt(y)
			draw := stream.Next()

			bt := layer.Block
			if y >= game.SafeSpawnBlocks && draw < layer.TNTSpawnChance {
				bt = types.BlockTNT
			}
			hp := game.HardnessAt(y)
			data[x*game.ChunkHeight+ly] = types.Block{Type: bt, HP: hp, MaxHP: hp, X: x, Y: y}
		}
	}
	return &chunkRecord{data: data, mods: make(map[game.Coord]Modification)}
}

func (w *WorldStore) getChunk(chunkY int) *chunkRecord {
	rec, ok := w.chunks[chunkY]
	if !ok {
		rec = w.generateChunk(chunkY)
		w.chunks[chunkY] = rec
		w.evictIfNeeded()
	}
	rec.lastAccessed = w.clock.Now()
	return rec
}

// evictIfNeeded drops least-recently-accessed clean chunks above the
// cache cap. Dirty chunks stay resident until saved.
func (w *WorldStore) evictIfNeeded() {
	for len(w.chunks) > game.MaxLoadedChunks {
		victim := -1
		var oldest time.Time
		for cy, rec := range w.chunks {
			if rec.dirty {
				continue
			}
			if victim < 0 || rec.lastAccessed.Before(oldest) {
				victim = cy
				oldest = rec.lastAccessed
			}
		}
		if victim < 0 {
			return // everything dirty; nothing evictable
		}
		delete(w.chunks, victim)
	}
}

// GetBlock returns a copy of the current block, generating the chunk
// on demand. x wraps; negative depth has no blocks.
func (w *WorldStore) GetBlock(x, y int) *types.Block {
	if y < 0 {
		return nil
	}
	x = wrapX(x)
	rec := w.getChunk(y / game.ChunkHeight)
	b := rec.data[x*game.ChunkHeight+y%game.ChunkHeight]
	return &b
}

// DamageBlock subtracts damage from a live block. Destroyed blocks
// become empty with hp=0 and the chunk is marked dirty.
func (w *WorldStore) DamageBlock(x, y int, damage float64) (destroyed bool, remaining float64) {
	if y < 0 {
		return false, 0
	}
	x = wrapX(x)
	rec := w.getChunk(y / game.ChunkHeight)
	b := &rec.data[x*game.ChunkHeight+y%game.ChunkHeight]
	if b.Type == types.BlockEmpty {
		return false, 0
	}
	b.HP -= damage
	if b.HP <= 0 {
		b.Type = types.BlockEmpty
		b.HP = 0
		destroyed = true
	}
	rec.dirty = true
	rec.mods[game.Coord{X: x, Y: y}] = Modification{X: x, Y: y, Type: b.Type, HP: b.HP}
	return destroyed, b.HP
}

// DestroyBlock empties a block outright (explosions).
func (w *WorldStore) DestroyBlock(x, y int) {
	if y < 0 {
		return
	}
	x = wrapX(x)
	rec := w.getChunk(y / game.ChunkHeight)
	b := &rec.data[x*game.ChunkHeight+y%game.ChunkHeight]
	if b.Type == types.BlockEmpty {
		return
	}
	b.Type = types.BlockEmpty
	b.HP = 0
	rec.dirty = true
	rec.mods[game.Coord{X: x, Y: y}] = Modification{X: x, Y: y, Type: types.BlockEmpty, HP: 0}
}

// ChunkForClient serializes every non-empty block of a chunk for one
// player. Hazards outside the torch radius are masked to unknown; all
// other types travel verbatim.
func (w *WorldStore) ChunkForClient(chunkY int, px, py, torchRadius float64) types.WorldChunkMsg {
	rec := w.getChunk(chunkY)
	msg := types.WorldChunkMsg{Type: "world_chunk", ChunkY: chunkY}
	for i := range rec.data {
		b := rec.data[i]
		if b.Type == types.BlockEmpty {
			continue
		}
		if b.Type.IsHazard() && dist(px, py, float64(b.X), float64(b.Y)) > torchRadius {
			b.Type = types.BlockUnknown
		}
		msg.Blocks = append(msg.Blocks, b)
	}
	return msg
}

// RevealedBlocks finds hazards that entered the torch disk on a move:
// within radius of the new position and strictly outside it at the old.
func (w *WorldStore) RevealedBlocks(newX, newY, oldX, oldY, radius float64) []types.Block {
	var out []types.Block
	r := int(math.Ceil(radius))
	cx, cy := int(math.Round(newX)), int(math.Round(newY))
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			bx, by := cx+dx, cy+dy
			if by < 0 {
				continue
			}
			if dist(newX, newY, float64(bx), float64(by)) > radius {
				continue
			}
			if dist(oldX, oldY, float64(bx), float64(by)) <= radius {
				continue
			}
			b := w.GetBlock(bx, by)
			if b != nil && b.Type.IsHazard() {
				out = append(out, *b)
			}
		}
	}
	return out
}

// HazardsNear lists all hazards inside the torch disk, used when a
// player spawns or teleports.
func (w *WorldStore) HazardsNear(px, py, radius float64) []types.Block {
	var out []types.Block
	r := int(math.Ceil(radius))
	cx, cy := int(math.Round(px)), int(math.Round(py))
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			bx, by := cx+dx, cy+dy
			if by < 0 {
				continue
			}
			if dist(px, py, float64(bx), float64(by)) > radius {
				continue
			}
			b := w.GetBlock(bx, by)
			if b != nil && b.Type.IsHazard() {
				out = append(out, *b)
			}
		}
	}
	return out
}

// --- Persistence Hooks ---

func (w *WorldStore) DirtyChunks() []int {
	var out []int
	for cy, rec := range w.chunks {
		if rec.dirty {
			out = append(out, cy)
		}
	}
	return out
}

func (w *WorldStore) Modifications(chunkY int) []Modification {
	rec, ok := w.chunks[chunkY]
	if !ok {
		return nil
	}
	out := make([]Modification, 0, len(rec.mods))
	for _, m := range rec.mods {
		out = append(out, m)
	}
	return out
}

func (w *WorldStore) MarkChunksSaved(chunkYs []int) {
	for _, cy := range chunkYs {
		if rec, ok := w.chunks[cy]; ok {
			rec.dirty = false
		}
	}
}

// ApplyModifications replays a persisted log over freshly generated
// terrain. The chunk stays clean; the log is already durable.
func (w *WorldStore) ApplyModifications(chunkY int, mods []Modification) {
	rec := w.getChunk(chunkY)
	for _, m := range mods {
		x := wrapX(m.X)
		if m.Y < 0 || m.Y/game.ChunkHeight != chunkY {
			continue
		}
		b := &rec.data[x*game.ChunkHeight+m.Y%game.ChunkHeight]
		b.Type = m.Type
		b.HP = m.HP
		rec.mods[game.Coord{X: x, Y: m.Y}] = m
	}
}

func dist(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x1-x2, y1-y2)
}
