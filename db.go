package main

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"deepmine/pkg/core"
	"deepmine/pkg/types"
)

func initDB() {
	os.MkdirAll(filepath.Dir(Config.DBPath), 0755)

	var err error
	db, err = sql.Open("sqlite3", Config.DBPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		ErrorLog.Fatalf("open db: %v", err)
	}
	db.Exec("PRAGMA journal_mode=WAL;")

	if err := createSchema(db); err != nil {
		ErrorLog.Fatalf("create schema: %v", err)
	}
}

func createSchema(d *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS system_meta (key TEXT PRIMARY KEY, value TEXT);

	CREATE TABLE IF NOT EXISTS players (
		id TEXT PRIMARY KEY,
		display_name TEXT,
		gold INTEGER DEFAULT 0,
		shovel_tier INTEGER DEFAULT 1,
		helmet_tier INTEGER DEFAULT 1,
		vest_tier INTEGER DEFAULT 1,
		torch_tier INTEGER DEFAULT 1,
		rope_tier INTEGER DEFAULT 1,
		inventory_slots INTEGER DEFAULT 8,
		inventory_level INTEGER DEFAULT 0,
		max_depth_reached INTEGER DEFAULT 0,
		total_blocks_mined INTEGER DEFAULT 0,
		total_gold_earned INTEGER DEFAULT 0,
		total_explosions INTEGER DEFAULT 0,
		inventory_json TEXT,
		checkpoints_json TEXT
	);

	CREATE TABLE IF NOT EXISTS chunks (
		world_seed INTEGER,
		chunk_y INTEGER,
		mods_blob BLOB,
		PRIMARY KEY (world_seed, chunk_y)
	);
	`
	_, err := d.Exec(schema)
	return err
}

// --- SQLite Store ---

// SQLiteStore persists player records as rows and chunk modification
// logs as lz4-compressed JSON blobs.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(d *sql.DB) *SQLiteStore { return &SQLiteStore{db: d} }

func (s *SQLiteStore) LoadPlayer(id string) (*types.PlayerRecord, error) {
	var rec types.PlayerRecord
	var invJSON, cpJSON sql.NullString
	err := s.db.QueryRow(`SELECT id, display_name, gold, shovel_tier, helmet_tier, vest_tier,
		torch_tier, rope_tier, inventory_slots, inventory_level, max_depth_reached,
		total_blocks_mined, total_gold_earned, total_explosions, inventory_json, checkpoints_json
		FROM players WHERE id=?`, id).Scan(
		&rec.ID, &rec.DisplayName, &rec.Gold, &rec.ShovelTier, &rec.HelmetTier, &rec.VestTier,
		&rec.TorchTier, &rec.RopeTier, &rec.InventorySlots, &rec.InventoryLevel, &rec.MaxDepthReached,
		&rec.TotalBlocksMined, &rec.TotalGoldEarned, &rec.TotalExplosions, &invJSON, &cpJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if invJSON.Valid && invJSON.String != "" {
		json.Unmarshal([]byte(invJSON.String), &rec.Inventory)
	}
	if cpJSON.Valid && cpJSON.String != "" {
		json.Unmarshal([]byte(cpJSON.String), &rec.Checkpoints)
	}
	return &rec, nil
}

func (s *SQLiteStore) SavePlayer(rec types.PlayerRecord) error {
	invJSON, _ := json.Marshal(rec.Inventory)
	cpJSON, _ := json.Marshal(rec.Checkpoints)
	_, err := s.db.Exec(`INSERT OR REPLACE INTO players
		(id, display_name, gold, shovel_tier, helmet_tier, vest_tier, torch_tier, rope_tier,
		inventory_slots, inventory_level, max_depth_reached,
		total_blocks_mined, total_gold_earned, total_explosions, inventory_json, checkpoints_json)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.DisplayName, rec.Gold, rec.ShovelTier, rec.HelmetTier, rec.VestTier,
		rec.TorchTier, rec.RopeTier, rec.InventorySlots, rec.InventoryLevel, rec.MaxDepthReached,
		rec.TotalBlocksMined, rec.TotalGoldEarned, rec.TotalExplosions, string(invJSON), string(cpJSON))
	return err
}

func (s *SQLiteStore) SaveChunk(worldSeed int64, chunkY int, mods []Modification) error {
	payload, err := json.Marshal(mods)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO chunks (world_seed, chunk_y, mods_blob) VALUES (?,?,?)`,
		worldSeed, chunkY, core.Compress(payload))
	return err
}

func (s *SQLiteStore) LoadChunkMods(worldSeed int64, chunkY int) ([]Modification, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT mods_blob FROM chunks WHERE world_seed=? AND chunk_y=?`,
		worldSeed, chunkY).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var mods []Modification
	if err := json.Unmarshal(core.Decompress(blob), &mods); err != nil {
		return nil, err
	}
	return mods, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
