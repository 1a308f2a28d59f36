package main

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"deepmine/pkg/types"
)

// openTestDB uses the pure-Go sqlite driver so the suite runs without
// cgo; production links the native driver.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	d, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	if err := createSchema(d); err != nil {
		t.Fatal(err)
	}
	return d
}

func samplePlayerRecord() types.PlayerRecord {
	return types.PlayerRecord{
		ID: "p1", DisplayName: "Digger", Gold: 1234,
		ShovelTier: 3, HelmetTier: 2, VestTier: 1, TorchTier: 4, RopeTier: 2,
		InventorySlots: 12, InventoryLevel: 1, MaxDepthReached: 560,
		TotalBlocksMined: 9000, TotalGoldEarned: 50000, TotalExplosions: 7,
		Inventory: []types.InventoryEntry{
			{SlotIndex: 0, Item: types.ItemGoldOre, Quantity: 12},
			{SlotIndex: 5, Item: types.ItemRuby, Quantity: 2},
		},
		Checkpoints: []types.CheckpointEntry{{ShardID: "s1", Depth: 300}},
	}
}

func testStoreRoundTrip(t *testing.T, store PersistenceStore) {
	t.Helper()

	if rec, err := store.LoadPlayer("nobody"); err != nil || rec != nil {
		t.Fatalf("absent player = (%v, %v), want (nil, nil)", rec, err)
	}

	want := samplePlayerRecord()
	if err := store.SavePlayer(want); err != nil {
		t.Fatal(err)
	}
	got, err := store.LoadPlayer("p1")
	if err != nil || got == nil {
		t.Fatalf("load: %v", err)
	}
	if got.Gold != want.Gold || got.ShovelTier != want.ShovelTier || got.MaxDepthReached != want.MaxDepthReached {
		t.Fatalf("scalar fields mangled: %+v", got)
	}
	if len(got.Inventory) != 2 || got.Inventory[1].Item != types.ItemRuby {
		t.Fatalf("inventory mangled: %+v", got.Inventory)
	}
	if len(got.Checkpoints) != 1 || got.Checkpoints[0].Depth != 300 {
		t.Fatalf("checkpoints mangled: %+v", got.Checkpoints)
	}

	// Save is an upsert.
	want.Gold = 99
	store.SavePlayer(want)
	got, _ = store.LoadPlayer("p1")
	if got.Gold != 99 {
		t.Fatalf("upsert kept gold %d", got.Gold)
	}

	mods := []Modification{
		{X: 10, Y: 1, Type: types.BlockEmpty, HP: 0},
		{X: 11, Y: 200, Type: types.BlockRock, HP: 3},
	}
	if err := store.SaveChunk(777, 6, mods); err != nil {
		t.Fatal(err)
	}
	back, err := store.LoadChunkMods(777, 6)
	if err != nil {
		t.Fatal(err)
	}
	if len(back) != 2 || back[0] != mods[0] || back[1] != mods[1] {
		t.Fatalf("chunk mods = %+v", back)
	}
	if empty, err := store.LoadChunkMods(777, 99); err != nil || len(empty) != 0 {
		t.Fatalf("absent chunk = (%v, %v)", empty, err)
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	setupTestEnv(t)
	testStoreRoundTrip(t, NewMemoryStore())
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	setupTestEnv(t)
	testStoreRoundTrip(t, NewSQLiteStore(openTestDB(t)))
}

func TestShardFlushPersistsThroughStore(t *testing.T) {
	setupTestEnv(t)
	clk := newFakeClock()
	store := NewMemoryStore()
	s := NewShard("s1", 777, 4, "", false, store, clk)
	_, p := joinShard(t, s, "p1", 10, 0)
	p.Gold = 555

	dig(s, "p1", 10, 1)
	clk.Advance(persistFlushInterval + time.Second)
	s.TickHook(clk.Now())

	rec, err := store.LoadPlayer("p1")
	if err != nil || rec == nil || rec.Gold != 555 {
		t.Fatalf("player flush: %+v %v", rec, err)
	}
	mods, err := store.LoadChunkMods(777, 0)
	if err != nil || len(mods) == 0 {
		t.Fatalf("chunk flush: %v %v", mods, err)
	}

	// A second shard on the same seed replays the destruction.
	s2 := NewShard("s2", 777, 4, "", false, store, clk)
	s2.ensureChunk(0)
	if b := s2.world.GetBlock(10, 1); b.Type != types.BlockEmpty {
		t.Fatalf("replayed block = %+v, want empty", b)
	}
}
