// Package game holds the static rule tables and the pure engines of the
// mining simulation: layers, equipment, economy, loot and the TNT chain.
// Nothing in here touches sockets, clocks or storage; every function is
// deterministic given its inputs so the shard can treat results as
// transactions to apply.
package game

import (
	"math"

	"deepmine/pkg/types"
)

// --- World Dimensions ---

const (
	ChunkWidth      = 2000 // x wraps modulo this
	ChunkHeight     = 32
	SafeSpawnBlocks = 3 // rows below the surface that never roll hazards
	MaxLoadedChunks = 100
)

// --- Simulation Timing ---

const (
	TickRate         = 10
	TickIntervalMs   = 100
	MaxDigRate       = 10 // digs per rolling second per player
	CommandQueueSize = 256
)

// --- TNT ---

const (
	TNTChainDelayMs     = 500
	TNTLaunchDistance   = 10
	TNTChainExtraLaunch = 5
	StunDurationMs      = 1500
)

// --- Sessions & Drops ---

const (
	PlayerDisconnectGraceSec = 30
	ReconnectSweepSec        = 10
	DropItemTTLSec           = 60
	MaxStackSize             = 50
	RoomCodeLength           = 6
	RoomCodeAlphabet         = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// --- Random Events ---

const (
	CaveInChance            = 0.02
	GasPocketChance         = 0.015
	RockSlideChance         = 0.012
	UndergroundSpringChance = 0.01
	TreasureChestChance     = 0.008

	CaveInPushDistance      = 5
	CaveInItemsLost         = 2
	GasPocketDurationMs     = 10000
	RockSlideHardnessBonus  = 3
	RockSlideDurationBlocks = 20
)

// --- Items ---

// ItemPrices is the sell value per unit.
var ItemPrices = map[types.ItemType]int{
	types.ItemDirt:          1,
	types.ItemStone:         2,
	types.ItemClay:          3,
	types.ItemCopperOre:     10,
	types.ItemLostCoins:     20,
	types.ItemIronOre:       25,
	types.ItemSilverOre:     45,
	types.ItemGoldOre:       80,
	types.ItemObsidianShard: 120,
	types.ItemRuby:          150,
	types.ItemEmerald:       220,
	types.ItemMagmaCore:     350,
	types.ItemAncientRelic:  400,
	types.ItemDiamond:       500,
	types.ItemVoidCrystal:   900,
}

// --- Layers ---

type LootEntry struct {
	Item   types.ItemType
	Weight int
}

// Layer is one depth band. MaxDepth is exclusive; the last band runs to
// infinity (MaxDepth < 0).
type Layer struct {
	Name           string
	MinDepth       int
	MaxDepth       int
	Block          types.BlockType
	BaseHardness   float64
	TNTSpawnChance float64
	TNTGoldPenalty int
	DropChance     float64
	Loot           []LootEntry
}

// VoidHardnessDepth is where void stone starts growing harder:
// +0.01 hp per block below it.
const VoidHardnessDepth = 1201

// Layers covers [0, inf) contiguously. Cold magma spans two bands so
// eight bands fit the seven native block types.
var Layers = []Layer{
	{
		Name: "Topsoil", MinDepth: 0, MaxDepth: 60,
		Block: types.BlockDirt, BaseHardness: 1,
		TNTSpawnChance: 0.020, TNTGoldPenalty: 10, DropChance: 0.30,
		Loot: []LootEntry{
			{types.ItemDirt, 60}, {types.ItemClay, 25},
			{types.ItemCopperOre, 10}, {types.ItemLostCoins, 5},
		},
	},
	{
		Name: "Clay Beds", MinDepth: 60, MaxDepth: 160,
		Block: types.BlockClay, BaseHardness: 2,
		TNTSpawnChance: 0.028, TNTGoldPenalty: 25, DropChance: 0.28,
		Loot: []LootEntry{
			{types.ItemClay, 50}, {types.ItemStone, 25},
			{types.ItemCopperOre, 15}, {types.ItemIronOre, 7}, {types.ItemLostCoins, 3},
		},
	},
	{
		Name: "Stone Belt", MinDepth: 160, MaxDepth: 320,
		Block: types.BlockRock, BaseHardness: 4,
		TNTSpawnChance: 0.037, TNTGoldPenalty: 60, DropChance: 0.26,
		Loot: []LootEntry{
			{types.ItemStone, 45}, {types.ItemIronOre, 30},
			{types.ItemSilverOre, 15}, {types.ItemGoldOre, 7}, {types.ItemLostCoins, 3},
		},
	},
	{
		Name: "Dense Mantle", MinDepth: 320, MaxDepth: 540,
		Block: types.BlockDenseRock, BaseHardness: 7,
		TNTSpawnChance: 0.045, TNTGoldPenalty: 150, DropChance: 0.24,
		Loot: []LootEntry{
			{types.ItemIronOre, 35}, {types.ItemSilverOre, 30},
			{types.ItemGoldOre, 20}, {types.ItemRuby, 10}, {types.ItemLostCoins, 5},
		},
	},
	{
		Name: "Obsidian Fields", MinDepth: 540, MaxDepth: 800,
		Block: types.BlockObsidian, BaseHardness: 11,
		TNTSpawnChance: 0.054, TNTGoldPenalty: 400, DropChance: 0.22,
		Loot: []LootEntry{
			{types.ItemObsidianShard, 40}, {types.ItemGoldOre, 25},
			{types.ItemRuby, 18}, {types.ItemEmerald, 12}, {types.ItemAncientRelic, 5},
		},
	},
	{
		Name: "Cold Magma Shelf", MinDepth: 800, MaxDepth: 1050,
		Block: types.BlockColdMagma, BaseHardness: 16,
		TNTSpawnChance: 0.063, TNTGoldPenalty: 1000, DropChance: 0.19,
		Loot: []LootEntry{
			{types.ItemMagmaCore, 35}, {types.ItemRuby, 25},
			{types.ItemEmerald, 20}, {types.ItemDiamond, 12}, {types.ItemAncientRelic, 8},
		},
	},
	{
		Name: "Deep Magma Shelf", MinDepth: 1050, MaxDepth: 1201,
		Block: types.BlockColdMagma, BaseHardness: 22,
		TNTSpawnChance: 0.071, TNTGoldPenalty: 2500, DropChance: 0.17,
		Loot: []LootEntry{
			{types.ItemMagmaCore, 40}, {types.ItemEmerald, 22},
			{types.ItemDiamond, 20}, {types.ItemAncientRelic, 18},
		},
	},
	{
		Name: "Void Reaches", MinDepth: 1201, MaxDepth: -1,
		Block: types.BlockVoidStone, BaseHardness: 30,
		TNTSpawnChance: 0.080, TNTGoldPenalty: 5000, DropChance: 0.15,
		Loot: []LootEntry{
			{types.ItemVoidCrystal, 40}, {types.ItemDiamond, 30},
			{types.ItemAncientRelic, 30},
		},
	},
}

// LayerAt returns the band containing depth y. Negative depths belong
// to the surface band.
func LayerAt(y int) *Layer {
	for i := range Layers {
		l := &Layers[i]
		if y >= l.MinDepth && (l.MaxDepth < 0 || y < l.MaxDepth) {
			return l
		}
	}
	return &Layers[0]
}

// LayerBelow returns the band beneath the one containing y, or the
// deepest band when already at the bottom.
func LayerBelow(y int) *Layer {
	l := LayerAt(y)
	if l.MaxDepth < 0 {
		return l
	}
	return LayerAt(l.MaxDepth)
}

// HardnessAt is the fresh-block hp at depth y. Only void stone scales
// with depth.
func HardnessAt(y int) float64 {
	l := LayerAt(y)
	if l.Block == types.BlockVoidStone && y > VoidHardnessDepth {
		return l.BaseHardness + float64(y-VoidHardnessDepth)*0.01
	}
	return l.BaseHardness
}

// --- Equipment Tiers ---

// MaxEquipmentTier caps every slot; purchases advance one tier at a time.
const MaxEquipmentTier = 7

type ShovelStat struct {
	Damage float64
	Price  int // cost to buy this tier (tier 1 is the free starter)
}

type HelmetStat struct {
	MaxDepth int
	Price    int
}

type VestStat struct {
	// Protection is the cave-in save chance as a fraction in [0, 0.95];
	// the roll is rng() < Protection with no further scaling.
	Protection float64
	BonusSlots int
	Price      int
}

type TorchStat struct {
	Radius float64
	Price  int
}

// RopeStat ascent is either a finite climb rate or an instant teleport
// to the surface (tier 7).
type RopeStat struct {
	BlocksPerSec   float64
	Teleport       bool
	MaxCheckpoints int
	Price          int
}

// Index 0 is unused; tiers run 1..7.
var (
	ShovelTiers = [MaxEquipmentTier + 1]ShovelStat{
		{}, {Damage: 1}, {Damage: 2, Price: 50}, {Damage: 4, Price: 200},
		{Damage: 7, Price: 800}, {Damage: 12, Price: 2500},
		{Damage: 25, Price: 8000}, {Damage: 48, Price: 25000},
	}
	HelmetTiers = [MaxEquipmentTier + 1]HelmetStat{
		{}, {MaxDepth: 100}, {MaxDepth: 250, Price: 60}, {MaxDepth: 500, Price: 250},
		{MaxDepth: 900, Price: 900}, {MaxDepth: 1500, Price: 3000},
		{MaxDepth: 3000, Price: 9000}, {MaxDepth: 100000, Price: 30000},
	}
	VestTiers = [MaxEquipmentTier + 1]VestStat{
		{}, {Protection: 0, BonusSlots: 0}, {Protection: 0.10, BonusSlots: 1, Price: 80},
		{Protection: 0.25, BonusSlots: 2, Price: 300}, {Protection: 0.40, BonusSlots: 4, Price: 1000},
		{Protection: 0.55, BonusSlots: 6, Price: 3500}, {Protection: 0.75, BonusSlots: 9, Price: 10000},
		{Protection: 0.95, BonusSlots: 12, Price: 32000},
	}
	TorchTiers = [MaxEquipmentTier + 1]TorchStat{
		{}, {Radius: 3}, {Radius: 4, Price: 40}, {Radius: 5, Price: 150},
		{Radius: 6, Price: 600}, {Radius: 7, Price: 2000},
		{Radius: 8, Price: 7000}, {Radius: 10, Price: 20000},
	}
	RopeTiers = [MaxEquipmentTier + 1]RopeStat{
		{}, {BlocksPerSec: 2, MaxCheckpoints: 1}, {BlocksPerSec: 3, MaxCheckpoints: 2, Price: 50},
		{BlocksPerSec: 4, MaxCheckpoints: 3, Price: 180}, {BlocksPerSec: 6, MaxCheckpoints: 4, Price: 700},
		{BlocksPerSec: 8, MaxCheckpoints: 5, Price: 2200}, {BlocksPerSec: 12, MaxCheckpoints: 6, Price: 7500},
		{Teleport: true, MaxCheckpoints: 8, Price: 22000},
	}
)

func clampTier(t int) int {
	if t < 1 {
		return 1
	}
	if t > MaxEquipmentTier {
		return MaxEquipmentTier
	}
	return t
}

func ShovelDamage(tier int) float64   { return ShovelTiers[clampTier(tier)].Damage }
func HelmetMaxDepth(tier int) int     { return HelmetTiers[clampTier(tier)].MaxDepth }
func VestProtection(tier int) float64 { return VestTiers[clampTier(tier)].Protection }
func VestBonusSlots(tier int) int     { return VestTiers[clampTier(tier)].BonusSlots }
func TorchRadius(tier int) float64    { return TorchTiers[clampTier(tier)].Radius }
func RopeCheckpoints(tier int) int    { return RopeTiers[clampTier(tier)].MaxCheckpoints }

// RopeAscentMs is how long climbing from the given depth takes. Zero
// for the teleport rope and for players already at the surface.
func RopeAscentMs(tier int, depth float64) int {
	r := RopeTiers[clampTier(tier)]
	if r.Teleport || depth <= 0 {
		return 0
	}
	return int(depth / r.BlocksPerSec * 1000)
}

// TierPrice is the cost of buying the given tier for a slot.
func TierPrice(slot types.EquipmentSlot, tier int) int {
	t := clampTier(tier)
	switch slot {
	case types.SlotShovel:
		return ShovelTiers[t].Price
	case types.SlotHelmet:
		return HelmetTiers[t].Price
	case types.SlotVest:
		return VestTiers[t].Price
	case types.SlotTorch:
		return TorchTiers[t].Price
	case types.SlotRope:
		return RopeTiers[t].Price
	}
	return math.MaxInt32
}

// --- Inventory Upgrades ---

var (
	InventoryUpgradeSlots  = []int{8, 12, 16, 20, 25, 30}
	InventoryUpgradePrices = []int{0, 100, 400, 1200, 4000, 15000}
)
