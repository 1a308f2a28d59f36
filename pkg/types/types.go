package types

import "time"

// --- Blocks ---

type BlockType string

const (
	BlockDirt      BlockType = "dirt"
	BlockClay      BlockType = "clay"
	BlockRock      BlockType = "rock"
	BlockDenseRock BlockType = "dense_rock"
	BlockObsidian  BlockType = "obsidian"
	BlockColdMagma BlockType = "cold_magma"
	BlockVoidStone BlockType = "void_stone"
	BlockTNT       BlockType = "tnt"
	BlockEmpty     BlockType = "empty"

	// BlockUnknown is a display-only mask for hazards outside a torch
	// radius. It is never stored in the world.
	BlockUnknown BlockType = "unknown"
)

// IsHazard reports whether digging this block triggers the chain engine.
func (t BlockType) IsHazard() bool { return t == BlockTNT }

type Block struct {
	Type  BlockType `json:"type"`
	HP    float64   `json:"hp"`
	MaxHP float64   `json:"maxHp"`
	X     int       `json:"x"`
	Y     int       `json:"y"`
}

// --- Items & Inventory ---

type ItemType string

const (
	ItemDirt          ItemType = "dirt"
	ItemClay          ItemType = "clay"
	ItemStone         ItemType = "stone"
	ItemCopperOre     ItemType = "copper_ore"
	ItemIronOre       ItemType = "iron_ore"
	ItemSilverOre     ItemType = "silver_ore"
	ItemGoldOre       ItemType = "gold_ore"
	ItemRuby          ItemType = "ruby"
	ItemEmerald       ItemType = "emerald"
	ItemDiamond       ItemType = "diamond"
	ItemObsidianShard ItemType = "obsidian_shard"
	ItemMagmaCore     ItemType = "magma_core"
	ItemVoidCrystal   ItemType = "void_crystal"
	ItemLostCoins     ItemType = "lost_coins"
	ItemAncientRelic  ItemType = "ancient_relic"
)

// InventorySlot is empty when Item == "".
type InventorySlot struct {
	Item     ItemType `json:"itemType,omitempty"`
	Quantity int      `json:"quantity,omitempty"`
}

func (s InventorySlot) Empty() bool { return s.Item == "" || s.Quantity == 0 }

// --- Equipment ---

type EquipmentSlot string

const (
	SlotShovel EquipmentSlot = "shovel"
	SlotHelmet EquipmentSlot = "helmet"
	SlotVest   EquipmentSlot = "vest"
	SlotTorch  EquipmentSlot = "torch"
	SlotRope   EquipmentSlot = "rope"
)

// Equipment holds one tier (1..7) per slot.
type Equipment struct {
	Shovel int `json:"shovel"`
	Helmet int `json:"helmet"`
	Vest   int `json:"vest"`
	Torch  int `json:"torch"`
	Rope   int `json:"rope"`
}

func NewEquipment() Equipment {
	return Equipment{Shovel: 1, Helmet: 1, Vest: 1, Torch: 1, Rope: 1}
}

func (e Equipment) Tier(slot EquipmentSlot) int {
	switch slot {
	case SlotShovel:
		return e.Shovel
	case SlotHelmet:
		return e.Helmet
	case SlotVest:
		return e.Vest
	case SlotTorch:
		return e.Torch
	case SlotRope:
		return e.Rope
	}
	return 0
}

func (e *Equipment) SetTier(slot EquipmentSlot, tier int) {
	switch slot {
	case SlotShovel:
		e.Shovel = tier
	case SlotHelmet:
		e.Helmet = tier
	case SlotVest:
		e.Vest = tier
	case SlotTorch:
		e.Torch = tier
	case SlotRope:
		e.Rope = tier
	}
}

// --- Player ---

type Player struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`

	Gold                  int             `json:"gold"`
	Equipment             Equipment       `json:"equipment"`
	Inventory             []InventorySlot `json:"inventory"`
	MaxInventorySlots     int             `json:"maxInventorySlots"`
	InventoryUpgradeLevel int             `json:"inventoryUpgradeLevel"`
	MaxDepthReached       int             `json:"maxDepthReached"`
	Checkpoints           []int           `json:"checkpoints"`

	IsStunned   bool      `json:"isStunned"`
	StunEndTime time.Time `json:"-"`
	IsOnSurface bool      `json:"isOnSurface"`

	// Lifetime stats, persisted.
	TotalBlocksMined int `json:"totalBlocksMined"`
	TotalGoldEarned  int `json:"totalGoldEarned"`
	TotalExplosions  int `json:"totalExplosions"`

	// Transient event effects; never persisted.
	TorchBlankedUntil   time.Time `json:"-"`
	RockSlideBlocksLeft int       `json:"-"`
}

// Clone deep-copies a player so pure engines can diff before/after.
func (p *Player) Clone() *Player {
	cp := *p
	cp.Inventory = append([]InventorySlot(nil), p.Inventory...)
	cp.Checkpoints = append([]int(nil), p.Checkpoints...)
	return &cp
}

// UsedSlots counts non-empty inventory slots.
func (p *Player) UsedSlots() int {
	n := 0
	for _, s := range p.Inventory {
		if !s.Empty() {
			n++
		}
	}
	return n
}

// CountItem totals the quantity of one item across all slots.
func (p *Player) CountItem(item ItemType) int {
	n := 0
	for _, s := range p.Inventory {
		if s.Item == item {
			n += s.Quantity
		}
	}
	return n
}

// --- Drops ---

type DropItem struct {
	ID          string    `json:"id"`
	Item        ItemType  `json:"itemType"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	CollectedBy string    `json:"collectedBy,omitempty"`
	SpawnedAt   time.Time `json:"-"`
}

// --- Persisted layout ---

type InventoryEntry struct {
	SlotIndex int      `json:"slotIndex"`
	Item      ItemType `json:"itemType"`
	Quantity  int      `json:"quantity"`
}

type CheckpointEntry struct {
	ShardID string `json:"shardId"`
	Depth   int    `json:"depth"`
}

// PlayerRecord is the durable shape of a player, independent of any
// live shard.
type PlayerRecord struct {
	ID               string            `json:"id"`
	DisplayName      string            `json:"displayName"`
	Gold             int               `json:"gold"`
	ShovelTier       int               `json:"shovelTier"`
	HelmetTier       int               `json:"helmetTier"`
	VestTier         int               `json:"vestTier"`
	TorchTier        int               `json:"torchTier"`
	RopeTier         int               `json:"ropeTier"`
	InventorySlots   int               `json:"inventorySlots"`
	InventoryLevel   int               `json:"inventoryLevel"`
	MaxDepthReached  int               `json:"maxDepthReached"`
	TotalBlocksMined int               `json:"totalBlocksMined"`
	TotalGoldEarned  int               `json:"totalGoldEarned"`
	TotalExplosions  int               `json:"totalExplosions"`
	Inventory        []InventoryEntry  `json:"inventory"`
	Checkpoints      []CheckpointEntry `json:"checkpoints"`
}

// ToRecord snapshots a live player for persistence. Checkpoints are
// keyed by the shard that owns them.
func (p *Player) ToRecord(shardID string) PlayerRecord {
	rec := PlayerRecord{
		ID:               p.ID,
		DisplayName:      p.DisplayName,
		Gold:             p.Gold,
		ShovelTier:       p.Equipment.Shovel,
		HelmetTier:       p.Equipment.Helmet,
		VestTier:         p.Equipment.Vest,
		TorchTier:        p.Equipment.Torch,
		RopeTier:         p.Equipment.Rope,
		InventorySlots:   p.MaxInventorySlots,
		InventoryLevel:   p.InventoryUpgradeLevel,
		MaxDepthReached:  p.MaxDepthReached,
		TotalBlocksMined: p.TotalBlocksMined,
		TotalGoldEarned:  p.TotalGoldEarned,
		TotalExplosions:  p.TotalExplosions,
	}
	for i, s := range p.Inventory {
		if !s.Empty() {
			rec.Inventory = append(rec.Inventory, InventoryEntry{SlotIndex: i, Item: s.Item, Quantity: s.Quantity})
		}
	}
	for _, d := range p.Checkpoints {
		rec.Checkpoints = append(rec.Checkpoints, CheckpointEntry{ShardID: shardID, Depth: d})
	}
	return rec
}

// ToPlayer rebuilds a live player from a record. Only checkpoints for
// the given shard are loaded.
func (r PlayerRecord) ToPlayer(shardID string) *Player {
	p := &Player{
		ID:                    r.ID,
		DisplayName:           r.DisplayName,
		Gold:                  r.Gold,
		Equipment:             Equipment{Shovel: r.ShovelTier, Helmet: r.HelmetTier, Vest: r.VestTier, Torch: r.TorchTier, Rope: r.RopeTier},
		Inventory:             make([]InventorySlot, r.InventorySlots),
		MaxInventorySlots:     r.InventorySlots,
		InventoryUpgradeLevel: r.InventoryLevel,
		MaxDepthReached:       r.MaxDepthReached,
		TotalBlocksMined:      r.TotalBlocksMined,
		TotalGoldEarned:       r.TotalGoldEarned,
		TotalExplosions:       r.TotalExplosions,
		IsOnSurface:           true,
	}
	for _, e := range r.Inventory {
		if e.SlotIndex >= 0 && e.SlotIndex < len(p.Inventory) {
			p.Inventory[e.SlotIndex] = InventorySlot{Item: e.Item, Quantity: e.Quantity}
		}
	}
	for _, c := range r.Checkpoints {
		if c.ShardID == shardID {
			p.Checkpoints = append(p.Checkpoints, c.Depth)
		}
	}
	return p
}
