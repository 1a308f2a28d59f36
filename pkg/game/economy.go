package game

import "deepmine/pkg/types"

// The economy engine is pure: every Process* function reads a player
// snapshot and returns a result describing the mutation; the shard
// applies successful results to authoritative state. A failed result
// carries an error string and implies no mutation at all.

// --- Selling ---

type SellLine struct {
	Item      types.ItemType
	Quantity  int
	UnitPrice int
	Total     int
}

type SellResult struct {
	Success     bool
	Lines       []SellLine
	TotalEarned int
	NewGold     int
	Err         string
}

// ProcessSell prices a sell request. An empty request sells every
// non-empty slot. Any single short line fails the whole request with
// no partial progress.
func ProcessSell(p *types.Player, items []types.SellItem) SellResult {
	if len(items) == 0 {
		// Sell-all: collapse the inventory into per-item lines.
		totals := map[types.ItemType]int{}
		var order []types.ItemType
		for _, s := range p.Inventory {
			if s.Empty() {
				continue
			}
			if totals[s.Item] == 0 {
				order = append(order, s.Item)
			}
			totals[s.Item] += s.Quantity
		}
		for _, it := range order {
			items = append(items, types.SellItem{Item: it, Quantity: totals[it]})
		}
	}

	res := SellResult{NewGold: p.Gold}
	requested := map[types.ItemType]int{}
	for _, req := range items {
		if req.Quantity <= 0 {
			return SellResult{Err: "invalid quantity"}
		}
		price, ok := ItemPrices[req.Item]
		if !ok {
			return SellResult{Err: "unknown item"}
		}
		// Holdings must cover the cumulative request across lines, not
		// each line in isolation.
		requested[req.Item] += req.Quantity
		if p.CountItem(req.Item) < requested[req.Item] {
			return SellResult{Err: "insufficient items"}
		}
		line := SellLine{Item: req.Item, Quantity: req.Quantity, UnitPrice: price, Total: price * req.Quantity}
		res.Lines = append(res.Lines, line)
		res.TotalEarned += line.Total
	}
	res.Success = true
	res.NewGold = p.Gold + res.TotalEarned
	return res
}

// ApplySell removes the sold items (last-filled slots first within each
// item type) and credits the gold.
func ApplySell(p *types.Player, res SellResult) {
	if !res.Success {
		return
	}
	for _, line := range res.Lines {
		remaining := line.Quantity
		for i := len(p.Inventory) - 1; i >= 0 && remaining > 0; i-- {
			s := &p.Inventory[i]
			if s.Item != line.Item {
				continue
			}
			take := s.Quantity
			if take > remaining {
				take = remaining
			}
			s.Quantity -= take
			remaining -= take
			if s.Quantity == 0 {
				*s = types.InventorySlot{}
			}
		}
	}
	p.Gold = res.NewGold
	p.TotalGoldEarned += res.TotalEarned
}

// --- Equipment Purchases ---

type PurchaseResult struct {
	Success bool
	Slot    types.EquipmentSlot
	NewTier int
	Price   int
	NewGold int
	Err     string
}

// ProcessEquipmentPurchase advances a slot by exactly one tier. The
// requested tier in the client frame is advisory; skipping is never
// possible.
func ProcessEquipmentPurchase(p *types.Player, slot types.EquipmentSlot) PurchaseResult {
	current := p.Equipment.Tier(slot)
	if current == 0 {
		return PurchaseResult{Slot: slot, Err: "unknown equipment slot"}
	}
	if current >= MaxEquipmentTier {
		return PurchaseResult{Slot: slot, Err: "already at max tier"}
	}
	next := current + 1
	price := TierPrice(slot, next)
	if p.Gold < price {
		return PurchaseResult{Slot: slot, Err: "not enough gold"}
	}
	return PurchaseResult{Success: true, Slot: slot, NewTier: next, Price: price, NewGold: p.Gold - price}
}

func ApplyEquipmentPurchase(p *types.Player, res PurchaseResult) {
	if !res.Success {
		return
	}
	p.Equipment.SetTier(res.Slot, res.NewTier)
	p.Gold = res.NewGold
}

// --- Inventory Upgrades ---

type UpgradeResult struct {
	Success  bool
	NewLevel int
	NewSlots int
	Price    int
	NewGold  int
	Err      string
}

func ProcessInventoryUpgrade(p *types.Player) UpgradeResult {
	if p.InventoryUpgradeLevel >= len(InventoryUpgradePrices)-1 {
		return UpgradeResult{Err: "already at max level"}
	}
	next := p.InventoryUpgradeLevel + 1
	price := InventoryUpgradePrices[next]
	if p.Gold < price {
		return UpgradeResult{Err: "not enough gold"}
	}
	return UpgradeResult{
		Success:  true,
		NewLevel: next,
		NewSlots: InventoryUpgradeSlots[next],
		Price:    price,
		NewGold:  p.Gold - price,
	}
}

func ApplyInventoryUpgrade(p *types.Player, res UpgradeResult) {
	if !res.Success {
		return
	}
	p.InventoryUpgradeLevel = res.NewLevel
	p.MaxInventorySlots = res.NewSlots
	for len(p.Inventory) < res.NewSlots {
		p.Inventory = append(p.Inventory, types.InventorySlot{})
	}
	p.Gold = res.NewGold
}

// --- Capacity & Stacking ---

// EffectiveCapacity is base slots plus the vest bonus. The bonus slots
// are extra slot indices in capacity checks only; the underlying slice
// still grows lazily when they are used.
func EffectiveCapacity(p *types.Player) int {
	return p.MaxInventorySlots + VestBonusSlots(p.Equipment.Vest)
}

// AddToInventory stacks into existing slots first, then opens new ones
// up to the effective capacity. Returns false (no mutation) when the
// quantity does not fit.
func AddToInventory(p *types.Player, item types.ItemType, qty int) bool {
	if qty <= 0 {
		return true
	}
	capacity := EffectiveCapacity(p)

	// Plan fit against a scratch copy of the quantities.
	type slotPlan struct {
		index int
		add   int
	}
	var plan []slotPlan
	remaining := qty
	for i := range p.Inventory {
		s := p.Inventory[i]
		if s.Item == item && s.Quantity < MaxStackSize {
			add := MaxStackSize - s.Quantity
			if add > remaining {
				add = remaining
			}
			plan = append(plan, slotPlan{i, add})
			remaining -= add
			if remaining == 0 {
				break
			}
		}
	}
	used := p.UsedSlots()
	nextIndex := len(p.Inventory)
	for remaining > 0 {
		// Reuse an emptied slot before growing.
		reused := -1
		for i := range p.Inventory {
			already := false
			for _, pl := range plan {
				if pl.index == i {
					already = true
					break
				}
			}
			if !already && p.Inventory[i].Empty() {
				reused = i
				break
			}
		}
		idx := reused
		if idx < 0 {
			if nextIndex >= capacity {
				return false
			}
			idx = nextIndex
			nextIndex++
		}
		if used >= capacity {
			return false
		}
		add := MaxStackSize
		if add > remaining {
			add = remaining
		}
		plan = append(plan, slotPlan{idx, add})
		remaining -= add
		used++
	}

	for _, pl := range plan {
		for len(p.Inventory) <= pl.index {
			p.Inventory = append(p.Inventory, types.InventorySlot{})
		}
		s := &p.Inventory[pl.index]
		if s.Empty() {
			*s = types.InventorySlot{Item: item, Quantity: pl.add}
		} else {
			s.Quantity += pl.add
		}
	}
	return true
}

// RemoveRandomItems discards up to n single items, used by cave-ins.
// The draw function supplies randomness so the event stream stays the
// single source of entropy.
func RemoveRandomItems(p *types.Player, n int, draw func(int) int) []types.ItemType {
	var lost []types.ItemType
	for len(lost) < n {
		var filled []int
		for i, s := range p.Inventory {
			if !s.Empty() {
				filled = append(filled, i)
			}
		}
		if len(filled) == 0 {
			break
		}
		idx := filled[draw(len(filled))]
		s := &p.Inventory[idx]
		lost = append(lost, s.Item)
		s.Quantity--
		if s.Quantity == 0 {
			*s = types.InventorySlot{}
		}
	}
	return lost
}

// --- TNT Penalty ---

// ApplyTNTPenalty debits the depth-scaled penalty, flooring at zero.
func ApplyTNTPenalty(gold, penalty int) (goldLost, newGold int) {
	if penalty > gold {
		penalty = gold
	}
	return penalty, gold - penalty
}
