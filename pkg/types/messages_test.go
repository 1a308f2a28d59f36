package types

import (
	"strings"
	"testing"
)

func TestParseCommandVariants(t *testing.T) {
	cases := []struct {
		json string
		want interface{}
	}{
		{`{"type":"auth","token":"abc"}`, AuthCmd{Token: "abc"}},
		{`{"type":"join_quick_play"}`, JoinQuickPlayCmd{}},
		{`{"type":"create_party","maxPlayers":4}`, CreatePartyCmd{MaxPlayers: 4}},
		{`{"type":"join_party","roomCode":"ABC234"}`, JoinPartyCmd{RoomCode: "ABC234"}},
		{`{"type":"play_solo"}`, PlaySoloCmd{}},
		{`{"type":"dig","x":10,"y":1,"seq":7}`, DigCmd{Seq: 7, X: 10, Y: 1}},
		{`{"type":"move","x":1.5,"y":2.5}`, MoveCmd{X: 1.5, Y: 2.5}},
		{`{"type":"collect_item","itemId":"d1"}`, CollectItemCmd{ItemID: "d1"}},
		{`{"type":"go_surface"}`, GoSurfaceCmd{}},
		{`{"type":"sell","items":[]}`, SellCmd{Items: []SellItem{}}},
		{`{"type":"buy_equipment","slot":"shovel","tier":3}`, BuyEquipmentCmd{Slot: SlotShovel, Tier: 3}},
		{`{"type":"buy_inventory_upgrade"}`, BuyInventoryUpgradeCmd{}},
		{`{"type":"set_checkpoint","depth":120}`, SetCheckpointCmd{Depth: 120}},
		{`{"type":"chat","message":"hi"}`, ChatCmd{Message: "hi"}},
	}
	for _, c := range cases {
		got, err := ParseCommand([]byte(c.json))
		if err != nil {
			t.Errorf("%s: %v", c.json, err)
			continue
		}
		switch want := c.want.(type) {
		case SellCmd:
			if _, ok := got.(SellCmd); !ok {
				t.Errorf("%s decoded as %T", c.json, got)
			}
		default:
			if got != want {
				t.Errorf("%s = %+v, want %+v", c.json, got, want)
			}
		}
	}
}

func TestParseCommandDescendCheckpoint(t *testing.T) {
	cmd, err := ParseCommand([]byte(`{"type":"descend","checkpoint":150}`))
	if err != nil {
		t.Fatal(err)
	}
	d := cmd.(DescendCmd)
	if d.Checkpoint == nil || *d.Checkpoint != 150 {
		t.Fatalf("checkpoint = %v", d.Checkpoint)
	}

	cmd, err = ParseCommand([]byte(`{"type":"descend"}`))
	if err != nil {
		t.Fatal(err)
	}
	if cmd.(DescendCmd).Checkpoint != nil {
		t.Fatal("absent checkpoint decoded as non-nil")
	}
}

func TestParseCommandErrors(t *testing.T) {
	if _, err := ParseCommand([]byte(`{not json`)); err == nil || !strings.Contains(err.Error(), ErrInvalidMessage) {
		t.Fatalf("garbage frame: %v", err)
	}
	if _, err := ParseCommand([]byte(`{"type":"teleport_home"}`)); err == nil || !strings.Contains(err.Error(), ErrUnknownType) {
		t.Fatalf("unknown type: %v", err)
	}
	if _, err := ParseCommand([]byte(`{"type":"dig","x":"ten"}`)); err == nil || !strings.Contains(err.Error(), ErrInvalidMessage) {
		t.Fatalf("bad payload: %v", err)
	}
}

func TestPlayerRecordRoundTrip(t *testing.T) {
	p := &Player{
		ID: "p1", DisplayName: "Digger", Gold: 500,
		Equipment:         Equipment{Shovel: 3, Helmet: 2, Vest: 1, Torch: 4, Rope: 2},
		Inventory:         make([]InventorySlot, 12),
		MaxInventorySlots: 12, InventoryUpgradeLevel: 1,
		MaxDepthReached: 340, Checkpoints: []int{100, 300},
		TotalBlocksMined: 900, TotalGoldEarned: 4000, TotalExplosions: 3,
	}
	p.Inventory[2] = InventorySlot{Item: ItemGoldOre, Quantity: 7}

	rec := p.ToRecord("shard-a")
	back := rec.ToPlayer("shard-a")

	if back.Gold != 500 || back.Equipment != p.Equipment || back.MaxDepthReached != 340 {
		t.Fatalf("core fields lost: %+v", back)
	}
	if back.Inventory[2].Item != ItemGoldOre || back.Inventory[2].Quantity != 7 {
		t.Fatalf("inventory slot lost: %+v", back.Inventory)
	}
	if len(back.Checkpoints) != 2 {
		t.Fatalf("checkpoints = %v", back.Checkpoints)
	}
	// Checkpoints belong to their shard.
	if other := rec.ToPlayer("shard-b"); len(other.Checkpoints) != 0 {
		t.Fatalf("foreign shard inherited checkpoints: %v", other.Checkpoints)
	}
}
