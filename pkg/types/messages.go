package types

import (
	"encoding/json"
	"fmt"
)

// --- Error codes ---

const (
	ErrInvalidMessage   = "INVALID_MESSAGE"
	ErrNotAuthenticated = "NOT_AUTHENTICATED"
	ErrNotInShard       = "NOT_IN_SHARD"
	ErrUnknownType      = "UNKNOWN_TYPE"
	ErrStunned          = "STUNNED"
	ErrNotAdjacent      = "NOT_ADJACENT"
	ErrDepthLimit       = "DEPTH_LIMIT"
	ErrNoBlock          = "NO_BLOCK"
	ErrRateLimited      = "RATE_LIMITED"
	ErrSellFailed       = "SELL_FAILED"
	ErrChatRateLimit    = "CHAT_RATE_LIMIT"
)

// --- Commands (client -> server) ---

// Command is the tagged union of everything a client may send. Handlers
// type-switch on the concrete payload; structural matching is never used.
type Command interface{ isCommand() }

type AuthCmd struct {
	Token string `json:"token,omitempty"`
}

type JoinQuickPlayCmd struct{}

type CreatePartyCmd struct {
	MaxPlayers int `json:"maxPlayers,omitempty"`
}

type JoinPartyCmd struct {
	RoomCode string `json:"roomCode"`
}

type PlaySoloCmd struct{}

type DigCmd struct {
	Seq       int   `json:"seq"`
	X         int   `json:"x"`
	Y         int   `json:"y"`
	Timestamp int64 `json:"timestamp"`
}

type MoveCmd struct {
	Seq int     `json:"seq"`
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
}

type CollectItemCmd struct {
	Seq    int    `json:"seq"`
	ItemID string `json:"itemId"`
}

type GoSurfaceCmd struct{}

type SellCmd struct {
	// Items empty means "sell everything".
	Items []SellItem `json:"items"`
}

type SellItem struct {
	Item     ItemType `json:"itemType"`
	Quantity int      `json:"quantity"`
}

type BuyEquipmentCmd struct {
	Slot EquipmentSlot `json:"slot"`
	Tier int           `json:"tier,omitempty"` // advisory only; tiers never skip
}

type BuyInventoryUpgradeCmd struct{}

type SetCheckpointCmd struct {
	Depth int `json:"depth"`
}

type DescendCmd struct {
	Checkpoint *int `json:"checkpoint,omitempty"`
}

type ChatCmd struct {
	Message string `json:"message"`
}

func (AuthCmd) isCommand()                {}
func (JoinQuickPlayCmd) isCommand()       {}
func (CreatePartyCmd) isCommand()         {}
func (JoinPartyCmd) isCommand()           {}
func (PlaySoloCmd) isCommand()            {}
func (DigCmd) isCommand()                 {}
func (MoveCmd) isCommand()                {}
func (CollectItemCmd) isCommand()         {}
func (GoSurfaceCmd) isCommand()           {}
func (SellCmd) isCommand()                {}
func (BuyEquipmentCmd) isCommand()        {}
func (BuyInventoryUpgradeCmd) isCommand() {}
func (SetCheckpointCmd) isCommand()       {}
func (DescendCmd) isCommand()             {}
func (ChatCmd) isCommand()                {}

type envelope struct {
	Type string `json:"type"`
}

// ParseCommand decodes a JSON text frame into its concrete command.
// Unparseable frames and unknown types are distinguished so the gateway
// can answer INVALID_MESSAGE vs UNKNOWN_TYPE.
func ParseCommand(data []byte) (Command, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrInvalidMessage, err)
	}
	var (
		cmd Command
		err error
	)
	switch env.Type {
	case "auth":
		c := AuthCmd{}
		err = json.Unmarshal(data, &c)
		cmd = c
	case "join_quick_play":
		cmd = JoinQuickPlayCmd{}
	case "create_party":
		c := CreatePartyCmd{}
		err = json.Unmarshal(data, &c)
		cmd = c
	case "join_party":
		c := JoinPartyCmd{}
		err = json.Unmarshal(data, &c)
		cmd = c
	case "play_solo":
		cmd = PlaySoloCmd{}
	case "dig":
		c := DigCmd{}
		err = json.Unmarshal(data, &c)
		cmd = c
	case "move":
		c := MoveCmd{}
		err = json.Unmarshal(data, &c)
		cmd = c
	case "collect_item":
		c := CollectItemCmd{}
		err = json.Unmarshal(data, &c)
		cmd = c
	case "go_surface":
		cmd = GoSurfaceCmd{}
	case "sell":
		c := SellCmd{}
		err = json.Unmarshal(data, &c)
		cmd = c
	case "buy_equipment":
		c := BuyEquipmentCmd{}
		err = json.Unmarshal(data, &c)
		cmd = c
	case "buy_inventory_upgrade":
		cmd = BuyInventoryUpgradeCmd{}
	case "set_checkpoint":
		c := SetCheckpointCmd{}
		err = json.Unmarshal(data, &c)
		cmd = c
	case "descend":
		c := DescendCmd{}
		err = json.Unmarshal(data, &c)
		cmd = c
	case "chat":
		c := ChatCmd{}
		err = json.Unmarshal(data, &c)
		cmd = c
	default:
		return nil, fmt.Errorf("%s: %q", ErrUnknownType, env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrInvalidMessage, err)
	}
	return cmd, nil
}

// --- Responses (server -> client) ---

// Message is any server-to-client frame.
type Message interface{ isMessage() }

type WelcomeMsg struct {
	Type        string  `json:"type"`
	PlayerID    string  `json:"playerId"`
	DisplayName string  `json:"displayName"`
	Token       string  `json:"token,omitempty"`
	State       *Player `json:"state,omitempty"`
	ShardID     string  `json:"shardId,omitempty"`
}

type MatchmakingResultMsg struct {
	Type     string `json:"type"`
	Success  bool   `json:"success"`
	ShardID  string `json:"shardId,omitempty"`
	RoomCode string `json:"roomCode,omitempty"`
	Error    string `json:"error,omitempty"`
}

type WorldChunkMsg struct {
	Type   string  `json:"type"`
	ChunkY int     `json:"chunkY"`
	Blocks []Block `json:"blocks"`
}

type RevealBlockMsg struct {
	Type      string    `json:"type"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	BlockType BlockType `json:"blockType"`
	HP        float64   `json:"hp"`
	MaxHP     float64   `json:"maxHp"`
}

type BlockUpdateMsg struct {
	Type      string  `json:"type"`
	X         int     `json:"x"`
	Y         int     `json:"y"`
	NewHP     float64 `json:"newHp"`
	Destroyed bool    `json:"destroyed"`
	Actor     string  `json:"actor"`
}

type BlockDestroyedMsg struct {
	Type  string    `json:"type"`
	X     int       `json:"x"`
	Y     int       `json:"y"`
	Actor string    `json:"actor"`
	Drop  *DropItem `json:"drop,omitempty"`
}

type ExplosionPhaseMsg struct {
	CenterX   int      `json:"centerX"`
	CenterY   int      `json:"centerY"`
	Destroyed [][2]int `json:"destroyed"`
	DelayMs   int      `json:"delayMs"`
}

type ExplosionMsg struct {
	Type            string              `json:"type"`
	CenterX         int                 `json:"centerX"`
	CenterY         int                 `json:"centerY"`
	Radius          int                 `json:"radius"`
	DestroyedBlocks [][2]int            `json:"destroyedBlocks"`
	Chain           []ExplosionPhaseMsg `json:"chain"`
	GoldPenalty     int                 `json:"goldPenalty"`
	AffectedPlayer  string              `json:"affectedPlayer"`
	PlayerLaunchToY int                 `json:"playerLaunchToY"`
}

type PlayerStateUpdateMsg struct {
	Type  string  `json:"type"`
	State *Player `json:"state"`
}

type SellResultLineMsg struct {
	Item      ItemType `json:"itemType"`
	Quantity  int      `json:"quantity"`
	UnitPrice int      `json:"unitPrice"`
	Total     int      `json:"total"`
}

type SellResultMsg struct {
	Type            string              `json:"type"`
	Success         bool                `json:"success"`
	Items           []SellResultLineMsg `json:"items,omitempty"`
	TotalGoldEarned int                 `json:"totalGoldEarned"`
	NewGoldBalance  int                 `json:"newGoldBalance"`
	Error           string              `json:"error,omitempty"`
}

type BuyResultMsg struct {
	Type      string        `json:"type"`
	Success   bool          `json:"success"`
	Slot      EquipmentSlot `json:"slot,omitempty"`
	NewTier   int           `json:"newTier,omitempty"`
	NewLevel  int           `json:"newLevel,omitempty"`
	NewSlots  int           `json:"newSlots,omitempty"`
	GoldSpent int           `json:"goldSpent"`
	NewGold   int           `json:"newGold"`
	Error     string        `json:"error,omitempty"`
}

type CollectResultMsg struct {
	Type    string   `json:"type"`
	Success bool     `json:"success"`
	ItemID  string   `json:"itemId"`
	Item    ItemType `json:"itemType,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type InventoryFullMsg struct {
	Type   string `json:"type"`
	ItemID string `json:"itemId,omitempty"`
}

type EventMsg struct {
	Type      string                 `json:"type"`
	EventType string                 `json:"eventType"`
	Detail    map[string]interface{} `json:"detail,omitempty"`
}

type OtherPlayerJoinedMsg struct {
	Type        string  `json:"type"`
	PlayerID    string  `json:"playerId"`
	DisplayName string  `json:"displayName"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

type OtherPlayerLeftMsg struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
}

type OtherPlayerUpdateMsg struct {
	Type     string  `json:"type"`
	PlayerID string  `json:"playerId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Action   uint8   `json:"action"`
}

type ChatMessageMsg struct {
	Type        string `json:"type"`
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	Message     string `json:"message"`
}

type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

func (WelcomeMsg) isMessage()           {}
func (MatchmakingResultMsg) isMessage() {}
func (WorldChunkMsg) isMessage()        {}
func (RevealBlockMsg) isMessage()       {}
func (BlockUpdateMsg) isMessage()       {}
func (BlockDestroyedMsg) isMessage()    {}
func (ExplosionMsg) isMessage()         {}
func (PlayerStateUpdateMsg) isMessage() {}
func (SellResultMsg) isMessage()        {}
func (BuyResultMsg) isMessage()         {}
func (CollectResultMsg) isMessage()     {}
func (InventoryFullMsg) isMessage()     {}
func (EventMsg) isMessage()             {}
func (OtherPlayerJoinedMsg) isMessage() {}
func (OtherPlayerLeftMsg) isMessage()   {}
func (OtherPlayerUpdateMsg) isMessage() {}
func (ChatMessageMsg) isMessage()       {}
func (ErrorMsg) isMessage()             {}

// Constructors pin the discriminator so handlers cannot forget it.

func NewWelcome(p *Player, token, shardID string) WelcomeMsg {
	return WelcomeMsg{Type: "welcome", PlayerID: p.ID, DisplayName: p.DisplayName, Token: token, State: p, ShardID: shardID}
}

func NewError(code, msg string) ErrorMsg {
	return ErrorMsg{Type: "error", Code: code, Message: msg}
}
