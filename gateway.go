package main

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"deepmine/pkg/core"
	"deepmine/pkg/game"
	"deepmine/pkg/types"
)

const (
	maxFrameSize     = 4096
	outboundQueueLen = 64
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = 30 * time.Second
	guestTokenTTL    = 7 * 24 * time.Hour
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origin is not enforced; the game client is served cross-origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Gateway owns the websocket endpoint: upgrades, the auth handshake,
// and routing of decoded commands to matchmaking or a shard.
type Gateway struct {
	manager  *ShardManager
	registry *SessionRegistry
	store    PersistenceStore
	clock    Clock
	started  time.Time
}

func NewGateway(manager *ShardManager, registry *SessionRegistry, store PersistenceStore, clock Clock) *Gateway {
	g := &Gateway{manager: manager, registry: registry, store: store, clock: clock, started: clock.Now()}
	manager.OnPlayerRemoved = registry.Drop
	// A session reaped by the sweeper also vacates the shard seat; the
	// call is a no-op when the grace timer already removed the player.
	registry.OnExpired = func(playerID, shardID string) {
		if shard := manager.ShardByID(shardID); shard != nil {
			shard.RemovePlayer(playerID)
		}
	}
	return g
}

func (g *Gateway) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", g.handleWS)
	mux.HandleFunc("/healthz", g.handleHealthz)
}

func (g *Gateway) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":        "ok",
		"shards":        g.manager.ShardCount(),
		"players":       g.manager.PlayerTotal(),
		"uptimeSeconds": int(g.clock.Now().Sub(g.started).Seconds()),
	})
}

// --- Client Connection ---

type outFrame struct {
	binary bool
	data   []byte
}

// ClientConn is one websocket client. Outbound frames go through a
// buffered channel; a stalled client loses frames rather than stalling
// the shard goroutine.
type ClientConn struct {
	ws   *websocket.Conn
	send chan outFrame

	playerID    string
	displayName string
	authed      bool
	inShard     bool

	closeOnce sync.Once
	closed    chan struct{}
}

func newClientConn(ws *websocket.Conn) *ClientConn {
	return &ClientConn{
		ws:     ws,
		send:   make(chan outFrame, outboundQueueLen),
		closed: make(chan struct{}),
	}
}

func (c *ClientConn) SendJSON(msg types.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		ErrorLog.Printf("marshal outbound frame: %v", err)
		return
	}
	c.enqueue(outFrame{data: data})
}

func (c *ClientConn) SendBinary(frame []byte) {
	c.enqueue(outFrame{binary: true, data: frame})
}

func (c *ClientConn) enqueue(f outFrame) {
	select {
	case <-c.closed:
	case c.send <- f:
	default:
		// Queue full: drop. State-bearing frames are resent on the
		// next update; the client resyncs on reconnect otherwise.
		ErrorLog.Printf("outbound queue full for %s, frame dropped", c.playerID)
	}
}

func (c *ClientConn) CloseWithCode(code int, reason string) {
	c.closeOnce.Do(func() {
		deadline := time.Now().Add(writeWait)
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason), deadline)
		close(c.closed)
		c.ws.Close()
	})
}

func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.closed:
			return
		case f := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			kind := websocket.TextMessage
			if f.binary {
				kind = websocket.BinaryMessage
			}
			if err := c.ws.WriteMessage(kind, f.data); err != nil {
				c.CloseWithCode(1011, "write failed")
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.CloseWithCode(1011, "ping failed")
				return
			}
		}
	}
}

// --- Upgrade & Read Loop ---

func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	if !getLimiter(ip).Allow() {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ErrorLog.Printf("upgrade from %s: %v", ip, err)
		return
	}

	conn := newClientConn(ws)
	go conn.writePump()
	g.readLoop(conn)
}

func (g *Gateway) readLoop(conn *ClientConn) {
	defer g.onSocketGone(conn)

	conn.ws.SetReadLimit(maxFrameSize)
	conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		conn.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		kind, data, err := conn.ws.ReadMessage()
		if err != nil {
			return
		}
		var cmd types.Command
		switch kind {
		case websocket.TextMessage:
			cmd, err = types.ParseCommand(data)
		case websocket.BinaryMessage:
			cmd, err = types.DecodeBinaryCommand(data)
		default:
			continue
		}
		if err != nil {
			conn.SendJSON(decodeError(err))
			continue
		}
		g.route(conn, cmd)
	}
}

// decodeError maps a parse failure onto its protocol error code.
func decodeError(err error) types.ErrorMsg {
	code := types.ErrInvalidMessage
	if s := err.Error(); len(s) >= len(types.ErrUnknownType) && s[:len(types.ErrUnknownType)] == types.ErrUnknownType {
		code = types.ErrUnknownType
	}
	return types.NewError(code, err.Error())
}

// onSocketGone runs when the read loop exits for any reason. A player
// inside a shard gets the grace window instead of immediate removal.
func (g *Gateway) onSocketGone(conn *ClientConn) {
	conn.CloseWithCode(1000, "")
	if !conn.authed {
		return
	}
	if conn.inShard {
		if shard := g.manager.ShardFor(conn.playerID); shard != nil {
			shard.OnPlayerDisconnect(conn.playerID)
		}
		g.registry.MarkDisconnected(conn.playerID)
	}
}

// --- Routing ---

func (g *Gateway) route(conn *ClientConn, cmd types.Command) {
	if !conn.authed {
		if auth, ok := cmd.(types.AuthCmd); ok {
			g.handleAuth(conn, auth)
		} else {
			conn.SendJSON(types.NewError(types.ErrNotAuthenticated, "auth required first"))
		}
		return
	}

	switch c := cmd.(type) {
	case types.AuthCmd:
		conn.SendJSON(types.NewError(types.ErrInvalidMessage, "already authenticated"))
	case types.JoinQuickPlayCmd:
		g.handleMatchmaking(conn, func() (*Shard, error) { return g.manager.QuickPlay(conn.playerID), nil })
	case types.CreatePartyCmd:
		g.handleMatchmaking(conn, func() (*Shard, error) { return g.manager.CreateParty(conn.playerID, c.MaxPlayers), nil })
	case types.JoinPartyCmd:
		g.handleMatchmaking(conn, func() (*Shard, error) { return g.manager.JoinParty(conn.playerID, c.RoomCode) })
	case types.PlaySoloCmd:
		g.handleMatchmaking(conn, func() (*Shard, error) { return g.manager.PlaySolo(conn.playerID), nil })
	default:
		if !conn.inShard {
			conn.SendJSON(types.NewError(types.ErrNotInShard, "join a game first"))
			return
		}
		shard := g.manager.ShardFor(conn.playerID)
		if shard == nil {
			conn.inShard = false
			conn.SendJSON(types.NewError(types.ErrNotInShard, "shard is gone"))
			return
		}
		shard.Enqueue(conn.playerID, cmd)
	}
}

// --- Auth ---

func (g *Gateway) handleAuth(conn *ClientConn, cmd types.AuthCmd) {
	now := g.clock.Now()

	if cmd.Token != "" {
		if claims, ok := core.VerifyToken(Config.Secret, cmd.Token, now); ok {
			g.resumeOrRestore(conn, claims, cmd.Token)
			return
		}
		// Fall through: a dead token becomes a fresh guest identity.
		InfoLog.Printf("rejected stale or invalid token, issuing guest identity")
	}

	id := newID()
	name := randomDisplayName()
	token := core.SignToken(Config.Secret, core.TokenClaims{
		PlayerID: id, DisplayName: name, IsGuest: true,
		Expiry: now.Add(guestTokenTTL).Unix(),
	})
	conn.playerID = id
	conn.displayName = name
	conn.authed = true

	p := newPlayer(id, name)
	conn.SendJSON(types.NewWelcome(p, token, ""))
	InfoLog.Printf("guest %s (%s) authenticated", name, id)
}

// resumeOrRestore handles a valid token: rebind to a live shard
// session when one exists, otherwise welcome back with persisted state.
func (g *Gateway) resumeOrRestore(conn *ClientConn, claims core.TokenClaims, token string) {
	conn.playerID = claims.PlayerID
	conn.displayName = claims.DisplayName
	conn.authed = true

	if shardID, ok := g.registry.Resume(claims.PlayerID); ok {
		if shard := g.manager.ShardByID(shardID); shard != nil {
			if p := shard.OnPlayerReconnect(claims.PlayerID, conn); p != nil {
				conn.inShard = true
				conn.SendJSON(types.NewWelcome(p, token, shard.ID))
				return
			}
		}
		g.registry.Drop(claims.PlayerID)
	}

	p := newPlayer(claims.PlayerID, claims.DisplayName)
	if rec, err := g.store.LoadPlayer(claims.PlayerID); err != nil {
		ErrorLog.Printf("load player %s: %v", claims.PlayerID, err)
	} else if rec != nil {
		p = rec.ToPlayer("")
	}
	conn.SendJSON(types.NewWelcome(p, token, ""))
}

// --- Matchmaking ---

func (g *Gateway) handleMatchmaking(conn *ClientConn, place func() (*Shard, error)) {
	if conn.inShard {
		conn.SendJSON(types.MatchmakingResultMsg{
			Type: "matchmaking_result", Success: false, Error: "already in a game",
		})
		return
	}
	shard, err := place()
	if err != nil {
		conn.SendJSON(types.MatchmakingResultMsg{Type: "matchmaking_result", Success: false, Error: err.Error()})
		return
	}

	p := newPlayer(conn.playerID, conn.displayName)
	if rec, lerr := g.store.LoadPlayer(conn.playerID); lerr == nil && rec != nil {
		p = rec.ToPlayer(shard.ID)
	}
	if err := shard.AddPlayer(conn, p); err != nil {
		g.manager.Unbind(conn.playerID)
		conn.SendJSON(types.MatchmakingResultMsg{Type: "matchmaking_result", Success: false, Error: err.Error()})
		return
	}
	conn.inShard = true
	g.registry.Bind(conn.playerID, shard.ID)
	// Acknowledge the placement before the join sync streams the world.
	conn.SendJSON(types.MatchmakingResultMsg{
		Type: "matchmaking_result", Success: true, ShardID: shard.ID, RoomCode: shard.RoomCode,
	})
	shard.SyncPlayer(conn.playerID)
}

// --- Players ---

// newPlayer builds a fresh surface-spawned player with starter gear.
func newPlayer(id, name string) *types.Player {
	return &types.Player{
		ID:                id,
		DisplayName:       name,
		Equipment:         types.NewEquipment(),
		Inventory:         make([]types.InventorySlot, game.InventoryUpgradeSlots[0]),
		MaxInventorySlots: game.InventoryUpgradeSlots[0],
		IsOnSurface:       true,
	}
}

var (
	nameAdjectives = []string{
		"Rusty", "Dusty", "Gilded", "Deep", "Lucky", "Stony",
		"Molten", "Hollow", "Amber", "Iron", "Brave", "Quiet",
	}
	nameNouns = []string{
		"Digger", "Miner", "Prospector", "Burrower", "Delver", "Tunneler",
		"Surveyor", "Spelunker", "Excavator", "Drifter", "Pickaxe", "Mole",
	}
)

// randomDisplayName gives guests a readable handle.
func randomDisplayName() string {
	var buf [3]byte
	cryptoRandRead(buf[:])
	adj := nameAdjectives[int(buf[0])%len(nameAdjectives)]
	noun := nameNouns[int(buf[1])%len(nameNouns)]
	return fmt.Sprintf("%s%s%d", adj, noun, int(buf[2])%100)
}
