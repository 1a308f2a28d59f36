package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type testServer struct {
	srv      *httptest.Server
	manager  *ShardManager
	registry *SessionRegistry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	setupTestEnv(t)
	store := NewMemoryStore()
	clock := realClock{}
	manager := NewShardManager(store, clock)
	registry := NewSessionRegistry(clock)
	gateway := NewGateway(manager, registry, store, clock)

	mux := http.NewServeMux()
	gateway.Routes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		manager.ShutdownAll()
	})
	return &testServer{srv: srv, manager: manager, registry: registry}
}

func (ts *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return ws
}

func sendJSON(t *testing.T, ws *websocket.Conn, v interface{}) {
	t.Helper()
	data, _ := json.Marshal(v)
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// awaitFrame skips frames until one of the wanted type arrives.
func awaitFrame(t *testing.T, ws *websocket.Conn, wantType string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		ws.SetReadDeadline(time.Now().Add(5 * time.Second))
		kind, data, err := ws.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %q: %v", wantType, err)
		}
		if kind != websocket.TextMessage {
			continue
		}
		var frame map[string]interface{}
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Fatalf("bad frame %q: %v", data, err)
		}
		if frame["type"] == wantType {
			return frame
		}
	}
	t.Fatalf("no %q frame arrived", wantType)
	return nil
}

func TestGatewayGuestAuthAndSolo(t *testing.T) {
	ts := newTestServer(t)
	ws := ts.dial(t)
	defer ws.Close()

	// Commands before auth are rejected.
	sendJSON(t, ws, map[string]string{"type": "join_quick_play"})
	if e := awaitFrame(t, ws, "error"); e["code"] != "NOT_AUTHENTICATED" {
		t.Fatalf("pre-auth error = %v", e)
	}

	sendJSON(t, ws, map[string]string{"type": "auth"})
	welcome := awaitFrame(t, ws, "welcome")
	if welcome["playerId"] == "" || welcome["token"] == "" {
		t.Fatalf("welcome = %v", welcome)
	}
	if welcome["displayName"] == "" {
		t.Fatal("guest got no display name")
	}

	sendJSON(t, ws, map[string]string{"type": "play_solo"})
	mm := awaitFrame(t, ws, "matchmaking_result")
	if mm["success"] != true || mm["shardId"] == "" {
		t.Fatalf("matchmaking_result = %v", mm)
	}
	// The join sync streams the spawn chunk and state.
	awaitFrame(t, ws, "world_chunk")
	awaitFrame(t, ws, "player_state_update")
}

func TestGatewayReconnectWithToken(t *testing.T) {
	ts := newTestServer(t)
	ws := ts.dial(t)

	sendJSON(t, ws, map[string]string{"type": "auth"})
	welcome := awaitFrame(t, ws, "welcome")
	token, _ := welcome["token"].(string)
	playerID, _ := welcome["playerId"].(string)

	sendJSON(t, ws, map[string]string{"type": "create_party", "maxPlayers": "\x00"})
	// A malformed field is INVALID_MESSAGE, not a disconnect.
	awaitFrame(t, ws, "error")

	sendJSON(t, ws, map[string]interface{}{"type": "create_party", "maxPlayers": 2})
	mm := awaitFrame(t, ws, "matchmaking_result")
	shardID, _ := mm["shardId"].(string)
	roomCode, _ := mm["roomCode"].(string)
	if shardID == "" || len(roomCode) != 6 {
		t.Fatalf("matchmaking_result = %v", mm)
	}
	awaitFrame(t, ws, "world_chunk")

	// Drop the socket and come back with the same token.
	ws.Close()
	time.Sleep(100 * time.Millisecond) // let the read loop notice

	ws2 := ts.dial(t)
	defer ws2.Close()
	sendJSON(t, ws2, map[string]string{"type": "auth", "token": token})
	welcome2 := awaitFrame(t, ws2, "welcome")
	if welcome2["playerId"] != playerID {
		t.Fatalf("identity changed across reconnect: %v", welcome2)
	}
	if welcome2["shardId"] != shardID {
		t.Fatalf("shardId = %v, want %v", welcome2["shardId"], shardID)
	}
	// The rejoin sync replays the world.
	awaitFrame(t, ws2, "world_chunk")
}

func TestGatewayInvalidFrames(t *testing.T) {
	ts := newTestServer(t)
	ws := ts.dial(t)
	defer ws.Close()

	sendJSON(t, ws, map[string]string{"type": "auth"})
	awaitFrame(t, ws, "welcome")

	ws.WriteMessage(websocket.TextMessage, []byte("{not json"))
	if e := awaitFrame(t, ws, "error"); e["code"] != "INVALID_MESSAGE" {
		t.Fatalf("garbage frame error = %v", e)
	}
	sendJSON(t, ws, map[string]string{"type": "warp_drive"})
	if e := awaitFrame(t, ws, "error"); e["code"] != "UNKNOWN_TYPE" {
		t.Fatalf("unknown type error = %v", e)
	}
	// Shard commands without a shard.
	sendJSON(t, ws, map[string]interface{}{"type": "dig", "x": 1, "y": 1})
	if e := awaitFrame(t, ws, "error"); e["code"] != "NOT_IN_SHARD" {
		t.Fatalf("routing error = %v", e)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Fatalf("healthz = %v", body)
	}
}
