// Command loadtest drives N scripted clients against a running server:
// auth as guest, quick play, then a dig/move loop. It reports frame
// counts per client and aggregate errors.
package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

var (
	addr     = flag.String("addr", "ws://localhost:8080/ws", "websocket endpoint")
	clients  = flag.Int("clients", 10, "concurrent clients")
	duration = flag.Duration("duration", 30*time.Second, "run time per client")
)

var framesReceived int64

func main() {
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *duration+10*time.Second)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	start := time.Now()
	for i := 0; i < *clients; i++ {
		i := i
		g.Go(func() error { return runClient(ctx, i) })
		time.Sleep(50 * time.Millisecond) // stagger connects past the IP limiter
	}
	err := g.Wait()
	fmt.Printf("%d clients, %v elapsed, %d frames received\n",
		*clients, time.Since(start).Round(time.Millisecond), atomic.LoadInt64(&framesReceived))
	if err != nil {
		log.Fatalf("loadtest failed: %v", err)
	}
}

func runClient(ctx context.Context, id int) error {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("client %d dial: %w", id, err)
	}
	defer ws.Close()

	// Drain inbound frames; the script only counts them.
	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
			atomic.AddInt64(&framesReceived, 1)
		}
	}()

	send := func(v interface{}) error {
		data, _ := json.Marshal(v)
		return ws.WriteMessage(websocket.TextMessage, data)
	}
	if err := send(map[string]string{"type": "auth"}); err != nil {
		return fmt.Errorf("client %d auth: %w", id, err)
	}
	time.Sleep(200 * time.Millisecond)
	if err := send(map[string]string{"type": "join_quick_play"}); err != nil {
		return fmt.Errorf("client %d join: %w", id, err)
	}
	time.Sleep(200 * time.Millisecond)

	rng := rand.New(rand.NewSource(int64(id)))
	x, y := float64(1000+id*2), 0.0
	deadline := time.Now().Add(*duration)
	ticker := time.NewTicker(150 * time.Millisecond)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		// Walk down and sideways, digging the block underfoot.
		y += 0.5
		x += rng.Float64()*2 - 1
		if err := ws.WriteMessage(websocket.BinaryMessage, moveFrame(x, y)); err != nil {
			return fmt.Errorf("client %d move: %w", id, err)
		}
		if rng.Float64() < 0.7 {
			if err := ws.WriteMessage(websocket.BinaryMessage, digFrame(int(x), int(y)+1)); err != nil {
				return fmt.Errorf("client %d dig: %w", id, err)
			}
		}
	}
	return nil
}

func moveFrame(x, y float64) []byte {
	out := make([]byte, 9)
	out[0] = 0x01
	binary.LittleEndian.PutUint32(out[1:5], math.Float32bits(float32(x)))
	binary.LittleEndian.PutUint32(out[5:9], math.Float32bits(float32(y)))
	return out
}

func digFrame(x, y int) []byte {
	out := make([]byte, 5)
	out[0] = 0x02
	binary.LittleEndian.PutUint16(out[1:3], uint16(int16(x)))
	binary.LittleEndian.PutUint16(out[3:5], uint16(int16(y)))
	return out
}
