package main

import (
	"time"

	"deepmine/pkg/game"
	"deepmine/pkg/types"
)

// QueuedCommand is one client command waiting on a shard's queue.
type QueuedCommand struct {
	PlayerID    string
	Cmd         types.Command
	RateLimited bool
}

// TickHandler is implemented by the Shard. The loop owns timing, queue
// draining and dig-rate admission; the shard owns all game semantics.
type TickHandler interface {
	ProcessCommand(cmd QueuedCommand)
	TickHook(now time.Time)
}

// GameLoop drives one shard at a fixed rate. Missed ticks are not
// compensated; the ticker simply fires again on schedule.
type GameLoop struct {
	interval time.Duration
	queue    chan QueuedCommand
	handler  TickHandler
	clock    Clock
	limiter  *digLimiter
	stop     chan struct{}
	done     chan struct{}
}

func NewGameLoop(handler TickHandler, clock Clock) *GameLoop {
	return &GameLoop{
		interval: game.TickIntervalMs * time.Millisecond,
		queue:    make(chan QueuedCommand, game.CommandQueueSize),
		handler:  handler,
		clock:    clock,
		limiter:  newDigLimiter(clock),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Enqueue is the only entry point other goroutines have into a shard.
// A full queue rejects immediately; the caller answers RATE_LIMITED.
func (g *GameLoop) Enqueue(cmd QueuedCommand) bool {
	select {
	case g.queue <- cmd:
		return true
	default:
		return false
	}
}

func (g *GameLoop) Run() {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	defer close(g.done)
	for {
		select {
		case <-g.stop:
			return
		case <-ticker.C:
			start := g.clock.Now()
			g.runTick(start)
			if elapsed := g.clock.Now().Sub(start); elapsed > g.interval*8/10 {
				ErrorLog.Printf("slow tick: %v of %v budget", elapsed, g.interval)
			}
		}
	}
}

// runTick drains everything currently queued, applies dig-rate
// admission, hands commands to the shard, then runs the per-tick hook.
func (g *GameLoop) runTick(now time.Time) {
	for {
		select {
		case cmd := <-g.queue:
			if _, isDig := cmd.Cmd.(types.DigCmd); isDig && !g.limiter.Allow(cmd.PlayerID, now) {
				cmd.RateLimited = true
			}
			g.handler.ProcessCommand(cmd)
		default:
			g.handler.TickHook(now)
			return
		}
	}
}

func (g *GameLoop) Stop() {
	close(g.stop)
	<-g.done
}

func (g *GameLoop) forgetPlayer(id string) {
	g.limiter.Forget(id)
}

// --- Dig Rate Limiting ---

// digLimiter admits at most MaxDigRate digs per player inside any
// rolling one-second window. A token bucket would over-admit after an
// idle burst, so this keeps the actual admit timestamps.
type digLimiter struct {
	clock   Clock
	windows map[string][]time.Time
}

func newDigLimiter(clock Clock) *digLimiter {
	return &digLimiter{clock: clock, windows: make(map[string][]time.Time)}
}

func (d *digLimiter) Allow(playerID string, now time.Time) bool {
	cutoff := now.Add(-time.Second)
	win := d.windows[playerID]
	keep := win[:0]
	for _, t := range win {
		// The window is closed: an admit exactly 1s old still counts.
		if !t.Before(cutoff) {
			keep = append(keep, t)
		}
	}
	if len(keep) >= game.MaxDigRate {
		d.windows[playerID] = keep
		return false
	}
	d.windows[playerID] = append(keep, now)
	return true
}

func (d *digLimiter) Forget(playerID string) {
	delete(d.windows, playerID)
}
