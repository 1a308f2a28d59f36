package main

import (
	"sync"
	"time"

	"deepmine/pkg/game"
)

// SessionRegistry remembers which shard a player belongs to so a
// reconnecting socket can be routed back. A session survives a dropped
// connection for the grace window; the sweeper reaps the rest.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*session
	clock    Clock
	stop     chan struct{}
	done     chan struct{}

	// OnExpired is invoked (outside the registry lock) for each session
	// the sweeper reaps, so the shard can drop the member too. Set
	// before StartSweeper.
	OnExpired func(playerID, shardID string)
}

type session struct {
	shardID string
	// disconnectedAt is zero while the player has a live connection.
	disconnectedAt time.Time
}

func NewSessionRegistry(clock Clock) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*session),
		clock:    clock,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Bind records (or refreshes) a player's shard membership.
func (r *SessionRegistry) Bind(playerID, shardID string) {
	r.mu.Lock()
	r.sessions[playerID] = &session{shardID: shardID}
	r.mu.Unlock()
}

// MarkDisconnected opens the grace window for a player's session.
func (r *SessionRegistry) MarkDisconnected(playerID string) {
	r.mu.Lock()
	if s, ok := r.sessions[playerID]; ok && s.disconnectedAt.IsZero() {
		s.disconnectedAt = r.clock.Now()
	}
	r.mu.Unlock()
}

// Resume returns the shard a player may rejoin. Sessions outside the
// grace window are treated as gone even before the sweeper runs.
func (r *SessionRegistry) Resume(playerID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[playerID]
	if !ok {
		return "", false
	}
	if !s.disconnectedAt.IsZero() &&
		r.clock.Now().Sub(s.disconnectedAt) > game.PlayerDisconnectGraceSec*time.Second {
		delete(r.sessions, playerID)
		return "", false
	}
	s.disconnectedAt = time.Time{}
	return s.shardID, true
}

// Drop forgets a session outright (explicit leave or grace expiry).
func (r *SessionRegistry) Drop(playerID string) {
	r.mu.Lock()
	delete(r.sessions, playerID)
	r.mu.Unlock()
}

// StartSweeper reaps expired sessions on a fixed cadence.
func (r *SessionRegistry) StartSweeper() {
	go func() {
		defer close(r.done)
		ticker := time.NewTicker(game.ReconnectSweepSec * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				r.sweep(r.clock.Now())
			}
		}
	}()
}

func (r *SessionRegistry) sweep(now time.Time) {
	type expired struct{ playerID, shardID string }
	var reaped []expired
	r.mu.Lock()
	for id, s := range r.sessions {
		if !s.disconnectedAt.IsZero() &&
			now.Sub(s.disconnectedAt) > game.PlayerDisconnectGraceSec*time.Second {
			delete(r.sessions, id)
			reaped = append(reaped, expired{id, s.shardID})
			InfoLog.Printf("session for %s expired", id)
		}
	}
	r.mu.Unlock()
	for _, e := range reaped {
		if r.OnExpired != nil {
			r.OnExpired(e.playerID, e.shardID)
		}
	}
}

func (r *SessionRegistry) Stop() {
	close(r.stop)
	<-r.done
}
