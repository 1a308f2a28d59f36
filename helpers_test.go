package main

import (
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"deepmine/pkg/types"
)

// setupTestEnv wires the process globals tests need: discard loggers
// and a fixed signing secret.
func setupTestEnv(t *testing.T) {
	t.Helper()
	InfoLog = log.New(io.Discard, "", 0)
	ErrorLog = log.New(io.Discard, "", 0)
	Config.Secret = []byte("test-secret")
	Config.PersistMode = "memory"
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeConn records everything a shard sends to one client.
type fakeConn struct {
	mu        sync.Mutex
	messages  []types.Message
	binary    [][]byte
	closeCode int
}

func (c *fakeConn) SendJSON(msg types.Message) {
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
}

func (c *fakeConn) SendBinary(frame []byte) {
	c.mu.Lock()
	c.binary = append(c.binary, append([]byte(nil), frame...))
	c.mu.Unlock()
}

func (c *fakeConn) CloseWithCode(code int, reason string) {
	c.mu.Lock()
	c.closeCode = code
	c.mu.Unlock()
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	c.messages = nil
	c.binary = nil
	c.mu.Unlock()
}

// lastError returns the most recent error frame, if any.
func (c *fakeConn) lastError() *types.ErrorMsg {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.messages) - 1; i >= 0; i-- {
		if e, ok := c.messages[i].(types.ErrorMsg); ok {
			return &e
		}
	}
	return nil
}

func (c *fakeConn) hasMessage(match func(types.Message) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.messages {
		if match(m) {
			return true
		}
	}
	return false
}

func (c *fakeConn) hasBinaryOp(op byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.binary {
		if len(f) > 0 && f[0] == op {
			return true
		}
	}
	return false
}
