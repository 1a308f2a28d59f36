package main

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// --- Configuration ---

const (
	DefaultDBPath = "./data/deepmine.db"
	DefaultPort   = 8080
)

var (
	// Infrastructure
	db       *sql.DB
	InfoLog  *log.Logger
	ErrorLog *log.Logger

	// Config
	Config struct {
		Port        int
		DBPath      string
		PersistMode string // "sqlite" or "memory"
		Secret      []byte // token HMAC key
	}

	// Rate Limiting (per-IP, connection level)
	ipLimiters = make(map[string]*rate.Limiter)
	ipLock     sync.Mutex
)

// --- Clock ---

// Clock lets timing-sensitive suites (rate windows, grace periods,
// stun, drop expiry) run against a fake time source.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
