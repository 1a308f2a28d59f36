package main

import (
	"crypto/rand"
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// newID mints identifiers for players, shards and drops.
func newID() string { return uuid.NewString() }

func cryptoRandRead(b []byte) { rand.Read(b) }

func setupLogging() {
	logDir := "./logs"
	if _, err := os.Stat(logDir); os.IsNotExist(err) {
		os.Mkdir(logDir, 0755)
	}
	fInfo, _ := os.OpenFile(filepath.Join(logDir, "server.log"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	fErr, _ := os.OpenFile(filepath.Join(logDir, "error.log"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	InfoLog = log.New(fInfo, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile)
	ErrorLog = log.New(fErr, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
}

func initConfig() {
	Config.DBPath = DefaultDBPath
	if p := os.Getenv("DEEPMINE_DB"); p != "" {
		Config.DBPath = p
	}

	Config.PersistMode = "sqlite"
	if m := os.Getenv("DEEPMINE_PERSIST"); m == "memory" {
		Config.PersistMode = "memory"
	}

	if s := os.Getenv("DEEPMINE_SECRET"); s != "" {
		Config.Secret = []byte(s)
	} else {
		// Ephemeral dev secret: tokens die with the process.
		Config.Secret = make([]byte, 32)
		rand.Read(Config.Secret)
		InfoLog.Println("DEEPMINE_SECRET not set, using ephemeral signing key")
	}
}

func getLimiter(ip string) *rate.Limiter {
	ipLock.Lock()
	defer ipLock.Unlock()
	limiter, exists := ipLimiters[ip]
	if !exists {
		limiter = rate.NewLimiter(10, 20)
		ipLimiters[ip] = limiter
	}
	return limiter
}

// --- Sanitization ---

const (
	maxChatLength = 200
	maxNameLength = 24
)

// sanitizeChat strips control characters and caps the length. Empty
// results are rejected upstream.
func sanitizeChat(msg string) string {
	var b strings.Builder
	for _, r := range msg {
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
		if b.Len() >= maxChatLength {
			break
		}
	}
	return strings.TrimSpace(b.String())
}

// sanitizeName keeps letters, digits, spaces and a few separators.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		}
		if b.Len() >= maxNameLength {
			break
		}
	}
	return strings.TrimSpace(b.String())
}
