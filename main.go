package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	port := flag.Int("port", DefaultPort, "listen port")
	flag.Parse()

	setupLogging()
	initConfig()
	Config.Port = *port
	if p := os.Getenv("DEEPMINE_PORT"); p != "" {
		fmt.Sscanf(p, "%d", &Config.Port)
	}

	var store PersistenceStore
	if Config.PersistMode == "memory" {
		store = NewMemoryStore()
		InfoLog.Println("persistence: in-memory (nothing survives restart)")
	} else {
		initDB()
		store = NewSQLiteStore(db)
		InfoLog.Printf("persistence: sqlite at %s", Config.DBPath)
	}
	defer store.Close()

	clock := realClock{}
	manager := NewShardManager(store, clock)
	registry := NewSessionRegistry(clock)
	gateway := NewGateway(manager, registry, store, clock)
	registry.StartSweeper()

	mux := http.NewServeMux()
	gateway.Routes(mux)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", Config.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		// No WriteTimeout: websocket connections are long-lived.
	}

	go func() {
		InfoLog.Printf("listening on :%d", Config.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ErrorLog.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	InfoLog.Println("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
	manager.ShutdownAll()
	registry.Stop()
	InfoLog.Println("bye")
}
