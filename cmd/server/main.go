package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"preferans/internal/config"
	"preferans/internal/session"
	"preferans/internal/store"
	"preferans/internal/table"
)

// WebSocket upgrader configuration (spec §4.4).
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func main() {
	// Usage: server <address> <port> [<data>] [--cert=<path> --key=<path> --dh=<path>] (§6.3)
	addr, port, dataPath, certFile, keyFile, dhFile := parseArgs()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if addr != "" {
		cfg.ListenHost = addr
	}
	if port != 0 {
		cfg.ListenPort = port
	}
	if dataPath != "" {
		cfg.StorePath = dataPath
	}
	if certFile != "" {
		cfg.TLSCert = certFile
	}
	if keyFile != "" {
		cfg.TLSKey = keyFile
	}
	if dhFile != "" {
		cfg.TLSDH = dhFile
	}
	cfg.TLSEnabled = cfg.TLSEnabled || (certFile != "" && keyFile != "")

	cfg.LogConfig()
	log.Printf("%s v%s starting up...", cfg.ServerName, cfg.ServerVersion)

	st, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	seats := table.NewSeatTable()
	match := table.NewMatch(seats, st, "Ranked")
	hub := session.NewHub(seats, match, st, cfg.ReconnectGraceSecs, cfg.DealEndPauseSecs)

	stop := make(chan struct{})
	go hub.Run(stop)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(hub, w, r)
	})

	httpServer := &http.Server{
		Addr:         cfg.ListenAddress(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("%s v%s ready", cfg.ServerName, cfg.ServerVersion)
		log.Printf("WebSocket endpoint: ws://%s/ws", cfg.ListenAddress())
		log.Println("Press Ctrl+C to shutdown")

		var err error
		if cfg.TLSEnabled {
			err = httpServer.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	sig := <-sigChan
	log.Printf("Received signal: %v", sig)
	performGracefulShutdown(stop, httpServer, st, seats, cfg)
}

// parseArgs implements the positional + flag CLI surface: server
// <address> <port> [<data>] [--cert=<path> --key=<path> --dh=<path>].
func parseArgs() (addr string, port int, data, cert, key, dh string) {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	fs.StringVar(&cert, "cert", "", "TLS certificate path")
	fs.StringVar(&key, "key", "", "TLS key path")
	fs.StringVar(&dh, "dh", "", "TLS Diffie-Hellman parameters path")

	// flag.Parse stops at the first non-flag argument, but the documented
	// invocation puts --cert/--key/--dh after the positional address/port/data
	// arguments. Partition argv ourselves so flag position doesn't matter.
	args := os.Args[1:]
	var positional, flagArgs []string
	for _, a := range args {
		if len(a) >= 2 && a[:2] == "--" {
			flagArgs = append(flagArgs, a)
		} else {
			positional = append(positional, a)
		}
	}
	_ = fs.Parse(flagArgs)

	if len(positional) > 0 {
		addr = positional[0]
	}
	if len(positional) > 1 {
		if _, err := fmt.Sscanf(positional[1], "%d", &port); err != nil {
			log.Fatalf("invalid port %q", positional[1])
		}
	}
	if len(positional) > 2 {
		data = positional[2]
	}
	return addr, port, data, cert, key, dh
}

func openStore(cfg *config.Config) (store.Store, error) {
	var backing store.Store
	var err error

	switch cfg.StoreBackend {
	case "sqlite", "postgres":
		backing, err = store.OpenSQLStore(cfg.StoreBackend, cfg.DSN(), cfg.DBMaxConnections, cfg.DBMaxIdleConns)
	default:
		backing, err = store.OpenFileStore(cfg.StorePath)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RedisEnabled {
		addr := fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort)
		return store.NewCachedStore(backing, addr, cfg.RedisDB, 0), nil
	}
	return backing, nil
}

func handleWebSocket(hub *session.Hub, w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	conn := session.NewConn(ws)
	go conn.WritePump()
	go func() {
		conn.ReadPump(hub.HandleFrame)
		hub.HandleDisconnect(conn)
	}()
}

// performGracefulShutdown implements spec §6.4: stop the accept loop,
// clear the seat table, flush the store.
func performGracefulShutdown(stop chan struct{}, httpServer *http.Server, st store.Store, seats *table.SeatTable, cfg *config.Config) {
	log.Printf("%s v%s shutting down...", cfg.ServerName, cfg.ServerVersion)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSecs)*time.Second)
	defer cancel()

	log.Println("[1/4] Stopping new connections...")
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("[2/4] Stopping dispatcher...")
	close(stop)

	log.Println("[3/4] Clearing seat table...")
	for _, id := range seats.All() {
		seats.Remove(id)
	}

	log.Println("[4/4] Flushing store...")
	if err := st.Close(); err != nil {
		log.Printf("store close error: %v", err)
	}

	log.Printf("%s v%s offline.", cfg.ServerName, cfg.ServerVersion)
}
