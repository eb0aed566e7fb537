package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jsondb/JsonDB"
	"github.com/jsondb/JsonDB/core"
	"github.com/jsondb/JsonDB/ps"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	port := flag.Int("port", 3307, "TCP port to listen on")
	file := flag.String("file", "", "Path to the backing JSON file (memory if empty)")
	versioned := flag.Bool("versioned", false, "Keep a transaction history for the backing file")
	name := flag.String("name", "JsonDB Server", "Author name recorded on transactions")
	email := flag.String("email", "server@jsondb.local", "Author email recorded on transactions")
	jwtSecret := flag.String("jwtSecret", "", "HS256 secret; enables authentication when set")
	jwtIssuer := flag.String("jwtIssuer", "", "Expected JWT issuer claim")
	jwtAudience := flag.String("jwtAudience", "", "Expected JWT audience claim")
	verbose := flag.Bool("v", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("JsonDB Server v%s\n", Version)
		return
	}

	logger := newLogger(*verbose)
	slog.SetDefault(logger)

	persistence, err := openPersistence(*file, *versioned)
	if err != nil {
		logger.Error("failed to initialize persistence", "error", err)
		os.Exit(1)
	}

	identity := core.Identity{Name: *name, Email: *email}
	instance := JsonDB.Open(&persistence)
	store := instance.StoreWithLogger(identity, logger)

	var authConfig *AuthConfig
	if *jwtSecret != "" {
		authConfig = &AuthConfig{
			Enabled:   true,
			JWTSecret: *jwtSecret,
			Issuer:    *jwtIssuer,
			Audience:  *jwtAudience,
		}
	}

	server := NewServer(store, authConfig, logger)
	addr := fmt.Sprintf(":%d", *port)

	if err := server.Start(addr); err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Printf("║   JsonDB Server v%-18s   ║\n", Version)
	fmt.Println("║   File-backed JSON Document Store     ║")
	fmt.Println("╚═══════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("Listening on port %d\n", *port)
	fmt.Println("Send JSON requests (one per line), 'quit' to disconnect")
	fmt.Println()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	server.Stop()
	logger.Info("server stopped")
}

func openPersistence(file string, versioned bool) (ps.Persistence, error) {
	switch {
	case file == "":
		slog.Info("using memory persistence")
		return ps.NewMemoryPersistence()
	case versioned:
		slog.Info("using versioned file persistence", "file", file)
		return ps.NewVersionedPersistence(file)
	default:
		slog.Info("using file persistence", "file", file)
		return ps.NewFilePersistence(file)
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if isatty.IsTerminal(os.Stderr.Fd()) {
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
