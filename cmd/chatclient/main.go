// chatclient is an interactive terminal client for pairingd.
// Usage: go run ./cmd/chatclient --server ws://localhost:8080/ws --country US
//
// Environment variables (also read from .env):
//
//	NEXMEET_SERVER - default websocket URL when --server is not given
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/c-bata/go-prompt"
	"github.com/joho/godotenv"

	"github.com/nexmeet/nexmeet-chat/internal/match"
)

const defaultServer = "ws://localhost:8080/ws"

func main() {
	if err := loadDotenv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	server := flag.String("server", envOr("NEXMEET_SERVER", defaultServer), "pairingd websocket URL")
	country := flag.String("country", "", "preferred partner country (empty = any)")
	state := flag.String("state", "", "preferred partner state (empty = any)")
	interest := flag.String("interest", "", "preferred partner interest (empty = any)")
	verbose := flag.Bool("verbose", false, "log raw frames")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	c, err := dial(*server, os.Stdout, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect %s: %v\n", *server, err)
		os.Exit(1)
	}
	defer c.Close()

	go c.readLoop()

	filters := match.Filters{Country: *country, State: *state, Interest: *interest}
	if err := c.FindPartner(filters); err != nil {
		fmt.Fprintf(os.Stderr, "find partner: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Connected to", *server)
	fmt.Println("Type a message and press Enter. Type /help for commands.")

	sh := &shell{client: c, out: os.Stdout}
	if base, err := statsURL(*server); err == nil {
		sh.statsFn = newStatsFetcher(base)
	}
	p := prompt.New(
		sh.execute,
		complete,
		prompt.OptionPrefix("> "),
		prompt.OptionTitle("NexMeet"),
		prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
			return breakline && sh.quit
		}),
	)
	p.Run()
}

// loadDotenv loads path into the environment. A missing file is not an error.
func loadDotenv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
