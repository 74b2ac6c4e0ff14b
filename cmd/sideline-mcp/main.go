// Command sideline-mcp serves an exported sideline SQLite file to MCP
// clients over stdio.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jwulff/sideline/internal/db"
	"github.com/jwulff/sideline/internal/mcpserver"
)

// EnvDB names the export file when -db is not given.
const EnvDB = "SIDELINE_DB"

func main() {
	dbPath := flag.String("db", "", "sideline SQLite export to serve (default $SIDELINE_DB)")
	flag.Parse()

	// stdout carries the MCP protocol
	log.SetOutput(os.Stderr)

	godotenv.Load()

	path := *dbPath
	if path == "" {
		path = os.Getenv(EnvDB)
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "sideline-mcp: -db or $SIDELINE_DB is required")
		os.Exit(2)
	}

	store, err := db.Open(path)
	if err != nil {
		log.Fatalf("[ERROR] sideline-mcp: %v", err)
	}
	defer store.Close()

	log.Printf("[INFO] sideline-mcp: serving %s", path)
	if err := server.ServeStdio(mcpserver.New(mcpserver.NewHandler(store))); err != nil {
		log.Printf("[ERROR] sideline-mcp: %v", err)
	}
}
