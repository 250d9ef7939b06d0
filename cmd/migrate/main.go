package main

import (
	"coin_wallet/internal/config" // Custom import path (Config)
	"coin_wallet/internal/db"     // Custom import path (Database)
	"flag"                        // Command line flags
	"strings"                     // Username normalisation

	"github.com/sirupsen/logrus" // Logging library
)

// Main entry point for migration
func main() {
	promote := flag.String("promote", "", "grant the admin role to this username after migrating")
	flag.Parse()

	cfg := config.LoadConfig() // Load configuration

	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("failed to migrate DB: %v", err)
	}

	// Administrators are never created over HTTP
	if *promote != "" {
		if err := db.PromoteAdmin(gdb, strings.ToLower(*promote)); err != nil {
			logrus.Fatalf("failed to promote %q: %v", *promote, err)
		}
	}
}
