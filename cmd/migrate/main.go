package main

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"

	_ "github.com/joho/godotenv/autoload"

	"github.com/Boris-Bot69/fitness-ios/internal/config"
	"github.com/Boris-Bot69/fitness-ios/internal/dbmigrate"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: go run ./cmd/migrate [%s]", strings.Join(dbmigrate.Commands, "|"))
	}

	command := os.Args[1]
	if !slices.Contains(dbmigrate.Commands, command) {
		log.Fatalf("unsupported command %q (allowed: %s)", command, strings.Join(dbmigrate.Commands, ", "))
	}

	cfg := config.Load()
	target, err := dbmigrate.SelectTarget(cfg, false)
	if err != nil {
		log.Fatal(err)
	}

	if target.Warning != "" {
		log.Printf("WARN migrate: %s", target.Warning)
	}
	log.Printf("migrate: command=%s using=%s", command, target.Source)

	if err := dbmigrate.Run(context.Background(), command, target.URL); err != nil {
		log.Fatal(err)
	}

	log.Printf("migrate: %s completed successfully", command)
}
