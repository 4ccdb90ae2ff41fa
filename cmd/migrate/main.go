package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/qs3c/listing_sub_server/config"
	"github.com/qs3c/listing_sub_server/internal/database"
	"github.com/qs3c/listing_sub_server/internal/migrations"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("mysql", database.MySQLDSN(&cfg.Database)+"&multiStatements=true")
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	m, err := migrations.New(db)
	if err != nil {
		log.Fatalf("Failed to init migrations: %v", err)
	}

	switch os.Args[1] {
	case "up":
		err = migrations.Up(m)
	case "down":
		err = migrations.Down(m)
	case "version":
		var v uint
		var dirty bool
		v, dirty, err = m.Version()
		if err == nil {
			log.Printf("Schema version %d (dirty=%v)", v, dirty)
		}
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("Migration %s failed: %v", os.Args[1], err)
	}
}

func printUsage() {
	fmt.Println("Usage: migrate [up|down|version]")
}
