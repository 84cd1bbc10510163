// Command seed populates the development database with demo data.
package main

import (
	"context"
	"flag"
	"log"

	"unihub/internal/config"
	"unihub/internal/database"
	"unihub/internal/seed"
)

func main() {
	users := flag.Int("users", 10, "number of demo users to create")
	hint := flag.Bool("channels", false, "print the pub/sub channel of each chat")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	if err := seed.Run(ctx, db, *users); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	if *hint {
		seed.ChannelsHint(ctx, db)
	}
}
