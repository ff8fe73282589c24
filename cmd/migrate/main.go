package main

import (
	"context"
	"flag"
	"log"

	"github.com/tironinho/kronos-sub000/pkg/config"
	"github.com/tironinho/kronos-sub000/pkg/migration"
	"github.com/tironinho/kronos-sub000/pkg/questdb"
)

func main() {
	var (
		dir   = flag.String("dir", "internal/infrastructure/questdb/migrations", "migration directory")
		down  = flag.Bool("down", false, "revert migrations instead of applying them")
		steps = flag.Int("steps", 0, "number of migrations to apply or revert (0 = all up, down requires > 0)")
	)
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	client, err := questdb.NewClient(ctx, cfg.QuestDB)
	if err != nil {
		log.Fatalf("Failed to initialize QuestDB client: %v", err)
	}
	defer client.Close()

	runner := migration.NewRunner(client, *dir)
	if err := runner.EnsureMigrationTable(ctx); err != nil {
		log.Fatalf("Failed to ensure migration table: %v", err)
	}

	if *down {
		if err := runner.MigrateDown(ctx, *steps); err != nil {
			log.Fatalf("Failed to revert migrations: %v", err)
		}
		log.Println("Migrations reverted successfully")
		return
	}

	if err := runner.MigrateUp(ctx, *steps); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations completed successfully")
}
