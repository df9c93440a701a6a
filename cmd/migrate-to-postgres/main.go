// migrate-to-postgres copies stored layouts from SQLite to PostgreSQL.
//
// Usage:
//
//	go run ./cmd/migrate-to-postgres \
//	    -sqlite data/layouts.db \
//	    -pg-host localhost \
//	    -pg-port 5432 \
//	    -pg-user delve \
//	    -pg-password delve \
//	    -pg-database delve
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/lawnchairsociety/delve/internal/database"
)

func main() {
	sqlitePath := flag.String("sqlite", "data/layouts.db", "Path to SQLite database")
	pgHost := flag.String("pg-host", "localhost", "PostgreSQL host")
	pgPort := flag.Int("pg-port", 5432, "PostgreSQL port")
	pgUser := flag.String("pg-user", "delve", "PostgreSQL user")
	pgPassword := flag.String("pg-password", "delve", "PostgreSQL password")
	pgDatabase := flag.String("pg-database", "delve", "PostgreSQL database name")
	pgSSLMode := flag.String("pg-sslmode", "disable", "PostgreSQL SSL mode")
	dryRun := flag.Bool("dry-run", false, "Show what would be migrated without making changes")
	flag.Parse()

	log.Println("SQLite to PostgreSQL Migration Tool")
	log.Println("====================================")

	log.Printf("Opening SQLite database: %s", *sqlitePath)
	src, err := database.Open(*sqlitePath)
	if err != nil {
		log.Fatalf("Failed to open SQLite database: %v", err)
	}
	defer src.Close()

	pg := database.DefaultPostgresConfig()
	pg.Host = *pgHost
	pg.Port = *pgPort
	pg.User = *pgUser
	pg.Password = *pgPassword
	pg.Database = *pgDatabase
	pg.SSLMode = *pgSSLMode

	// Opening runs the schema migration, so the target is ready either way.
	log.Printf("Opening PostgreSQL database: %s@%s:%d/%s", *pgUser, *pgHost, *pgPort, *pgDatabase)
	dst, err := database.OpenWithConfig(database.Config{Driver: "postgres", Postgres: pg})
	if err != nil {
		log.Fatalf("Failed to open PostgreSQL database: %v", err)
	}
	defer dst.Close()

	if *dryRun {
		log.Println("DRY RUN MODE - No changes will be made")
	}

	result, err := copyLayouts(src, dst, *dryRun)
	if err != nil {
		log.Fatalf("Failed to migrate layouts: %v", err)
	}

	log.Println("====================================")
	log.Printf("Migration complete! Layouts copied: %d, skipped: %d", result.Copied, result.Skipped)
	if *dryRun {
		log.Println("(DRY RUN - No actual changes were made)")
	}
}

type migrationResult struct {
	Copied  int
	Skipped int
}

// copyLayouts copies every layout in src that dst does not already hold
// under the same name. Oldest layouts are copied first so dst ids keep
// their relative order.
func copyLayouts(src, dst *database.Database, dryRun bool) (migrationResult, error) {
	var result migrationResult

	summaries, err := src.ListLayouts()
	if err != nil {
		return result, err
	}

	for i := len(summaries) - 1; i >= 0; i-- {
		s := summaries[i]

		exists, err := dst.LayoutExists(s.Name)
		if err != nil {
			return result, err
		}
		if exists {
			log.Printf("  Skipping %q (already present)", s.Name)
			result.Skipped++
			continue
		}
		if dryRun {
			log.Printf("  Would copy %q (seed %s, %d points)", s.Name, s.Seed, s.PointCount)
			result.Copied++
			continue
		}

		stored, err := src.GetLayout(s.ID)
		if err != nil {
			return result, fmt.Errorf("layout %d: %w", s.ID, err)
		}
		if _, err := dst.SaveLayout(s.Name, stored.Layout); err != nil {
			if errors.Is(err, database.ErrLayoutExists) {
				result.Skipped++
				continue
			}
			return result, fmt.Errorf("layout %q: %w", s.Name, err)
		}
		log.Printf("  Copied %q", s.Name)
		result.Copied++
	}

	return result, nil
}
