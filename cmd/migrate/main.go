// Command migrate applies the embedded database schema, or prints it with -print.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/poyrazK/siteverify/internal/adapters/repository"
	"github.com/poyrazK/siteverify/internal/config"
)

type migrator interface {
	Migrate(ctx context.Context) error
}

func main() {
	printOnly := flag.Bool("print", false, "print the schema instead of applying it")
	flag.Parse()

	if *printOnly {
		fmt.Print(repository.Schema())
		return
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := apply(ctx, repository.NewPostgresRepository(db), os.Stdout); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

func apply(ctx context.Context, m migrator, out io.Writer) error {
	start := time.Now()
	if err := m.Migrate(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "schema applied in %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}
