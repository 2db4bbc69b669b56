// Command migrate applies the embedded schema migrations or prints their status.
//
//	migrate [up|status]
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"example.com/goaltracker/internal/config"
	"example.com/goaltracker/migrations"
)

func main() {
	timeout := flag.Duration("timeout", 2*time.Minute, "overall migration timeout")
	flag.Parse()

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	db, err := sql.Open("pgx", cfg.PostgresURL)
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("ping postgres: %v", err)
	}

	switch command {
	case "up":
		if err := migrations.Up(ctx, db); err != nil {
			log.Fatalf("migrate up: %v", err)
		}
		log.Println("migrations applied")
	case "status":
		statuses, err := migrations.Status(ctx, db)
		if err != nil {
			log.Fatalf("migration status: %v", err)
		}
		for _, st := range statuses {
			applied := "pending"
			if !st.AppliedAt.IsZero() {
				applied = st.AppliedAt.Format(time.RFC3339)
			}
			fmt.Fprintf(os.Stdout, "%-6d %-40s %s\n", st.Source.Version, st.Source.Path, applied)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (want up or status)\n", command)
		os.Exit(2)
	}
}
