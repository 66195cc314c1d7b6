package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/poyrazK/siteverify/internal/adapters/api"
	"github.com/poyrazK/siteverify/internal/adapters/repository"
	"github.com/poyrazK/siteverify/internal/config"
	"github.com/poyrazK/siteverify/internal/core/domain"
	"github.com/poyrazK/siteverify/internal/core/ports"
)

const keyPrefix = "sv_"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("failed to close database: %v", err)
		}
	}()

	repo := repository.NewPostgresRepository(db)
	if err := run(os.Args, os.Stdout, repo); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer, repo ports.APIKeyRepository) error {
	if len(args) < 2 {
		return errors.New("expected 'create', 'list' or 'revoke' subcommands")
	}

	switch args[1] {
	case "create":
		cmd := flag.NewFlagSet("create", flag.ContinueOnError)
		cmd.SetOutput(out)
		publisher := cmd.String("publisher", "", "Publisher ID the key acts for")
		role := cmd.String("role", "publisher", "Role (admin or publisher)")
		name := cmd.String("name", "dashboard", "Description of the key")
		days := cmd.Int("days", 365, "Validity in days, 0 for no expiry")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		return generateKey(repo, *publisher, *role, *name, *days, out)
	case "list":
		cmd := flag.NewFlagSet("list", flag.ContinueOnError)
		cmd.SetOutput(out)
		publisher := cmd.String("publisher", "", "Publisher ID")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		return listKeys(repo, *publisher, out)
	case "revoke":
		cmd := flag.NewFlagSet("revoke", flag.ContinueOnError)
		cmd.SetOutput(out)
		publisher := cmd.String("publisher", "", "Publisher ID owning the key")
		id := cmd.String("id", "", "API Key UUID to revoke")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		return revokeKey(repo, *publisher, *id, out)
	}
	return fmt.Errorf("unknown subcommand: %s", args[1])
}

func generateKey(repo ports.APIKeyRepository, publisherID, role, name string, days int, out io.Writer) error {
	if publisherID == "" {
		return errors.New("-publisher is required")
	}
	r := domain.Role(role)
	if !r.Valid() {
		return fmt.Errorf("invalid role %q", role)
	}

	rawKey := make([]byte, 24)
	if _, err := rand.Read(rawKey); err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	keyString := keyPrefix + hex.EncodeToString(rawKey)

	now := time.Now().UTC()
	apiKey := &domain.APIKey{
		ID:          uuid.New().String(),
		PublisherID: publisherID,
		Name:        name,
		KeyHash:     api.HashKey(keyString),
		KeyPrefix:   keyString[:8],
		Role:        r,
		Active:      true,
		CreatedAt:   now,
	}
	if days > 0 {
		exp := now.AddDate(0, 0, days)
		apiKey.ExpiresAt = &exp
	}

	if err := repo.CreateAPIKey(context.Background(), apiKey); err != nil {
		return fmt.Errorf("save API key: %w", err)
	}

	expires := "never"
	if apiKey.ExpiresAt != nil {
		expires = apiKey.ExpiresAt.Format(time.RFC3339)
	}
	fmt.Fprintf(out, "API Key Created Successfully!\n")
	fmt.Fprintf(out, "---------------------------\n")
	fmt.Fprintf(out, "ID:         %s\n", apiKey.ID)
	fmt.Fprintf(out, "Publisher:  %s\n", publisherID)
	fmt.Fprintf(out, "Role:       %s\n", r)
	fmt.Fprintf(out, "Expires:    %s\n", expires)
	fmt.Fprintf(out, "VALUE:      %s\n", keyString)
	fmt.Fprintf(out, "---------------------------\n")
	fmt.Fprintf(out, "CAUTION: This is the only time the key will be shown.\n")
	return nil
}

func listKeys(repo ports.APIKeyRepository, publisherID string, out io.Writer) error {
	if publisherID == "" {
		return errors.New("-publisher is required")
	}
	keys, err := repo.ListAPIKeys(context.Background(), publisherID)
	if err != nil {
		return fmt.Errorf("list API keys: %w", err)
	}

	fmt.Fprintf(out, "API Keys for Publisher: %s\n", publisherID)
	fmt.Fprintf(out, "%-36s %-15s %-10s %-8s %-6s\n", "ID", "Name", "Role", "Prefix", "Status")
	for _, k := range keys {
		status := "active"
		if !k.Active {
			status = "revoked"
		}
		fmt.Fprintf(out, "%-36s %-15s %-10s %-8s %-6s\n", k.ID, k.Name, k.Role, k.KeyPrefix, status)
	}
	return nil
}

func revokeKey(repo ports.APIKeyRepository, publisherID, id string, out io.Writer) error {
	if id == "" || publisherID == "" {
		return errors.New("-publisher and -id are required for revocation")
	}
	if err := repo.DeleteAPIKey(context.Background(), publisherID, id); err != nil {
		return fmt.Errorf("revoke API key: %w", err)
	}
	fmt.Fprintf(out, "API Key %s revoked\n", id)
	return nil
}
