// Command resetpass resets a user's password directly against the
// database file. It exists for recovery when nobody can log in, so it
// bypasses the HTTP layer entirely. If the target user is missing and
// -create is given, an active admin account is created instead.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/iliyamo/datavue/internal/config"
	"github.com/iliyamo/datavue/internal/database"
	"github.com/iliyamo/datavue/internal/model"
	"github.com/iliyamo/datavue/internal/repository"
)

func main() {
	cfg := config.LoadTool()

	username := flag.String("user", cfg.AdminUsername, "username whose password to reset")
	password := flag.String("password", "", "new password (required)")
	dbPath := flag.String("db", cfg.DBPath, "path to the SQLite database file")
	create := flag.Bool("create", false, "create the user as an admin when missing")
	flag.Parse()

	if *password == "" {
		fmt.Fprintln(os.Stderr, "resetpass: -password is required")
		flag.Usage()
		os.Exit(2)
	}

	db, err := database.Open(*dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.InitSchema(ctx, db); err != nil {
		log.Fatalf("init schema: %v", err)
	}

	users := repository.NewUserRepo(db)
	u, err := users.GetByUsername(ctx, *username)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			log.Fatalf("lookup user: %v", err)
		}
		if !*create {
			log.Fatalf("user %q not found (use -create to create an admin account)", *username)
		}
		id, err := users.Create(ctx, *username, *password, "", model.RoleAdmin, cfg.BcryptCost)
		if err != nil {
			log.Fatalf("create user: %v", err)
		}
		fmt.Printf("created admin %q (id %d)\n", *username, id)
		return
	}

	if err := users.ResetPassword(ctx, u.ID, *password, cfg.BcryptCost); err != nil {
		log.Fatalf("reset password: %v", err)
	}
	fmt.Printf("password reset for %q (id %d)\n", *username, u.ID)
}
