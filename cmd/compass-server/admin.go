package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cybercompass/compass/internal/api"
	"github.com/cybercompass/compass/internal/serverdb"
)

func runAdmin(args []string) {
	if len(args) == 0 {
		printAdminUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "create-user":
		runAdminCreateUser(args[1:])
	case "create-key":
		runAdminCreateKey(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown admin command: %s\n", args[0])
		printAdminUsage()
		os.Exit(1)
	}
}

func printAdminUsage() {
	fmt.Fprintln(os.Stderr, `Usage: compass-server admin <command> [flags]

Commands:
  create-user  Register a user account
  create-key   Create an API key for a user`)
}

func openDB(dbPath string) *serverdb.ServerDB {
	if dbPath == "" {
		cfg := api.LoadConfig()
		dbPath = cfg.ServerDBPath
	}
	store, err := serverdb.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: open database: %v\n", err)
		os.Exit(1)
	}
	return store
}

func runAdminCreateUser(args []string) {
	fs := flag.NewFlagSet("admin create-user", flag.ExitOnError)
	email := fs.String("email", "", "user email address")
	dbPath := fs.String("db", "", "path to compass.db (default: from COMPASS_SERVER_DB_PATH or ./data/compass.db)")
	fs.Parse(args)

	if *email == "" {
		fmt.Fprintln(os.Stderr, "error: --email is required")
		fs.Usage()
		os.Exit(1)
	}

	store := openDB(*dbPath)
	defer store.Close()

	user, err := store.CreateUser(*email)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("created user %s\n", user.Email)
	fmt.Printf("  id: %s\n", user.ID)
}

func runAdminCreateKey(args []string) {
	fs := flag.NewFlagSet("admin create-key", flag.ExitOnError)
	email := fs.String("email", "", "user email address")
	name := fs.String("name", "", "key name (e.g. laptop)")
	ttl := fs.Duration("ttl", 0, "key lifetime (0 means no expiry)")
	dbPath := fs.String("db", "", "path to compass.db (default: from COMPASS_SERVER_DB_PATH or ./data/compass.db)")
	fs.Parse(args)

	if *email == "" {
		fmt.Fprintln(os.Stderr, "error: --email is required")
		fs.Usage()
		os.Exit(1)
	}
	if *name == "" {
		fmt.Fprintln(os.Stderr, "error: --name is required")
		fs.Usage()
		os.Exit(1)
	}

	store := openDB(*dbPath)
	defer store.Close()

	user, err := store.GetUserByEmail(*email)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if user == nil {
		fmt.Fprintf(os.Stderr, "error: user not found: %s\n", *email)
		os.Exit(1)
	}

	var expiresAt *time.Time
	if *ttl > 0 {
		t := time.Now().UTC().Add(*ttl)
		expiresAt = &t
	}

	plaintext, ak, err := store.GenerateAPIKey(user.ID, *name, expiresAt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("created API key for %s\n", user.Email)
	fmt.Printf("  name: %s\n", ak.Name)
	if ak.ExpiresAt != nil {
		fmt.Printf("  expires: %s\n", ak.ExpiresAt.Format(time.RFC3339))
	}
	fmt.Printf("  key:  %s\n", plaintext)
	fmt.Println("\nSave this key now -- it will not be shown again.")
}
