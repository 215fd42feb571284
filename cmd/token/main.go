// Command token mints a bearer token for the SmartSplit API.
//
//	AUTH_SECRET=... token -user alice -ttl 72h
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/kinshukkush/smartsplit/internal/auth"
	"github.com/kinshukkush/smartsplit/internal/config"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	user := flag.String("user", "", "ledger user id the token is issued to")
	ttl := flag.Duration("ttl", cfg.Auth.TokenTTL, "token lifetime")
	flag.Parse()

	if cfg.Auth.Secret == "" {
		slog.Error("AUTH_SECRET is not set")
		os.Exit(1)
	}

	token, err := auth.NewManager(cfg.Auth.Secret, *ttl).Generate(*user)
	if err != nil {
		slog.Error("failed to mint token", "error", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
