// Command devtoken mints an access token for local development, standing in
// for the external identity provider.
//
//	go run ./cmd/devtoken -user alice -role admin
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"property-registry/internal/auth"
	"property-registry/internal/config"
	"property-registry/internal/rbac"

	"github.com/joho/godotenv"
)

func main() {
	user := flag.String("user", "", "user id recorded as the acting admin")
	role := flag.String("role", rbac.RoleAdmin, "role: admin or viewer")
	ttl := flag.Duration("ttl", 0, "token lifetime (default JWT_ACCESS_TTL or 15m)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn(".env load failed", "err", err)
	}

	if *user == "" {
		slog.Error("-user is required")
		os.Exit(2)
	}
	if !rbac.IsKnownRole(*role) {
		slog.Error("unknown role", "role", *role)
		os.Exit(2)
	}

	cfg := config.AuthConfig{
		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTIssuer:   os.Getenv("JWT_ISSUER"),
		JWTAudience: os.Getenv("JWT_AUDIENCE"),
	}
	if *ttl > 0 {
		cfg.AccessTokenTTL = *ttl
	} else if v := os.Getenv("JWT_ACCESS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Error("JWT_ACCESS_TTL must be a duration", "value", v)
			os.Exit(2)
		}
		cfg.AccessTokenTTL = d
	}

	m, err := auth.NewManager(cfg)
	if err != nil {
		slog.Error("auth init failed", "err", err)
		os.Exit(1)
	}
	tok, err := m.Issue(time.Now(), *user, *role)
	if err != nil {
		slog.Error("token issuance failed", "err", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
