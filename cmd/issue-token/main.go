// Command issue-token signs a bearer token for an identity with the
// configured AUTH_JWT_SECRET, for operators and local testing.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/spec-kit/asset-marketplace/internal/auth"
	"github.com/spec-kit/asset-marketplace/internal/config"
	"github.com/spec-kit/asset-marketplace/internal/domain"
)

func main() {
	identity := flag.String("identity", "", "identity to issue the token for")
	flag.Parse()

	if *identity == "" {
		fmt.Fprintln(os.Stderr, "usage: issue-token -identity <address>")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes, auth.WithIssuer(cfg.Auth.Issuer))
	token, expiresAt, err := tokens.GenerateToken(domain.NormalizeIdentity(*identity))
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.Format("2006-01-02T15:04:05Z07:00"))
}
