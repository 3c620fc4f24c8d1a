// Package main provides a CLI tool for minting identity tokens for the kycgate API.
// Tokens are signed with the dev key unless -key is given and will NOT work in production.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"kycgate/internal/identity"
	"kycgate/internal/platform/config"
	"kycgate/pkg/domain"
)

const (
	// Defaults match internal/platform/config when the env vars are unset.
	defaultIssuer   = "kycgate"
	defaultAudience = "kycgate-api"
	defaultTokenTTL = 15 * time.Minute
)

type tokenOutput struct {
	Token     string            `json:"token"`
	Subject   string            `json:"subject"`
	ExpiresIn string            `json:"expires_in"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	mintCmd := flag.NewFlagSet("mint", flag.ExitOnError)
	subject := mintCmd.String("sub", "", "Caller identity (issuer, holder or verifier). Required.")
	key := mintCmd.String("key", config.DevSigningKey, "HS256 signing key")
	issuer := mintCmd.String("iss", defaultIssuer, "Token issuer")
	audience := mintCmd.String("aud", defaultAudience, "Token audience")
	ttl := mintCmd.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	jsonOut := mintCmd.Bool("json", false, "Output as JSON")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "mint":
		_ = mintCmd.Parse(os.Args[2:])
		mint(*subject, *key, *issuer, *audience, *ttl, *jsonOut)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tokengen - Mint identity tokens for the kycgate API

WARNING: Tokens use the dev signing key unless -key is set.
         Only use for local development and testing.

Usage:
  tokengen mint -sub <identity> [flags]

Examples:
  # Token for an issuer
  tokengen mint -sub issuer-1

  # Token for a wallet holder, valid for an hour
  tokengen mint -sub 0x52908400098527886E0F7030069857D2E4169EE7 -ttl 1h

  # Output as JSON
  tokengen mint -sub verifier-1 -json`)
}

func mint(rawSubject, key, issuer, audience string, ttl time.Duration, jsonOutput bool) {
	sub, err := domain.ParseIdentity(rawSubject)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -sub: %v\n", err)
		os.Exit(1)
	}

	provider := identity.NewJWTProvider(key, issuer, audience, ttl)
	token, err := provider.Mint(context.Background(), sub)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error minting token: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(tokenOutput{
			Token:     token,
			Subject:   sub.String(),
			ExpiresIn: ttl.String(),
			Usage: map[string]string{
				"header": "Authorization: Bearer <token>",
			},
		})
		return
	}

	fmt.Println("Identity Token (JWT)")
	fmt.Println("====================")
	fmt.Printf("Subject:    %s\n", sub)
	fmt.Printf("Expires In: %s\n", ttl)
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" http://localhost:8080/...")
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
