// pooltoken mints API access tokens for Pool Control.
//
// The signing secret is taken from the controller configuration
// (api.auth.jwt_secret, or POOLCONTROL_JWT_SECRET):
//
//	pooltoken -subject dashboard -role viewer -ttl 43200
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/nerrad567/gray-logic-pool/internal/auth"
	"github.com/nerrad567/gray-logic-pool/internal/infrastructure/config"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("pooltoken", flag.ContinueOnError)
	configPath := fs.String("config", configPathFromEnv(), "Path to the controller configuration")
	subject := fs.String("subject", "", "Token subject (who the token is for)")
	role := fs.String("role", string(auth.RoleViewer), "Role: viewer or operator")
	ttl := fs.Int("ttl", 0, "Lifetime in minutes (0 uses the configured access token TTL)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return fmt.Errorf("-subject is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	minutes := *ttl
	if minutes <= 0 {
		minutes = cfg.API.Auth.AccessTokenTTL
	}

	token, err := auth.GenerateAccessToken(*subject, auth.Role(*role), cfg.API.Auth.JWTSecret, minutes)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	_, err = fmt.Fprintln(out, token)
	return err
}

func configPathFromEnv() string {
	if path := os.Getenv("POOLCONTROL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
