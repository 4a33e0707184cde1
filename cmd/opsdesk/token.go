package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/MikeSquared-Agency/opsdesk/internal/auth"
)

const defaultTokenTTL = 24 * time.Hour

// runToken prints a dashboard JWT: opsdesk token <user-id> [ttl].
func runToken(args []string, secret string, out io.Writer) error {
	if secret == "" {
		return errors.New("OPSDESK_JWT_SECRET is required to sign tokens")
	}
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: opsdesk token <user-id> [ttl]")
	}
	ttl := defaultTokenTTL
	if len(args) == 2 {
		d, err := time.ParseDuration(args[1])
		if err != nil {
			return fmt.Errorf("parse ttl: %w", err)
		}
		ttl = d
	}

	token, expiresAt, err := auth.GenerateToken(args[0], secret, ttl)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	fmt.Fprintln(out, token)
	fmt.Fprintf(out, "expires %s\n", expiresAt.Format(time.RFC3339))
	return nil
}
