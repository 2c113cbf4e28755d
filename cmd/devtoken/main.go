// Command devtoken mints an access token for local development.  The
// signing secret is read from JWT_SECRET, optionally seeded from .env.
//
//	go run ./cmd/devtoken -sub faculty-42 -role FACULTY -ttl 2h
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/event-seating/internal/middleware"
	"github.com/iliyamo/event-seating/internal/utils"
)

func main() {
	sub := flag.String("sub", "", "token subject (user id)")
	role := flag.String("role", middleware.RoleFaculty, "role claim: FACULTY or STUDENT")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is not set")
		os.Exit(1)
	}

	r := strings.ToUpper(*role)
	if r != middleware.RoleFaculty && r != middleware.RoleStudent {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}

	tok, err := utils.NewAccessToken(secret, *sub, r, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mint token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format(time.RFC3339))
}
