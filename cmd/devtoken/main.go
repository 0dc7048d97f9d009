// Command devtoken mints a bearer token for calling the hatchery API against a
// locally run auth key. The matching public key must be served at
// HATCHERY_SVC_AUTH_PUBLIC_KEY_URL.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/shard-legends/hatchery-service/pkg/jwt"
)

func main() {
	_ = godotenv.Load()

	keyPath := flag.String("key", "private_key.pem", "RSA private key in PEM format")
	subject := flag.String("subject", "", "client key placed in the sub claim (required)")
	telegramID := flag.Int64("telegram-id", 0, "telegram_id claim")
	ttl := flag.Duration("ttl", 720*time.Hour, "token lifetime")
	out := flag.String("out", "", "write the token to this file instead of stdout")
	flag.Parse()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "-subject is required")
		flag.Usage()
		os.Exit(2)
	}

	keyBytes, err := os.ReadFile(*keyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read private key %s: %v\n", *keyPath, err)
		os.Exit(1)
	}

	key, err := jwt.ParsePrivateKeyPEM(keyBytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid private key %s: %v\n", *keyPath, err)
		os.Exit(1)
	}

	token, err := jwt.IssueToken(key, *subject, *telegramID, *ttl, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to issue token: %v\n", err)
		os.Exit(1)
	}

	if *out == "" {
		fmt.Println(token)
		return
	}

	if err := os.WriteFile(*out, []byte(token), 0600); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write token to %s: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "token written to %s\n", *out)
}
