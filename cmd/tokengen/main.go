// Package main generates operator tokens for the otpgate admin API.
// Tokens minted with the dev key will NOT work against a production
// deployment with a real ADMIN_JWT_KEY.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	admintoken "otpgate/pkg/platform/middleware/admin"
)

// Matches config.go when ADMIN_JWT_KEY is not set.
const devSigningKey = "dev-secret-key-change-in-production"

type tokenOutput struct {
	Token     string            `json:"token"`
	Subject   string            `json:"subject"`
	Role      string            `json:"role"`
	ExpiresIn string            `json:"expires_in"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	subject := flag.String("subject", "", "Operator name recorded as the audit actor (required)")
	key := flag.String("key", "", "HMAC signing key. Defaults to the dev key.")
	ttl := flag.Duration("ttl", time.Hour, "Token time-to-live")
	jsonOutput := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "tokengen: -subject is required")
		flag.Usage()
		os.Exit(1)
	}

	signingKey := *key
	keyType := "custom"
	if signingKey == "" {
		signingKey = devSigningKey
		keyType = "dev"
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"role": admintoken.AdminRole,
		"sub":  *subject,
		"iat":  now.Unix(),
		"exp":  now.Add(*ttl).Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if err != nil {
		fmt.Fprintf(os.Stderr, "tokengen: signing failed: %v\n", err)
		os.Exit(1)
	}

	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(tokenOutput{
			Token:     token,
			Subject:   *subject,
			Role:      admintoken.AdminRole,
			ExpiresIn: ttl.String(),
			Usage: map[string]string{
				"header":      "Authorization: Bearer <token>",
				"signing_key": keyType,
			},
		})
		return
	}

	fmt.Println("Admin Token (JWT)")
	fmt.Println("=================")
	fmt.Printf("Signing Key: %s\n", keyType)
	fmt.Printf("Subject:     %s\n", *subject)
	fmt.Printf("Role:        %s\n", admintoken.AdminRole)
	fmt.Printf("Expires In:  %s\n", *ttl)
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" http://localhost:8080/admin/rate-limits/<identity>")
}
