// tokengen issues bearer tokens for the classification API from the
// configured signing secret. Tokens are issued out of band; the server
// only verifies them.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/coursepulse/classifier-api/internal/config"
	"github.com/coursepulse/classifier-api/internal/service/auth"
)

func main() {
	subject := flag.String("subject", "review-ingest", "token subject identifying the client")
	lifetime := flag.Int("lifetime", 60, "token lifetime in minutes")
	flag.Parse()

	secret := os.Getenv("CLASSIFIER_AUTH_JWT_SECRET")
	if secret == "" {
		log.Fatal("CLASSIFIER_AUTH_JWT_SECRET must be set")
	}

	jwtService, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:            secret,
		TokenLifetimeMinutes: *lifetime,
	})
	if err != nil {
		log.Fatalf("Failed to set up JWT service: %v", err)
	}

	token, err := jwtService.GenerateToken(context.Background(), *subject)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	fmt.Println(token)
}
