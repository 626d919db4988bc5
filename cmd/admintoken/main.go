// Command admintoken mints a bearer token for the admin analytics API using
// the JWT_SECRET from the environment or .env file.
package main

import (
	"flag"
	"fmt"
	"log"

	"storefront/internal/config"
	"storefront/internal/utils"
)

func main() {
	userID := flag.String("user", "admin", "admin user id")
	email := flag.String("email", "", "admin email")
	ttl := flag.Duration("ttl", utils.AdminTokenTTL, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	token, err := utils.GenerateAdminToken(*userID, *email, cfg.Security.JWTSecret, *ttl)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}
