// Command servicetoken mints a bearer token for internal callers of the
// token issuance routes, signed with INTERNAL_JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	config "github.com/avatarctic/email-verification-service/configs"
	"github.com/avatarctic/email-verification-service/internal/application/services"
	"github.com/avatarctic/email-verification-service/internal/core/domain/auth"
)

func main() {
	subject := flag.String("subject", "registration", "calling service name")
	scope := flag.String("scope", auth.ScopeIssueTokens, "space separated scopes")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	if cfg.Auth.InternalJWTSecret == "" {
		log.Fatal("INTERNAL_JWT_SECRET is not set")
	}

	token, err := services.NewServiceAuthService(cfg.Auth.InternalJWTSecret).IssueToken(*subject, *scope, *ttl)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(token)
}
