// Command mktoken mints an HS256 access token for local development and
// manual API testing.  In production tokens come from the admin platform's
// auth service; this tool just signs the same claim shape with JWT_SECRET
// so the service's middleware accepts it.
//
//	mktoken -user u-12 -role employee -ttl 60
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/opstrack/room-booking/internal/utils"
)

func main() {
	user := flag.String("user", "", "actor id to place in the token subject")
	role := flag.String("role", "employee", "role claim: employee, approver or admin")
	ttl := flag.Int("ttl", 60, "token lifetime in minutes")
	flag.Parse()

	if *user == "" {
		log.Fatal("missing -user")
	}

	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("missing required env var: JWT_SECRET")
	}

	tok, err := utils.NewAccessToken(secret, *user, *role, *ttl)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format("2006-01-02 15:04:05 MST"))
}
