package main

import (
	"fmt"
	"log"
	"os"

	"github.com/staylane/reservation-backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// Usage: generate-secrets [operator-password]
func main() {
	fmt.Println("===========================================")
	fmt.Println("Secret Generator for StayLane")
	fmt.Println("===========================================")
	fmt.Println()

	jwtSecret, err := utils.GenerateSecret(32)
	if err != nil {
		log.Fatalf("Failed to generate JWT secret: %v", err)
	}

	fmt.Println("Add these to your .env file:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", jwtSecret)

	if len(os.Args) > 1 {
		hash, err := bcrypt.GenerateFromPassword([]byte(os.Args[1]), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("Failed to hash operator password: %v", err)
		}
		fmt.Printf("OPERATOR_PASSWORD_HASH=%s\n", hash)
	} else {
		fmt.Println()
		fmt.Println("Pass the operator password as an argument to also print OPERATOR_PASSWORD_HASH")
	}

	fmt.Println()
	fmt.Println("PAYMONGO_WEBHOOK_SECRET comes from the PayMongo dashboard when the webhook is registered.")
	fmt.Println("IMPORTANT: Keep these secrets safe and never commit them to version control!")
	fmt.Println("===========================================")
}
