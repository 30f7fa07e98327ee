package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/web3guy0/marketboard/exec"
)

// Derives Polymarket CLOB API credentials from PRIVATE_KEY and prints them
// in .env form.
func main() {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	privateKey := os.Getenv("PRIVATE_KEY")
	if privateKey == "" {
		fmt.Println("❌ PRIVATE_KEY not found in environment variables")
		os.Exit(1)
	}

	sigType, _ := strconv.Atoi(os.Getenv("SIGNATURE_TYPE"))
	host := os.Getenv("POLYMARKET_CLOB_URL")
	if host == "" {
		host = exec.PolymarketCLOB
	}

	client := exec.NewClient(
		exec.Credentials{PrivateKey: privateKey},
		exec.WithBaseURL(host),
		exec.WithFunder(os.Getenv("FUNDER_ADDRESS"), sigType),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Println("🔑 Deriving API credentials...")
	creds, err := client.DeriveAPICreds(ctx)
	if err != nil {
		fmt.Println("❌ Error generating API credentials:", err)
		os.Exit(1)
	}

	fmt.Println("✅ API credentials generated. Add these to your .env.local:")
	fmt.Println()
	fmt.Printf("API_KEY=%s\n", creds.APIKey)
	fmt.Printf("API_SECRET=%s\n", creds.Secret)
	fmt.Printf("PASSPHRASE=%s\n", creds.Passphrase)
}
