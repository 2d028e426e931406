package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
)

func main() {
	size := flag.Int("bytes", 32, "secret length in bytes")
	flag.Parse()

	secret := make([]byte, *size)
	if _, err := rand.Read(secret); err != nil {
		panic(err)
	}

	fmt.Printf("JWT_SECRET=%s\n", hex.EncodeToString(secret))
}
