// keygen generates a secp256k1 identity and prints it in hex and bech32
// forms.
package main

import (
	"fmt"
	"os"

	"github.com/cardbazaar/ledger/internal/keys"
)

func main() {
	key, err := keys.Generate()
	if err != nil {
		fmt.Fprintln(os.Stderr, "generate key:", err)
		os.Exit(1)
	}

	nsec, err := key.Nsec()
	if err != nil {
		fmt.Fprintln(os.Stderr, "encode nsec:", err)
		os.Exit(1)
	}
	npub, err := key.Npub()
	if err != nil {
		fmt.Fprintln(os.Stderr, "encode npub:", err)
		os.Exit(1)
	}

	fmt.Printf("seckey %s\n", key.SecretHex())
	fmt.Printf("pubkey %s\n", key.PublicHex())
	fmt.Printf("nsec   %s\n", nsec)
	fmt.Printf("npub   %s\n", npub)
}
