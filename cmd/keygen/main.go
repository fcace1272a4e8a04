// Command keygen generates an RSA signing keypair in the same PKCS8/PKIX PEM
// encoding internal/keystore persists, for operators who want to seed a
// realm's JwtKeyPair out-of-band instead of letting GetOrGenerateKey create
// one on first token request.
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

const rsaKeySize = 2048

func main() {
	priv, err := rsa.GenerateKey(rand.Reader, rsaKeySize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate key: %v\n", err)
		os.Exit(1)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal private key: %v\n", err)
		os.Exit(1)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})

	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal public key: %v\n", err)
		os.Exit(1)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	fmt.Println("--- private_pem ---")
	fmt.Print(string(privPEM))
	fmt.Println("--- public_pem ---")
	fmt.Print(string(pubPEM))
}
