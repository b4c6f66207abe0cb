// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Command sshpki is the command-line entrypoint for the SSH PKI toolkit:
// generate key pairs, print a public key or certificate file, export the
// public half of a private key, and attach certificates to private keys.
//
// Usage:
//
//	sshpki genkey --type ed25519 --out id_ed25519
//	sshpki show id_ed25519.pub
//	./sshpki --help
package main

import (
	"fmt"
	"os"

	"github.com/toeirei/sshpki/internal/logging"
)

var version = "dev" // set at build time with -ldflags

func main() {
	if os.Getenv("SSHPKI_SHOW_VERSION") == "1" {
		fmt.Fprintf(os.Stderr, "sshpki version: %s\n", version)
	}

	if err := Execute(); err != nil {
		logging.Errorf("sshpki: %v", err)
		os.Exit(1)
	}
}
