// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package opensshv1

import (
	"testing"

	"github.com/toeirei/sshpki/internal/core/crypto/key"
	"github.com/toeirei/sshpki/internal/core/crypto/registry"
)

func TestEncodeDecodeEd25519NoPassphrase(t *testing.T) {
	k, err := key.Generate(registry.Ed25519, 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	block, err := Encode(k, nil, "test@host", CipherNone)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(block, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Tag != registry.Ed25519 {
		t.Fatalf("tag = %v, want Ed25519", got.Tag)
	}
}

func TestEncodeDecodePQWithPassphrase(t *testing.T) {
	k, err := key.Generate(registry.Dilithium2, 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	pass := []byte("correct horse battery staple")
	block, err := Encode(k, pass, "pq@host", CipherAES256CTR)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if _, err := Decode(block, nil); err == nil {
		t.Fatalf("expected error decoding without passphrase")
	}

	got, err := Decode(block, pass)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Tag != registry.Dilithium2 {
		t.Fatalf("tag = %v, want Dilithium2", got.Tag)
	}
	if got.Comment != "pq@host" {
		t.Fatalf("comment = %q", got.Comment)
	}
}

func TestEncodeDecodePQWrongPassphraseFails(t *testing.T) {
	k, err := key.Generate(registry.Dilithium2, 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	block, err := Encode(k, []byte("right"), "", CipherAES256CTR)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := Decode(block, []byte("wrong")); err == nil {
		t.Fatalf("expected error decoding with wrong passphrase")
	}
}
