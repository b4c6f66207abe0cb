// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package pemcontainer

import (
	"testing"

	"github.com/toeirei/sshpki/internal/core/crypto/key"
	"github.com/toeirei/sshpki/internal/core/crypto/registry"
)

func TestEncodeDecodeRSANoPassphrase(t *testing.T) {
	k, err := key.Generate(registry.RSA, 2048)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	block, err := Encode(k, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(block, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Tag != registry.RSA {
		t.Fatalf("tag = %v, want RSA", got.Tag)
	}
}

func TestEncodeDecodeECDSAWithPassphrase(t *testing.T) {
	k, err := key.Generate(registry.ECDSAP256, 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	block, err := Encode(k, []byte("hunter2"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := Decode(block, nil); err == nil {
		t.Fatalf("expected error decoding without passphrase")
	}
	got, err := Decode(block, []byte("hunter2"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Tag != registry.ECDSAP256 {
		t.Fatalf("tag = %v, want ECDSAP256", got.Tag)
	}
}

func TestEncodeDecodePQ(t *testing.T) {
	k, err := key.Generate(registry.Dilithium2, 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	block, err := Encode(k, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(block, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Tag != registry.Dilithium2 {
		t.Fatalf("tag = %v, want Dilithium2", got.Tag)
	}
}

func TestEncodeNilKeyRejected(t *testing.T) {
	if _, err := Encode(nil, nil); err == nil {
		t.Fatalf("expected error for nil key")
	}
}
