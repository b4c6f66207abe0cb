// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package sshsign

import (
	"testing"

	"github.com/toeirei/sshpki/internal/core/crypto/key"
	"github.com/toeirei/sshpki/internal/core/crypto/registry"
	"github.com/toeirei/sshpki/internal/core/crypto/wire"
)

func TestSignVerifyEd25519(t *testing.T) {
	k, err := key.Generate(registry.Ed25519, 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	msg := []byte("the quick brown fox")

	sig, err := Sign(k, msg, registry.Auto)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	pubOnly, err := key.Duplicate(k, true)
	if err != nil {
		t.Fatalf("Duplicate: %v", err)
	}
	ok, err := Verify(pubOnly, msg, sig)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected signature to verify")
	}

	if ok, _ := Verify(pubOnly, []byte("tampered"), sig); ok {
		t.Fatalf("expected tampered message to fail verification")
	}
}

func TestSignVerifyRSASHA256(t *testing.T) {
	k, err := key.Generate(registry.RSA, 2048)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	msg := []byte("rsa sha2-256 message")

	sig, err := Sign(k, msg, registry.SHA256)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	pubOnly, _ := key.Duplicate(k, true)
	ok, err := Verify(pubOnly, msg, sig)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected rsa-sha2-256 signature to verify")
	}
}

func TestSignVerifyDilithium2(t *testing.T) {
	k, err := key.Generate(registry.Dilithium2, 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	msg := []byte("post-quantum message")

	sig, err := Sign(k, msg, registry.Auto)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	pubOnly, _ := key.Duplicate(k, true)
	ok, err := Verify(pubOnly, msg, sig)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected dilithium2 signature to verify")
	}
}

func TestDoSignBindsSessionID(t *testing.T) {
	k, err := key.Generate(registry.Ed25519, 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	userBuf := []byte("user@host:publickey")
	sessionID := []byte("session-id-bytes")

	sig, err := DoSign(sessionID, userBuf, k, registry.Auto)
	if err != nil {
		t.Fatalf("DoSign: %v", err)
	}

	w := wire.NewWriter()
	w.WriteString(sessionID)
	w.WriteRaw(userBuf)
	ok, err := Verify(k, w.Bytes(), sig)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected DoSign signature to verify over string(session_id) || user_buf")
	}
}

func TestDoSignServerHostUsesBareExchangeHash(t *testing.T) {
	k, err := key.Generate(registry.Ed25519, 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	userBuf := []byte("host key")
	exchangeHash := []byte("exchange-hash-bytes")

	sig, err := DoSignServerHost(exchangeHash, userBuf, k, registry.Auto)
	if err != nil {
		t.Fatalf("DoSignServerHost: %v", err)
	}

	// The bare byte-run framing, not the length-prefixed string framing
	// DoSign uses, is what the signature is actually over.
	w := wire.NewWriter()
	w.WriteRaw(exchangeHash)
	w.WriteRaw(userBuf)
	ok, err := Verify(k, w.Bytes(), sig)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected DoSignServerHost signature to verify over the bare exchange hash || user_buf")
	}

	wStringFramed := wire.NewWriter()
	wStringFramed.WriteString(exchangeHash)
	wStringFramed.WriteRaw(userBuf)
	if ok, _ := Verify(k, wStringFramed.Bytes(), sig); ok {
		t.Fatalf("expected the host-signature variant not to match the length-prefixed framing DoSign uses")
	}
}

func TestVerifySKSynthesizesPreimageAutomatically(t *testing.T) {
	classical, err := key.Generate(registry.Ed25519, 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	skKey := key.NewSK(registry.SKEd25519, classical.ClassicalPublic(), nil, "ssh:", "")

	msg := []byte("touch")
	const flags byte = 0x01
	const counter uint32 = 9
	preimage := SKPreimage("ssh:", flags, counter, msg)

	classicalSig, err := Sign(classical, preimage, registry.Auto)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	r := wire.NewReader(classicalSig)
	if _, err := r.ReadNameString(); err != nil {
		t.Fatalf("ReadNameString: %v", err)
	}
	rawSig, err := r.ReadString()
	if err != nil {
		t.Fatalf("ReadString: %v", err)
	}

	w := wire.NewWriter()
	w.WriteNameString("sk-ssh-ed25519@openssh.com")
	w.WriteString(rawSig)
	w.WriteByte(flags)
	w.WriteUint32(counter)

	ok, err := Verify(skKey, msg, w.Bytes())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected Verify to synthesize the sk preimage automatically and accept the signature")
	}
}

func TestSignRejectsSKKeys(t *testing.T) {
	classical, err := key.Generate(registry.Ed25519, 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	skKey := key.NewSK(registry.SKEd25519, classical.ClassicalPublic(), classical.ClassicalPrivate(), "ssh:", "")
	if _, err := Sign(skKey, []byte("msg"), registry.Auto); err == nil {
		t.Fatalf("expected Sign to reject a security-key tag")
	}
}

func TestSKPreimageDeterministic(t *testing.T) {
	a := SKPreimage("ssh:", 0x01, 7, []byte("payload"))
	b := SKPreimage("ssh:", 0x01, 7, []byte("payload"))
	if string(a) != string(b) {
		t.Fatalf("expected deterministic preimage")
	}
	c := SKPreimage("ssh:", 0x01, 8, []byte("payload"))
	if string(a) == string(c) {
		t.Fatalf("expected different counter to change preimage")
	}
}
