// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package key

import (
	"crypto/rand"
	"testing"

	xssh "golang.org/x/crypto/ssh"

	"github.com/toeirei/sshpki/internal/core/crypto/registry"
)

func TestGenerateEd25519MarshalParseRoundTrip(t *testing.T) {
	k, err := Generate(registry.Ed25519, 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !k.IsPrivate() {
		t.Fatalf("expected private key")
	}

	blob, err := MarshalPublic(k)
	if err != nil {
		t.Fatalf("MarshalPublic: %v", err)
	}

	parsed, err := ParsePublic(blob)
	if err != nil {
		t.Fatalf("ParsePublic: %v", err)
	}
	if parsed.IsPrivate() {
		t.Fatalf("parsed key should be public-only")
	}

	eq, err := Cmp(k, parsed, "public")
	if err != nil {
		t.Fatalf("Cmp: %v", err)
	}
	if !eq {
		t.Fatalf("expected public halves to compare equal")
	}
}

func TestGenerateRSAMarshalRoundTrip(t *testing.T) {
	k, err := Generate(registry.RSA, 2048)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	blob, err := MarshalPublic(k)
	if err != nil {
		t.Fatalf("MarshalPublic: %v", err)
	}
	parsed, err := ParsePublic(blob)
	if err != nil {
		t.Fatalf("ParsePublic: %v", err)
	}
	if parsed.Tag != registry.RSA {
		t.Fatalf("tag = %v, want RSA", parsed.Tag)
	}
}

func TestDuplicateDemote(t *testing.T) {
	k, err := Generate(registry.Ed25519, 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	pubOnly, err := Duplicate(k, true)
	if err != nil {
		t.Fatalf("Duplicate: %v", err)
	}
	if pubOnly.IsPrivate() {
		t.Fatalf("demoted duplicate still reports private")
	}
	eq, err := Cmp(k, pubOnly, "public")
	if err != nil {
		t.Fatalf("Cmp: %v", err)
	}
	if !eq {
		t.Fatalf("expected demoted duplicate's public half to match")
	}
}

func TestCleanDropsPrivateMaterial(t *testing.T) {
	k, err := Generate(registry.Ed25519, 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	k.Clean()
	if k.IsPrivate() {
		t.Fatalf("expected Clean to drop private material")
	}
	if k.Tag != registry.Unknown {
		t.Fatalf("expected Tag reset to Unknown after Clean")
	}
}

func TestGeneratePQDilithium2(t *testing.T) {
	k, err := Generate(registry.Dilithium2, 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	blob, err := MarshalPublic(k)
	if err != nil {
		t.Fatalf("MarshalPublic: %v", err)
	}
	parsed, err := ParsePublic(blob)
	if err != nil {
		t.Fatalf("ParsePublic: %v", err)
	}
	if parsed.Tag != registry.Dilithium2 {
		t.Fatalf("tag = %v, want Dilithium2", parsed.Tag)
	}
}

func TestGenerateDSSRejected(t *testing.T) {
	if _, err := Generate(registry.DSS, 0); err == nil {
		t.Fatalf("expected DSS generation to be rejected")
	}
}

func TestCertificateAttachAndRoundTrip(t *testing.T) {
	subject, err := Generate(registry.Ed25519, 0)
	if err != nil {
		t.Fatalf("Generate subject: %v", err)
	}
	ca, err := Generate(registry.Ed25519, 0)
	if err != nil {
		t.Fatalf("Generate ca: %v", err)
	}

	subjectPub, err := xssh.NewPublicKey(subject.ClassicalPublic())
	if err != nil {
		t.Fatalf("NewPublicKey: %v", err)
	}
	caSigner, err := ca.Signer()
	if err != nil {
		t.Fatalf("Signer: %v", err)
	}
	sshCASigner, err := xssh.NewSignerFromSigner(caSigner)
	if err != nil {
		t.Fatalf("NewSignerFromSigner: %v", err)
	}

	cert := &xssh.Certificate{
		Nonce:           []byte("nonce"),
		Key:             subjectPub,
		Serial:          1,
		CertType:        xssh.UserCert,
		KeyId:           "test-user",
		ValidPrincipals: []string{"alice"},
		ValidAfter:      0,
		ValidBefore:     xssh.CertTimeInfinity,
	}
	if err := cert.SignCert(rand.Reader, sshCASigner); err != nil {
		t.Fatalf("SignCert: %v", err)
	}

	parsedCert, err := ParsePublic(cert.Marshal())
	if err != nil {
		t.Fatalf("ParsePublic(cert): %v", err)
	}
	if parsedCert.Tag != registry.Ed25519Cert {
		t.Fatalf("tag = %v, want Ed25519Cert", parsedCert.Tag)
	}

	attached, err := AttachCertificate(subject, parsedCert)
	if err != nil {
		t.Fatalf("AttachCertificate: %v", err)
	}
	if !attached.IsPrivate() || !attached.IsCert() {
		t.Fatalf("expected attached key to be private and carry a certificate")
	}

	if _, err := AttachCertificate(attached, parsedCert); err == nil {
		t.Fatalf("expected second attach to fail")
	}

	blob, err := MarshalPublic(attached)
	if err != nil {
		t.Fatalf("MarshalPublic(attached): %v", err)
	}
	reparsed, err := ParsePublic(blob)
	if err != nil {
		t.Fatalf("ParsePublic(round-trip): %v", err)
	}
	if reparsed.Certificate().KeyID != "test-user" {
		t.Fatalf("key id = %q", reparsed.Certificate().KeyID)
	}
}
