// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package registry

import "testing"

// TestTagOfNameOfRoundTrip checks P1: for every supported tag, tag_of(name_of(t)) == t.
func TestTagOfNameOfRoundTrip(t *testing.T) {
	tags := []Tag{
		DSS, RSA, ECDSAP256, ECDSAP384, ECDSAP521, Ed25519,
		DSSCert, RSACert, ECDSAP256Cert, ECDSAP384Cert, ECDSAP521Cert, Ed25519Cert,
		SKECDSAP256, SKECDSAP256Cert, SKEd25519, SKEd25519Cert,
		Dilithium2, Falcon512, Picnic, SphincsSHA256128fRobust,
		HybridRSA3072Dilithium2, HybridP256Dilithium2,
	}
	for _, tag := range tags {
		name := NameOf(tag)
		if name == "" {
			t.Fatalf("NameOf(%d) returned empty name", tag)
		}
		if got := TagOf(name); got != tag {
			t.Fatalf("TagOf(NameOf(%d)=%q) = %d, want %d", tag, name, got, tag)
		}
	}
}

func TestTagOfLegacyAliases(t *testing.T) {
	cases := map[string]Tag{
		"rsa":       RSA,
		"dsa":       DSS,
		"ssh-ecdsa": ECDSAGeneric,
		"ecdsa":     ECDSAGeneric,
	}
	for alias, want := range cases {
		if got := TagOf(alias); got != want {
			t.Fatalf("TagOf(%q) = %d, want %d", alias, got, want)
		}
	}
}

func TestTagOfUnknown(t *testing.T) {
	if got := TagOf("not-a-real-algorithm"); got != Unknown {
		t.Fatalf("TagOf(unknown) = %d, want Unknown", got)
	}
}

func TestSignatureTagOfRSASHA2(t *testing.T) {
	if got := SignatureTagOf("rsa-sha2-256"); got != RSA {
		t.Fatalf("SignatureTagOf(rsa-sha2-256) = %d, want RSA", got)
	}
	if got := SignatureTagOf("rsa-sha2-512"); got != RSA {
		t.Fatalf("SignatureTagOf(rsa-sha2-512) = %d, want RSA", got)
	}
}

func TestHashOfTable(t *testing.T) {
	cases := map[string]Digest{
		"ssh-rsa":                             SHA1,
		"ssh-dss":                             SHA1,
		"rsa-sha2-256":                        SHA256,
		"ecdsa-sha2-nistp256":                 SHA256,
		"sk-ecdsa-sha2-nistp256@openssh.com":  SHA256,
		"rsa-sha2-512":                        SHA512,
		"ecdsa-sha2-nistp521":                 SHA512,
		"ecdsa-sha2-nistp384":                 SHA384,
		"ssh-ed25519":                         Auto,
		"sk-ssh-ed25519@openssh.com":          Auto,
		"ssh-rsa3072-dilithium2@openssh.com":  SHA256,
	}
	for name, want := range cases {
		if got := HashOf(name); got != want {
			t.Fatalf("HashOf(%q) = %v, want %v", name, got, want)
		}
	}
}

// TestPlainOfIdempotent checks P7: plain_of(plain_of(t)) == plain_of(t).
func TestPlainOfIdempotent(t *testing.T) {
	tags := []Tag{RSA, RSACert, Ed25519Cert, SKEd25519Cert, DSS, ECDSAP384Cert}
	for _, tag := range tags {
		once := PlainOf(tag)
		twice := PlainOf(once)
		if once != twice {
			t.Fatalf("PlainOf not idempotent for %d: once=%d twice=%d", tag, once, twice)
		}
	}
}

// TestIsCertMatchesNameSuffix checks P8.
func TestIsCertMatchesNameSuffix(t *testing.T) {
	for tag := range table {
		name := NameOf(tag)
		if name == "" {
			continue
		}
		wantCert := len(name) >= len("-cert-v01@openssh.com") &&
			name[len(name)-len("-cert-v01@openssh.com"):] == "-cert-v01@openssh.com"
		if IsCert(tag) != wantCert {
			t.Fatalf("IsCert(%d)=%v but name %q cert-suffix=%v", tag, IsCert(tag), name, wantCert)
		}
	}
}

func TestSignatureNameRSAVariants(t *testing.T) {
	cases := []struct {
		digest Digest
		want   string
	}{
		{SHA1, "ssh-rsa"},
		{Auto, "ssh-rsa"},
		{SHA256, "rsa-sha2-256"},
		{SHA512, "rsa-sha2-512"},
	}
	for _, c := range cases {
		if got := SignatureName(RSA, c.digest); got != c.want {
			t.Fatalf("SignatureName(RSA, %v) = %q, want %q", c.digest, got, c.want)
		}
	}
}

func TestSignatureNameNonRSAIgnoresDigest(t *testing.T) {
	if got := SignatureName(Ed25519, SHA256); got != "ssh-ed25519" {
		t.Fatalf("SignatureName(Ed25519, SHA256) = %q, want ssh-ed25519", got)
	}
}

func TestHybridPredicates(t *testing.T) {
	if !IsHybrid(HybridRSA3072Dilithium2) {
		t.Fatalf("expected HybridRSA3072Dilithium2 to be hybrid")
	}
	if !IsRSAHybrid(HybridRSA3072Dilithium2) {
		t.Fatalf("expected HybridRSA3072Dilithium2 to be an RSA hybrid")
	}
	if !IsECDSAHybrid(HybridP256Dilithium2) {
		t.Fatalf("expected HybridP256Dilithium2 to be an ECDSA hybrid")
	}
	classical, pq, ok := HybridHalves(HybridRSA3072Dilithium2)
	if !ok || classical != RSA || pq != Dilithium2 {
		t.Fatalf("HybridHalves(HybridRSA3072Dilithium2) = (%d, %d, %v)", classical, pq, ok)
	}
}

func TestOQSDescriptorLengths(t *testing.T) {
	d := OQSDescriptorOf(Dilithium2)
	if d == nil {
		t.Fatalf("expected OQS descriptor for Dilithium2")
	}
	if d.PKLen <= 0 || d.SKLen <= 0 {
		t.Fatalf("unexpected zero-length descriptor: %+v", d)
	}
}

func TestCertOfRoundTrip(t *testing.T) {
	if CertOf(Ed25519) != Ed25519Cert {
		t.Fatalf("CertOf(Ed25519) = %d, want Ed25519Cert", CertOf(Ed25519))
	}
	if PlainOf(CertOf(Ed25519)) != Ed25519 {
		t.Fatalf("PlainOf(CertOf(Ed25519)) != Ed25519")
	}
}
