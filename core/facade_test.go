// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/toeirei/sshpki/internal/core/crypto/key"
	"github.com/toeirei/sshpki/internal/core/crypto/registry"
)

type fakeSession struct {
	fips       bool
	extensions uint32
	opensshVer int
	opensshOK  bool
	accepted   []string
}

func (f *fakeSession) SessionID() []byte               { return []byte("session") }
func (f *fakeSession) Extensions() uint32               { return f.extensions }
func (f *fakeSession) PeerOpenSSHVersion() (int, bool)  { return f.opensshVer, f.opensshOK }
func (f *fakeSession) PubkeyAcceptedTypes() []string    { return f.accepted }
func (f *fakeSession) FIPSMode() bool                   { return f.fips }

func TestExportImportPrivateKeyFileRoundTrip(t *testing.T) {
	k, err := Generate(registry.Ed25519, 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	path := filepath.Join(t.TempDir(), "id_ed25519")
	if err := ExportPrivateKeyFile(k, path, []byte("hunter2"), "test@host"); err != nil {
		t.Fatalf("ExportPrivateKeyFile: %v", err)
	}

	imported, err := ImportPrivateKeyFile(path, []byte("hunter2"), DefaultLimits)
	if err != nil {
		t.Fatalf("ImportPrivateKeyFile: %v", err)
	}
	if imported.Tag != registry.Ed25519 {
		t.Fatalf("tag = %v, want Ed25519", imported.Tag)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestImportPrivateKeyFileSizeLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oversized")
	if err := os.WriteFile(path, make([]byte, 128), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := ImportPrivateKeyFile(path, nil, Limits{MaxPrivateKeySize: 64, MaxPublicKeySize: 64})
	if err == nil {
		t.Fatalf("expected size-limit error")
	}
}

func TestExportImportPublicKeyFile(t *testing.T) {
	k, err := Generate(registry.Ed25519, 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	path := filepath.Join(t.TempDir(), "id_ed25519.pub")
	if err := ExportPublicKeyFile(k, path, "alice@example.com"); err != nil {
		t.Fatalf("ExportPublicKeyFile: %v", err)
	}
	imported, err := ImportPublicKeyFile(path, DefaultLimits)
	if err != nil {
		t.Fatalf("ImportPublicKeyFile: %v", err)
	}
	if imported.Comment != "alice@example.com" {
		t.Fatalf("comment = %q", imported.Comment)
	}
}

func TestImportAuthorizedKeysFile(t *testing.T) {
	k1, _ := Generate(registry.Ed25519, 0)
	k2, _ := Generate(registry.ECDSAP256, 0)
	line1, err := key.PasteComment(k1, "alice")
	if err != nil {
		t.Fatalf("paste: %v", err)
	}
	line2, err := key.PasteComment(k2, "bob")
	if err != nil {
		t.Fatalf("paste: %v", err)
	}

	path := filepath.Join(t.TempDir(), "authorized_keys")
	content := "# a comment\n\n" + line1 + "\n" + line2 + "\nnot a valid line\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	keys, err := ImportAuthorizedKeysFile(path, DefaultLimits)
	if err != nil {
		t.Fatalf("ImportAuthorizedKeysFile: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("got %d keys, want 2", len(keys))
	}
}

func TestTypeToHashRSANegotiation(t *testing.T) {
	sess := &fakeSession{extensions: extRSASHA512 | extRSASHA256}
	if d := TypeToHash(sess, registry.RSA); d != registry.SHA512 {
		t.Fatalf("digest = %v, want SHA512", d)
	}

	sess2 := &fakeSession{extensions: extRSASHA256}
	if d := TypeToHash(sess2, registry.RSA); d != registry.SHA256 {
		t.Fatalf("digest = %v, want SHA256", d)
	}

	sess3 := &fakeSession{}
	if d := TypeToHash(sess3, registry.RSA); d != registry.SHA1 {
		t.Fatalf("digest = %v, want SHA1", d)
	}
}

func TestTypeToHashRSACertLegacyPeerForcesSHA1(t *testing.T) {
	sess := &fakeSession{extensions: extRSASHA512, opensshVer: 701, opensshOK: true}
	if d := TypeToHash(sess, registry.RSACert); d != registry.SHA1 {
		t.Fatalf("digest = %v, want SHA1 for pre-7.2.0 peer", d)
	}
}

func TestAlgorithmAllowedFIPSRejectsEd25519(t *testing.T) {
	sess := &fakeSession{fips: true, accepted: []string{"ssh-ed25519"}}
	if AlgorithmAllowed(sess, "ssh-ed25519") {
		t.Fatalf("expected ssh-ed25519 to be rejected in FIPS mode")
	}
}

func TestAlgorithmAllowedAcceptsListedClassical(t *testing.T) {
	sess := &fakeSession{accepted: []string{"ecdsa-sha2-nistp256"}}
	if !AlgorithmAllowed(sess, "ecdsa-sha2-nistp256") {
		t.Fatalf("expected ecdsa-sha2-nistp256 to be allowed")
	}
	if AlgorithmAllowed(sess, "ssh-rsa") {
		t.Fatalf("expected ssh-rsa to be rejected (not in accepted list)")
	}
}

func TestExportPrivateKeyToPublicDemotes(t *testing.T) {
	k, err := Generate(registry.RSA, 2048)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	pub, err := ExportPrivateKeyToPublic(k)
	if err != nil {
		t.Fatalf("ExportPrivateKeyToPublic: %v", err)
	}
	if pub.IsPrivate() {
		t.Fatalf("expected demoted key to be public-only")
	}
}
