// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package core defines the high-level facade used by cmd/sshpki: the
// import/export/generate/compare entrypoints a CLI (or any other caller)
// drives instead of reaching into internal/core/crypto directly. It wires
// together the key model, the two private-key containers, the signature
// engine, and the PKCS#11 backend behind the session-aware algorithm checks
// FIPS mode and OpenSSH-version negotiation require.
//
// Grounded on ToeiRei-Keymaster's core/facades.go, which plays the same
// role for that system's CLI/TUI layers.
package core

import (
	"bytes"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	"github.com/toeirei/sshpki/internal/core/crypto/key"
	"github.com/toeirei/sshpki/internal/core/crypto/opensshv1"
	"github.com/toeirei/sshpki/internal/core/crypto/pemcontainer"
	"github.com/toeirei/sshpki/internal/core/crypto/pkcs11pki"
	"github.com/toeirei/sshpki/internal/core/crypto/registry"
	"github.com/toeirei/sshpki/internal/core/crypto/sshsign"
	"github.com/toeirei/sshpki/internal/core/pkierr"
	"github.com/toeirei/sshpki/internal/logging"
	"github.com/toeirei/sshpki/internal/sshkey"
)

// SessionInfo is the minimal read-only view of an SSH session this facade
// needs to make negotiation-aware decisions, so callers embedding this
// module's facade into an actual SSH client or server can satisfy it
// without this module depending on any
// transport package.
type SessionInfo interface {
	SessionID() []byte
	// Extensions is the RFC 8332 server-sig-algs bitmask the peer
	// advertised (bit 0 = rsa-sha2-256, bit 1 = rsa-sha2-512).
	Extensions() uint32
	// PeerOpenSSHVersion reports the peer's OpenSSH release as a single
	// comparable integer (e.g. 7.2 -> 702), or ok=false if unknown/non-OpenSSH.
	PeerOpenSSHVersion() (version int, ok bool)
	PubkeyAcceptedTypes() []string
	FIPSMode() bool
}

const (
	extRSASHA256 = 1 << 0
	extRSASHA512 = 1 << 1
)

// AgentSigner is the ssh-agent signing contract a caller may hold a key
// through instead of raw private material; agent transport itself is out of
// scope for this module, so no implementation lives here.
type AgentSigner interface {
	SignData(pubkey, buf []byte) ([]byte, error)
}

// Limits bounds the byte sizes the import functions will read before
// attempting to parse, and names the default PKCS#11 module used when a
// "pkcs11:" URI carries no module-path attribute of its own.
type Limits struct {
	MaxPrivateKeySize  int64
	MaxPublicKeySize   int64
	DefaultPKCS11Module string
}

// DefaultLimits gives reasonable MAX_PRIVKEY_SIZE/MAX_PUBKEY_SIZE defaults
// values (4 MiB classical private keys, 16 KiB public keys); PQ/hybrid
// containers are larger (SPHINCS+ secret keys alone run tens of KB) so
// callers that enable those algorithms should raise MaxPrivateKeySize.
var DefaultLimits = Limits{
	MaxPrivateKeySize: 4 << 20,
	MaxPublicKeySize:  16 << 10,
}

// ImportPrivateKeyBlob decides between the openssh-key-v1 and legacy PEM
// containers by sniffing the PEM block type, and parses accordingly.
// Input starting with "pkcs11:" is not routed to the PKCS#11 backend: it is
// rejected with a KindInput error, and such URIs are opened through
// ImportPKCS11Key instead.
func ImportPrivateKeyBlob(data []byte, passphrase []byte, limits Limits) (*key.Key, error) {
	if limits.MaxPrivateKeySize == 0 {
		limits = DefaultLimits
	}
	if int64(len(data)) > limits.MaxPrivateKeySize {
		return nil, pkierr.New(pkierr.KindInput, "private key exceeds configured size limit")
	}

	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("pkcs11:")) {
		return nil, pkierr.New(pkierr.KindInput, "pkcs11: URIs are imported via ImportPKCS11Key, not blob data")
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, pkierr.New(pkierr.KindParse, "no PEM block found in private key data")
	}

	switch block.Type {
	case "OPENSSH PRIVATE KEY":
		logging.Debugf("importing openssh-key-v1 private key block")
		return opensshv1.Decode(block, passphrase)
	default:
		logging.Debugf("importing legacy PEM private key block of type %q", block.Type)
		return pemcontainer.Decode(block, passphrase)
	}
}

// ImportPrivateKeyFile reads path and imports it as a private key, applying
// limits.MaxPrivateKeySize as a pre-read size cap: files larger than the
// cap are rejected before parsing.
func ImportPrivateKeyFile(path string, passphrase []byte, limits Limits) (*key.Key, error) {
	if limits.MaxPrivateKeySize == 0 {
		limits = DefaultLimits
	}
	data, err := readFileCapped(path, limits.MaxPrivateKeySize)
	if err != nil {
		return nil, err
	}
	return ImportPrivateKeyBlob(data, passphrase, limits)
}

// ImportPrivateKeyBase64 imports a private key given as full PEM text,
// BEGIN/END lines included. The naked base64 between those lines is not
// accepted on its own, since the block type in the header selects the
// container; base64-only data has to be wrapped in its BEGIN/END lines
// first.
func ImportPrivateKeyBase64(text string, passphrase []byte, limits Limits) (*key.Key, error) {
	return ImportPrivateKeyBlob([]byte(text), passphrase, limits)
}

// ImportPKCS11Key opens a pkcs11: URI and returns a public-only Key backed
// by the token; Signer-shaped operations route through the token rather
// than exposing private material.
func ImportPKCS11Key(uriText string, pin string, limits Limits) (*key.Key, *pkcs11pki.Signer, error) {
	uri, err := pkcs11pki.ParseURI(uriText)
	if err != nil {
		return nil, nil, err
	}
	if pin != "" {
		uri.PIN = pin
	}
	signer, err := pkcs11pki.Open(uri, limits.DefaultPKCS11Module)
	if err != nil {
		return nil, nil, err
	}
	pub := key.New(signer.Algorithm(), signer.Public(), nil, "")
	return pub, signer, nil
}

// ImportPublicKeyBlob parses a raw SSH public-key wire blob (not base64,
// not an authorized_keys line — just the bytes MarshalPublic produces).
func ImportPublicKeyBlob(blob []byte, limits Limits) (*key.Key, error) {
	if limits.MaxPublicKeySize == 0 {
		limits = DefaultLimits
	}
	if int64(len(blob)) > limits.MaxPublicKeySize {
		return nil, pkierr.New(pkierr.KindInput, "public key exceeds configured size limit")
	}
	return key.ParsePublic(blob)
}

// ImportPublicKeyBase64 parses a bare base64 public-key blob, as found
// after the algorithm name in an authorized_keys line.
func ImportPublicKeyBase64(b64 string, limits Limits) (*key.Key, error) {
	blob, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return nil, pkierr.Wrap(pkierr.KindParse, "decode base64 public key", err)
	}
	return ImportPublicKeyBlob(blob, limits)
}

// ImportPublicKeyFile recognizes a single authorized_keys-style line: an
// optional leading options field, the algorithm name, the base64 blob, and
// an optional trailing comment.
func ImportPublicKeyFile(path string, limits Limits) (*key.Key, error) {
	if limits.MaxPublicKeySize == 0 {
		limits = DefaultLimits
	}
	data, err := readFileCapped(path, limits.MaxPublicKeySize)
	if err != nil {
		return nil, err
	}
	line := strings.TrimSpace(string(data))
	if strings.HasPrefix(line, "pkcs11:") {
		return nil, pkierr.New(pkierr.KindInput, "pkcs11: URIs are imported via ImportPKCS11Key, not a public key file")
	}
	_, keyData, comment, err := sshkey.Parse(line)
	if err != nil {
		return nil, pkierr.Wrap(pkierr.KindParse, "parse authorized_keys line", err)
	}
	k, err := ImportPublicKeyBase64(keyData, limits)
	if err != nil {
		return nil, err
	}
	k.Comment = comment
	return k, nil
}

// ImportAuthorizedKeysFile parses every key line in a complete
// authorized_keys file, skipping blank lines and comment lines (a bare "#"
// prefix). A line that fails to parse is logged as a warning and skipped
// rather than aborting on the first bad entry; those per-line errors are not
// returned to the caller. The file is read whole, without the pre-read size
// cap the single-key file imports apply; MaxPublicKeySize bounds each key.
func ImportAuthorizedKeysFile(path string, limits Limits) ([]*key.Key, error) {
	if limits.MaxPublicKeySize == 0 {
		limits = DefaultLimits
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) || os.IsPermission(err) {
			return nil, pkierr.Wrap(pkierr.KindNotFound, "read authorized_keys file", err)
		}
		return nil, pkierr.Wrap(pkierr.KindCrypto, "read authorized_keys file", err)
	}

	var keys []*key.Key
	for lineNum, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		_, keyData, comment, err := sshkey.Parse(line)
		if err != nil {
			logging.Warnf("authorized_keys line %d: %v", lineNum+1, err)
			continue
		}
		k, err := ImportPublicKeyBase64(keyData, limits)
		if err != nil {
			logging.Warnf("authorized_keys line %d: %v", lineNum+1, err)
			continue
		}
		k.Comment = comment
		keys = append(keys, k)
	}
	return keys, nil
}

// ImportCertBlob parses a v01 certificate public-key blob.
func ImportCertBlob(blob []byte, limits Limits) (*key.Key, error) {
	return ImportPublicKeyBlob(blob, limits)
}

// ImportCertBase64 parses a base64 v01 certificate blob.
func ImportCertBase64(b64 string, limits Limits) (*key.Key, error) {
	return ImportPublicKeyBase64(b64, limits)
}

// ImportCertFile parses an authorized_keys-style line whose algorithm is a
// v01 certificate type.
func ImportCertFile(path string, limits Limits) (*key.Key, error) {
	k, err := ImportPublicKeyFile(path, limits)
	if err != nil {
		return nil, err
	}
	if !k.IsCert() {
		return nil, pkierr.New(pkierr.KindInput, "file does not contain a certificate")
	}
	return k, nil
}

// ExportPublicKeyFile writes k's public half as an authorized_keys line to
// path, creating it if necessary.
func ExportPublicKeyFile(k *key.Key, path, comment string) error {
	line, err := key.PasteComment(k, comment)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(line+"\n"), 0o644); err != nil {
		return pkierr.Wrap(pkierr.KindCrypto, "write public key file", err)
	}
	return nil
}

// ExportPrivateKeyFile writes k's private container (openssh-key-v1) to
// path with restrictive permissions, unlinking any partial file on error
// so a failed write never leaves a partial key file behind.
func ExportPrivateKeyFile(k *key.Key, path string, passphrase []byte, comment string) error {
	block, err := opensshv1.Encode(k, passphrase, comment, opensshv1.CipherAES256CTR)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		_ = os.Remove(path)
		return pkierr.Wrap(pkierr.KindCrypto, "write private key file", err)
	}
	return nil
}

// ExportPrivateKeyToPublic returns a demoted, public-only duplicate of k.
func ExportPrivateKeyToPublic(k *key.Key) (*key.Key, error) {
	return key.Duplicate(k, true)
}

// CopyCertToPrivateKey attaches certKey's certificate to a duplicate of
// privKey.
func CopyCertToPrivateKey(privKey, certKey *key.Key) (*key.Key, error) {
	return key.AttachCertificate(privKey, certKey)
}

// DoSign produces a client authentication signature: session's session id is
// bound into the signed data ahead of userBuf, per §4.6.
func DoSign(session SessionInfo, userBuf []byte, k *key.Key, digest registry.Digest) ([]byte, error) {
	if session == nil {
		return nil, pkierr.New(pkierr.KindInput, "nil session")
	}
	return sshsign.DoSign(session.SessionID(), userBuf, k, digest)
}

// DoSignServerHost produces a server host-authentication signature: the
// exchange hash stands in for the session id, packed as a bare byte-run
// rather than a length-prefixed string (§9 — this asymmetry against DoSign
// is load-bearing and must be preserved exactly).
func DoSignServerHost(exchangeHash, userBuf []byte, k *key.Key, digest registry.Digest) ([]byte, error) {
	return sshsign.DoSignServerHost(exchangeHash, userBuf, k, digest)
}

// Generate dispatches to the provider's key generator. parameter is the
// RSA modulus size in bits; it is
// ignored for every other algorithm, including ECDSA (the tag itself
// selects the curve) and Ed25519.
func Generate(tag registry.Tag, parameter int) (*key.Key, error) {
	return key.Generate(tag, parameter)
}

// AlgorithmAllowed reports whether name is among session's accepted
// host-key algorithms; in FIPS mode, algorithms the registry cannot
// validate under FIPS (Ed25519, PQ/hybrid, security keys, SHA1-only
// signatures) are rejected regardless of what the session advertises.
func AlgorithmAllowed(session SessionInfo, name string) bool {
	tag := registry.TagOf(name)
	if tag == registry.Unknown {
		return false
	}
	if session.FIPSMode() && !fipsApproved(tag) {
		return false
	}
	for _, accepted := range session.PubkeyAcceptedTypes() {
		if accepted == name {
			return true
		}
	}
	return false
}

// fipsApproved reports whether tag is usable in FIPS mode: classical RSA
// and ECDSA (and their certificates) are approved; Ed25519, security keys,
// and every post-quantum/hybrid tag are not, since none of those primitives
// have an approved FIPS 140 validation this module can rely on.
func fipsApproved(tag registry.Tag) bool {
	plain := registry.PlainOf(tag)
	if registry.IsOQS(plain) || registry.IsHybrid(plain) || registry.IsSK(plain) {
		return false
	}
	switch plain {
	case registry.RSA, registry.ECDSAP256, registry.ECDSAP384, registry.ECDSAP521:
		return true
	default:
		return false
	}
}

// TypeToHash resolves the digest to use for tag against session's
// negotiated capabilities: RSA-cert
// signatures are forced to SHA-1 against pre-7.2.0 OpenSSH peers (those
// versions cannot verify RFC 8332 RSA/SHA2 certificate signatures); every
// other RSA use prefers SHA-512, then SHA-256, then SHA-1, according to
// which RFC 8332 extension the session advertised. Non-RSA tags return
// their one fixed digest from the registry, i.e. negotiation does not
// apply to them.
func TypeToHash(session SessionInfo, tag registry.Tag) registry.Digest {
	plain := registry.PlainOf(tag)
	if plain != registry.RSA {
		return registry.HashOf(registry.NameOf(plain))
	}

	if tag == registry.RSACert {
		if v, ok := session.PeerOpenSSHVersion(); ok && v < 702 {
			return registry.SHA1
		}
	}

	ext := session.Extensions()
	switch {
	case ext&extRSASHA512 != 0:
		return registry.SHA512
	case ext&extRSASHA256 != 0:
		return registry.SHA256
	default:
		return registry.SHA1
	}
}

func readFileCapped(path string, max int64) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) || os.IsPermission(err) {
			return nil, pkierr.Wrap(pkierr.KindNotFound, "stat file", err)
		}
		return nil, pkierr.Wrap(pkierr.KindCrypto, "stat file", err)
	}
	if info.Size() > max {
		return nil, pkierr.New(pkierr.KindInput, fmt.Sprintf("file %s exceeds size limit of %d bytes", path, max))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) || os.IsPermission(err) {
			return nil, pkierr.Wrap(pkierr.KindNotFound, "read file", err)
		}
		return nil, pkierr.Wrap(pkierr.KindCrypto, "read file", err)
	}
	return data, nil
}
