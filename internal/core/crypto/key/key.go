// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package key implements the tagged-union key model: a single Key type
// that can hold a public key, a private key, or a private key plus its
// attached certificate, for any algorithm the registry package knows about.
//
// Classical algorithms (RSA, ECDSA, Ed25519, DSS) are held as the matching
// crypto/*, golang.org/x/crypto/ssh types and marshaled through
// golang.org/x/crypto/ssh — there is no reason to hand-roll what that
// package already does correctly. Post-quantum and hybrid algorithms have no
// stdlib or x/crypto representation, so their raw OQS-format material is
// held as bytes and marshaled through the wire package directly; hybrid keys
// compose both halves.
//
// Grounded on ToeiRei-Keymaster's internal/core/crypto/ssh/{format,generator}.go
// for the classical marshaling idiom, and remiblancher-qpki's
// internal/crypto/hybrid.go for how a classical+PQ pair is composed and
// signed as one unit.
package key

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"fmt"

	xssh "golang.org/x/crypto/ssh"

	"github.com/toeirei/sshpki/internal/core/crypto/pq"
	"github.com/toeirei/sshpki/internal/core/crypto/registry"
	"github.com/toeirei/sshpki/internal/core/crypto/wire"
	"github.com/toeirei/sshpki/internal/core/pkierr"
	"github.com/toeirei/sshpki/internal/security"
)

// Certificate holds the v01 certificate fields attached to a Key.
// SignatureKey/Signature are the raw blobs copied verbatim from the wire;
// re-signing is handled by the sshsign package.
type Certificate struct {
	Nonce           []byte
	Serial          uint64
	Type            uint32 // 1 = user, 2 = host
	KeyID           string
	ValidPrincipals []string
	ValidAfter      uint64
	ValidBefore     uint64
	CriticalOptions map[string]string
	Extensions      map[string]string
	Reserved        []byte
	SignatureKey    []byte
	Signature       []byte
}

// Key is the tagged union over every supported key shape: a bare public
// key, a private key (which always carries its public half), or a private
// key with an attached certificate.
type Key struct {
	Tag     registry.Tag
	Comment string

	// classicalPub/classicalPriv hold the stdlib representation for
	// non-PQ tags: *rsa.PublicKey/*rsa.PrivateKey, *ecdsa.{Public,Private}Key,
	// ed25519.PublicKey/ed25519.PrivateKey. Both nil for pure-PQ tags.
	classicalPub  crypto.PublicKey
	classicalPriv crypto.PrivateKey

	// pqPublic and pqSecret hold raw OQS-format material for OQS/hybrid
	// tags. pqSecret is zeroized by Clean.
	pqPublic []byte
	pqSecret security.Secret

	// hybridClassicalPub/Priv hold the classical half of a hybrid key; the
	// PQ half lives in pqPublic/pqSecret.
	hybridClassicalPub  crypto.PublicKey
	hybridClassicalPriv crypto.PrivateKey

	// skApplication is the FIDO/U2F application string (e.g. "ssh:") a
	// security-key tag's public-key blob carries after its classical fields.
	// Empty for every non-SK tag.
	skApplication string

	cert *Certificate
}

// Application returns the FIDO/U2F application string attached to a
// security-key Key, or "" for non-SK tags.
func (k *Key) Application() string {
	if k == nil {
		return ""
	}
	return k.skApplication
}

// IsPublic reports whether k holds only public material.
func (k *Key) IsPublic() bool { return !k.IsPrivate() }

// IsPrivate reports whether k holds private material.
func (k *Key) IsPrivate() bool {
	if k == nil {
		return false
	}
	return k.classicalPriv != nil || k.hybridClassicalPriv != nil || len(k.pqSecret) > 0
}

// IsCert reports whether k carries an attached certificate.
func (k *Key) IsCert() bool { return k != nil && k.cert != nil }

// Type returns k's algorithm tag (the certificate tag if a certificate is
// attached, else the plain key tag).
func (k *Key) Type() registry.Tag { return k.Tag }

// Certificate returns k's attached certificate, or nil if none.
func (k *Key) Certificate() *Certificate { return k.cert }

// Clean zeroizes k's PQ secret-key bytes, drops its references to the
// classical private key values without overwriting them, and detaches the
// certificate. k itself remains usable as an empty Key afterward.
func (k *Key) Clean() {
	if k == nil {
		return
	}
	k.pqSecret.Zero()
	k.classicalPriv = nil
	k.hybridClassicalPriv = nil
	k.pqSecret = nil
	k.pqPublic = nil
	k.classicalPub = nil
	k.hybridClassicalPub = nil
	k.skApplication = ""
	k.cert = nil
	k.Tag = registry.Unknown
}

// Duplicate returns a copy of k. The PQ public/secret bytes and the
// certificate struct are copied; the classical public and private key values
// are shared with k, not cloned. When demote is true, the copy carries
// only public material (private fields are left nil/empty) even if k itself
// is a private key — used by ExportPrivateKeyToPublic.
func Duplicate(k *Key, demote bool) (*Key, error) {
	if k == nil {
		return nil, pkierr.New(pkierr.KindInput, "nil key")
	}
	out := &Key{Tag: registry.PlainOf(k.Tag), Comment: k.Comment}
	if k.IsCert() && !demote {
		out.Tag = k.Tag
		cert := *k.cert
		out.cert = &cert
	}

	out.classicalPub = k.classicalPub
	out.hybridClassicalPub = k.hybridClassicalPub
	out.pqPublic = append([]byte(nil), k.pqPublic...)
	out.skApplication = k.skApplication

	if !demote {
		out.classicalPriv = k.classicalPriv
		out.hybridClassicalPriv = k.hybridClassicalPriv
		out.pqSecret = append(security.Secret(nil), k.pqSecret...)
		if k.IsCert() {
			out.Tag = k.Tag
		}
	}

	return out, nil
}

// AttachCertificate copies certKey's certificate onto a duplicate of
// privKey. It refuses a nil argument,
// a certKey carrying no certificate, a privKey with no private material, a
// privKey that already carries a certificate, or a subject-key mismatch
// between the certificate and privKey's public half.
func AttachCertificate(privKey, certKey *Key) (*Key, error) {
	if privKey == nil || certKey == nil {
		return nil, pkierr.New(pkierr.KindInput, "nil key")
	}
	if !privKey.IsPrivate() {
		return nil, pkierr.New(pkierr.KindInput, "target key has no private material")
	}
	if privKey.IsCert() {
		return nil, pkierr.New(pkierr.KindInput, "target key already carries a certificate")
	}
	if !certKey.IsCert() {
		return nil, pkierr.New(pkierr.KindInput, "source key carries no certificate")
	}

	certPub, err := MarshalPublic(&Key{Tag: registry.PlainOf(certKey.Tag), classicalPub: certKey.classicalPub})
	if err != nil {
		return nil, err
	}
	privPub, err := MarshalPublic(&Key{Tag: registry.PlainOf(privKey.Tag), classicalPub: privKey.ClassicalPublic()})
	if err != nil {
		return nil, err
	}
	if string(certPub) != string(privPub) {
		return nil, pkierr.New(pkierr.KindCompat, "certificate subject key does not match target private key")
	}

	out, err := Duplicate(privKey, false)
	if err != nil {
		return nil, err
	}
	cert := *certKey.cert
	out.cert = &cert
	out.Tag = certKey.Tag
	return out, nil
}

// Cmp compares two keys for equality. what selects what must match:
// "public" compares public material only (ignoring certificates and any
// private halves); "all" additionally requires identical private material
// and an identical attached certificate.
func Cmp(k1, k2 *Key, what string) (bool, error) {
	if k1 == nil || k2 == nil {
		return false, pkierr.New(pkierr.KindInput, "nil key")
	}
	if registry.PlainOf(k1.Tag) != registry.PlainOf(k2.Tag) {
		return false, nil
	}

	bare1, bare2 := *k1, *k2
	bare1.cert, bare2.cert = nil, nil
	pub1, err := MarshalPublic(&bare1)
	if err != nil {
		return false, err
	}
	pub2, err := MarshalPublic(&bare2)
	if err != nil {
		return false, err
	}
	if string(pub1) != string(pub2) {
		return false, nil
	}

	switch what {
	case "public":
		return true, nil
	case "all":
		if k1.IsPrivate() != k2.IsPrivate() {
			return false, nil
		}
		if k1.IsPrivate() {
			p1, err := marshalPrivateRaw(k1)
			if err != nil {
				return false, err
			}
			p2, err := marshalPrivateRaw(k2)
			if err != nil {
				return false, err
			}
			if string(p1) != string(p2) {
				return false, nil
			}
		}
		if k1.IsCert() != k2.IsCert() {
			return false, nil
		}
		if k1.IsCert() {
			c1, err1 := marshalCertPublic(k1)
			c2, err2 := marshalCertPublic(k2)
			if err1 != nil {
				return false, err1
			}
			if err2 != nil {
				return false, err2
			}
			if string(c1) != string(c2) {
				return false, nil
			}
		}
		return true, nil
	default:
		return false, pkierr.New(pkierr.KindInput, "unknown comparison mode: "+what)
	}
}

// Generate creates a fresh key pair for tag. parameter is the RSA modulus
// size in bits (ignored for fixed-size algorithms).
func Generate(tag registry.Tag, parameter int) (*Key, error) {
	if !registry.IsKnown(tag) || registry.IsCert(tag) {
		return nil, pkierr.New(pkierr.KindInput, "not a generatable key algorithm: "+registry.NameOf(tag))
	}
	if registry.IsSK(tag) {
		return nil, pkierr.New(pkierr.KindCompat, "security-key algorithms are enrolled by hardware, not generated")
	}
	if tag == registry.DSS {
		return nil, pkierr.New(pkierr.KindCompat, "ssh-dss key generation is disabled; import-only")
	}

	if registry.IsHybrid(tag) {
		return generateHybrid(tag)
	}
	if registry.IsOQS(tag) {
		return generatePQ(tag)
	}

	switch tag {
	case registry.RSA:
		if parameter == 0 {
			parameter = 3072
		}
		priv, err := rsa.GenerateKey(rand.Reader, parameter)
		if err != nil {
			return nil, pkierr.Wrap(pkierr.KindCrypto, "generate rsa key", err)
		}
		return &Key{Tag: tag, classicalPub: &priv.PublicKey, classicalPriv: priv}, nil
	case registry.ECDSAP256:
		return generateECDSA(tag, elliptic.P256())
	case registry.ECDSAP384:
		return generateECDSA(tag, elliptic.P384())
	case registry.ECDSAP521:
		return generateECDSA(tag, elliptic.P521())
	case registry.Ed25519:
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, pkierr.Wrap(pkierr.KindCrypto, "generate ed25519 key", err)
		}
		return &Key{Tag: tag, classicalPub: pub, classicalPriv: priv}, nil
	default:
		return nil, pkierr.New(pkierr.KindInput, "unsupported key algorithm: "+registry.NameOf(tag))
	}
}

func generateECDSA(tag registry.Tag, curve elliptic.Curve) (*Key, error) {
	priv, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, pkierr.Wrap(pkierr.KindCrypto, "generate ecdsa key", err)
	}
	return &Key{Tag: tag, classicalPub: &priv.PublicKey, classicalPriv: priv}, nil
}

func generatePQ(tag registry.Tag) (*Key, error) {
	pub, sec, err := pq.Generate(tag, rand.Reader)
	if err != nil {
		return nil, pkierr.Wrap(pkierr.KindCrypto, "generate pq key", err)
	}
	return &Key{Tag: tag, pqPublic: pub, pqSecret: security.FromBytes(sec)}, nil
}

func generateHybrid(tag registry.Tag) (*Key, error) {
	classicalTag, pqTag, ok := registry.HybridHalves(tag)
	if !ok {
		return nil, pkierr.New(pkierr.KindInput, "not a hybrid tag")
	}
	classical, err := Generate(classicalTag, 3072)
	if err != nil {
		return nil, err
	}
	pqHalf, err := Generate(pqTag, 0)
	if err != nil {
		return nil, err
	}
	return &Key{
		Tag:                 tag,
		hybridClassicalPub:  classical.classicalPub,
		hybridClassicalPriv: classical.classicalPriv,
		pqPublic:            pqHalf.pqPublic,
		pqSecret:            pqHalf.pqSecret,
	}, nil
}

// New wraps a classical crypto public/private key (as produced by
// crypto/{rsa,ecdsa,ed25519}) into a Key with the matching registry tag.
func New(tag registry.Tag, pub crypto.PublicKey, priv crypto.PrivateKey, comment string) *Key {
	return &Key{Tag: tag, classicalPub: pub, classicalPriv: priv, Comment: comment}
}

// NewSK wraps a security-key's classical public/private material, plus the
// FIDO/U2F application string its public-key blob carries, into a Key. priv
// is nil unless the caller holds the authenticator's raw private key for
// testing; production SK keys are ordinarily public-only (§4.6: signing
// requires talking to the authenticator, which this module does not do).
func NewSK(tag registry.Tag, pub crypto.PublicKey, priv crypto.PrivateKey, application, comment string) *Key {
	return &Key{Tag: tag, classicalPub: pub, classicalPriv: priv, skApplication: application, Comment: comment}
}

// NewPQ wraps raw OQS-format public/secret material into a Key for a pure
// post-quantum tag.
func NewPQ(tag registry.Tag, pub []byte, sec []byte, comment string) *Key {
	return &Key{Tag: tag, pqPublic: pub, pqSecret: security.FromBytes(sec), Comment: comment}
}

// NewHybrid composes a classical crypto key and raw PQ material into a
// hybrid Key, for containers (opensshv1) that parse the two halves
// separately.
func NewHybrid(tag registry.Tag, classicalPub crypto.PublicKey, classicalPriv crypto.PrivateKey, pqPub, pqSec []byte, comment string) *Key {
	return &Key{
		Tag:                 tag,
		hybridClassicalPub:  classicalPub,
		hybridClassicalPriv: classicalPriv,
		pqPublic:            pqPub,
		pqSecret:            security.FromBytes(pqSec),
		Comment:             comment,
	}
}

// ClassicalPublic returns the classical crypto.PublicKey half (for classical
// and hybrid tags), or nil for pure-PQ keys.
func (k *Key) ClassicalPublic() crypto.PublicKey {
	if k.classicalPub != nil {
		return k.classicalPub
	}
	return k.hybridClassicalPub
}

// ClassicalPrivate returns the classical crypto.PrivateKey half, or nil.
func (k *Key) ClassicalPrivate() crypto.PrivateKey {
	if k.classicalPriv != nil {
		return k.classicalPriv
	}
	return k.hybridClassicalPriv
}

// PQPublic returns the raw OQS-format public key bytes, or nil for purely
// classical tags.
func (k *Key) PQPublic() []byte { return k.pqPublic }

// PQSecret returns a copy of the PQ secret key bytes for the signature
// engine. The copy is not tracked by k, so Clean does not zeroize it.
func (k *Key) PQSecret() []byte { return k.pqSecret.Bytes() }

// Signer adapts k's private material to crypto.Signer for classical tags.
// PQ and hybrid tags are signed through the sshsign package instead, which
// understands how to compose a dual signature.
func (k *Key) Signer() (crypto.Signer, error) {
	priv := k.ClassicalPrivate()
	if priv == nil {
		return nil, pkierr.New(pkierr.KindCrypto, "key has no classical private material")
	}
	s, ok := priv.(crypto.Signer)
	if !ok {
		return nil, pkierr.New(pkierr.KindCrypto, "private key does not implement crypto.Signer")
	}
	return s, nil
}

// MarshalPublic encodes k's public key as an SSH public-key blob (RFC 4253
// §6.6): the algorithm name string followed by algorithm-specific fields.
// For classical algorithms this defers to golang.org/x/crypto/ssh, which
// implements the identical wire format; PQ and hybrid algorithms are
// encoded directly through the wire package.
func MarshalPublic(k *Key) ([]byte, error) {
	if k == nil {
		return nil, pkierr.New(pkierr.KindInput, "nil key")
	}
	if k.IsCert() {
		return marshalCertPublic(k)
	}
	plain := registry.PlainOf(k.Tag)

	switch {
	case registry.IsOQS(plain):
		return marshalOQSPublic(plain, k.pqPublic), nil
	case registry.IsHybrid(plain):
		return marshalHybridPublic(plain, k)
	case registry.IsSK(plain):
		return marshalSKPublic(plain, k)
	default:
		pub, err := xssh.NewPublicKey(k.ClassicalPublic())
		if err != nil {
			return nil, pkierr.Wrap(pkierr.KindCrypto, "marshal classical public key", err)
		}
		return pub.Marshal(), nil
	}
}

// marshalCertPublic rebuilds an x/crypto/ssh Certificate from k's stored
// fields and re-marshals it, rather than hand-rolling the v01 certificate
// wire layout (nonce, key, serial, type, key-id, principals, validity,
// options, extensions, reserved, signature key, signature) that
// golang.org/x/crypto/ssh already encodes correctly.
func marshalCertPublic(k *Key) ([]byte, error) {
	if k.cert == nil {
		return nil, pkierr.New(pkierr.KindInput, "key has no attached certificate")
	}
	sshPub, err := xssh.NewPublicKey(k.ClassicalPublic())
	if err != nil {
		return nil, pkierr.Wrap(pkierr.KindCrypto, "marshal certificate subject key", err)
	}
	cert := &xssh.Certificate{
		Nonce:           k.cert.Nonce,
		Key:             sshPub,
		Serial:          k.cert.Serial,
		CertType:        k.cert.Type,
		KeyId:           k.cert.KeyID,
		ValidPrincipals: k.cert.ValidPrincipals,
		ValidAfter:      k.cert.ValidAfter,
		ValidBefore:     k.cert.ValidBefore,
		Permissions: xssh.Permissions{
			CriticalOptions: k.cert.CriticalOptions,
			Extensions:      k.cert.Extensions,
		},
		Reserved: k.cert.Reserved,
	}
	if len(k.cert.SignatureKey) > 0 {
		sigKey, err := xssh.ParsePublicKey(k.cert.SignatureKey)
		if err != nil {
			return nil, pkierr.Wrap(pkierr.KindParse, "parse certificate signature key", err)
		}
		cert.SignatureKey = sigKey
	}
	if len(k.cert.Signature) > 0 {
		format, raw, err := decodeCertSignature(k.cert.Signature)
		if err != nil {
			return nil, err
		}
		cert.Signature = &xssh.Signature{Format: format, Blob: raw}
	}
	return cert.Marshal(), nil
}

func decodeCertSignature(sigBlob []byte) (format string, raw []byte, err error) {
	r := wire.NewReader(sigBlob)
	format, err = r.ReadNameString()
	if err != nil {
		return "", nil, pkierr.Wrap(pkierr.KindParse, "read certificate signature format", err)
	}
	raw, err = r.ReadString()
	if err != nil {
		return "", nil, pkierr.Wrap(pkierr.KindParse, "read certificate signature blob", err)
	}
	return format, raw, nil
}

func marshalOQSPublic(tag registry.Tag, pub []byte) []byte {
	w := wire.NewWriter()
	w.WriteNameString(registry.NameOf(tag))
	w.WriteString(pub)
	return w.Bytes()
}

func marshalHybridPublic(tag registry.Tag, k *Key) ([]byte, error) {
	_, _, ok := registry.HybridHalves(tag)
	if !ok {
		return nil, pkierr.New(pkierr.KindInput, "not a hybrid tag")
	}
	classicalBlob, err := xssh.NewPublicKey(k.ClassicalPublic())
	if err != nil {
		return nil, pkierr.Wrap(pkierr.KindCrypto, "marshal hybrid classical half", err)
	}

	w := wire.NewWriter()
	w.WriteNameString(registry.NameOf(tag))
	w.WriteString(classicalBlob.Marshal())
	w.WriteString(k.pqPublic)
	return w.Bytes(), nil
}

// marshalSKPublic encodes a security-key public-key blob: the sk-* algorithm
// name, the same curve/point (or Ed25519 key) fields the underlying
// classical algorithm uses, and a trailing application string (§4.2).
// golang.org/x/crypto/ssh has no sk-* PublicKey implementation to delegate
// to, so this reframes the classical blob it does produce under the sk-*
// name and appends the application.
func marshalSKPublic(tag registry.Tag, k *Key) ([]byte, error) {
	classicalTag, ok := registry.SKClassicalTag(tag)
	if !ok {
		return nil, pkierr.New(pkierr.KindInput, "not a security-key algorithm: "+registry.NameOf(tag))
	}
	sshPub, err := xssh.NewPublicKey(k.ClassicalPublic())
	if err != nil {
		return nil, pkierr.Wrap(pkierr.KindCrypto, "marshal sk classical half", err)
	}
	if sshPub.Type() != registry.NameOf(classicalTag) {
		return nil, pkierr.New(pkierr.KindCompat, "security-key material does not match its declared algorithm")
	}

	r := wire.NewReader(sshPub.Marshal())
	if _, err := r.ReadNameString(); err != nil {
		return nil, pkierr.Wrap(pkierr.KindParse, "read sk classical name", err)
	}
	w := wire.NewWriter()
	w.WriteNameString(registry.NameOf(tag))
	w.WriteRaw(r.Remaining())
	w.WriteString([]byte(k.skApplication))
	return w.Bytes(), nil
}

// parseSKPublic decodes a security-key public-key blob: it reframes the
// trailing classical fields as a plain classical blob so x/crypto/ssh can
// parse them, then reads the application string.
func parseSKPublic(tag registry.Tag, blob []byte) (*Key, error) {
	classicalTag, ok := registry.SKClassicalTag(tag)
	if !ok {
		return nil, pkierr.New(pkierr.KindInput, "not a security-key algorithm: "+registry.NameOf(tag))
	}

	r := wire.NewReader(blob)
	if _, err := r.ReadNameString(); err != nil {
		return nil, pkierr.Wrap(pkierr.KindParse, "read sk algorithm name", err)
	}

	cw := wire.NewWriter()
	cw.WriteNameString(registry.NameOf(classicalTag))
	switch classicalTag {
	case registry.ECDSAP256, registry.ECDSAP384, registry.ECDSAP521:
		curveName, err := r.ReadString()
		if err != nil {
			return nil, pkierr.Wrap(pkierr.KindParse, "read sk curve name", err)
		}
		point, err := r.ReadString()
		if err != nil {
			return nil, pkierr.Wrap(pkierr.KindParse, "read sk ec point", err)
		}
		cw.WriteString(curveName)
		cw.WriteString(point)
	case registry.Ed25519:
		pub, err := r.ReadString()
		if err != nil {
			return nil, pkierr.Wrap(pkierr.KindParse, "read sk ed25519 public key", err)
		}
		cw.WriteString(pub)
	default:
		return nil, pkierr.New(pkierr.KindCompat, "security-key algorithm has no known classical field layout: "+registry.NameOf(classicalTag))
	}
	application, err := r.ReadString()
	if err != nil {
		return nil, pkierr.Wrap(pkierr.KindParse, "read sk application", err)
	}

	classicalPub, err := xssh.ParsePublicKey(cw.Bytes())
	if err != nil {
		return nil, pkierr.Wrap(pkierr.KindParse, "parse sk classical fields", err)
	}
	cryptoPub, err := cryptoPublicKey(classicalPub)
	if err != nil {
		return nil, err
	}
	return &Key{Tag: tag, classicalPub: cryptoPub, skApplication: string(application)}, nil
}

// marshalPrivateRaw produces a comparison-only encoding of k's private
// material, used by Cmp; it is not a wire format.
func marshalPrivateRaw(k *Key) ([]byte, error) {
	if k.pqSecret != nil {
		return append([]byte(nil), k.pqSecret...), nil
	}
	priv := k.ClassicalPrivate()
	if priv == nil {
		return nil, pkierr.New(pkierr.KindCrypto, "no private material")
	}
	switch p := priv.(type) {
	case *rsa.PrivateKey:
		return p.D.Bytes(), nil
	case *ecdsa.PrivateKey:
		return p.D.Bytes(), nil
	case ed25519.PrivateKey:
		return append([]byte(nil), p...), nil
	default:
		return nil, fmt.Errorf("unsupported private key type %T", priv)
	}
}

// ParsePublic decodes an SSH public-key blob (the format produced by
// MarshalPublic) into a Key holding only public material.
func ParsePublic(blob []byte) (*Key, error) {
	r := wire.NewReader(blob)
	name, err := r.ReadNameString()
	if err != nil {
		return nil, pkierr.Wrap(pkierr.KindParse, "read algorithm name", err)
	}
	tag := registry.TagOf(name)
	if tag == registry.Unknown {
		return nil, pkierr.New(pkierr.KindParse, "unknown key algorithm: "+name)
	}

	if registry.IsCert(tag) {
		return parseCertPublic(tag, blob)
	}

	switch {
	case registry.IsOQS(registry.PlainOf(tag)):
		pub, err := r.ReadString()
		if err != nil {
			return nil, pkierr.Wrap(pkierr.KindParse, "read pq public key", err)
		}
		if d := registry.OQSDescriptorOf(registry.PlainOf(tag)); d != nil && len(pub) != d.PKLen {
			return nil, pkierr.New(pkierr.KindParse, "pq public key length does not match "+name)
		}
		return &Key{Tag: tag, pqPublic: append([]byte(nil), pub...)}, nil
	case registry.IsHybrid(registry.PlainOf(tag)):
		classicalBlob, err := r.ReadString()
		if err != nil {
			return nil, pkierr.Wrap(pkierr.KindParse, "read hybrid classical half", err)
		}
		pqPub, err := r.ReadString()
		if err != nil {
			return nil, pkierr.Wrap(pkierr.KindParse, "read hybrid pq half", err)
		}
		_, pqTag, _ := registry.HybridHalves(registry.PlainOf(tag))
		if d := registry.OQSDescriptorOf(pqTag); d != nil && len(pqPub) != d.PKLen {
			return nil, pkierr.New(pkierr.KindParse, "hybrid pq public key length does not match "+name)
		}
		classicalPub, err := xssh.ParsePublicKey(classicalBlob)
		if err != nil {
			return nil, pkierr.Wrap(pkierr.KindParse, "parse hybrid classical half", err)
		}
		cryptoPub, err := cryptoPublicKey(classicalPub)
		if err != nil {
			return nil, err
		}
		return &Key{Tag: tag, hybridClassicalPub: cryptoPub, pqPublic: append([]byte(nil), pqPub...)}, nil
	case registry.IsSK(registry.PlainOf(tag)):
		return parseSKPublic(tag, blob)
	default:
		pub, err := xssh.ParsePublicKey(blob)
		if err != nil {
			return nil, pkierr.Wrap(pkierr.KindParse, "parse classical public key", err)
		}
		cryptoPub, err := cryptoPublicKey(pub)
		if err != nil {
			return nil, err
		}
		return &Key{Tag: tag, classicalPub: cryptoPub}, nil
	}
}

// parseCertPublic decodes a v01 certificate blob via x/crypto/ssh's own
// Certificate parser (it already implements the exact field layout RFC
// 4251/4253 certificates use) and copies its fields into this module's
// Certificate type, which is what the rest of the codebase (sshsign, the
// facade) deals
// with instead of importing x/crypto/ssh's type directly.
func parseCertPublic(tag registry.Tag, blob []byte) (*Key, error) {
	pub, err := xssh.ParsePublicKey(blob)
	if err != nil {
		return nil, pkierr.Wrap(pkierr.KindParse, "parse certificate blob", err)
	}
	cert, ok := pub.(*xssh.Certificate)
	if !ok {
		return nil, pkierr.New(pkierr.KindParse, "algorithm names a certificate but blob is not one")
	}
	cryptoPub, err := cryptoPublicKey(cert.Key)
	if err != nil {
		return nil, err
	}

	var sigKeyBlob []byte
	if cert.SignatureKey != nil {
		sigKeyBlob = cert.SignatureKey.Marshal()
	}
	var sigBlob []byte
	if cert.Signature != nil {
		w := wire.NewWriter()
		w.WriteNameString(cert.Signature.Format)
		w.WriteString(cert.Signature.Blob)
		sigBlob = w.Bytes()
	}

	return &Key{
		Tag:          tag,
		classicalPub: cryptoPub,
		cert: &Certificate{
			Nonce:           cert.Nonce,
			Serial:          cert.Serial,
			Type:            cert.CertType,
			KeyID:           cert.KeyId,
			ValidPrincipals: cert.ValidPrincipals,
			ValidAfter:      cert.ValidAfter,
			ValidBefore:     cert.ValidBefore,
			CriticalOptions: cert.CriticalOptions,
			Extensions:      cert.Extensions,
			Reserved:        cert.Reserved,
			SignatureKey:    sigKeyBlob,
			Signature:       sigBlob,
		},
	}, nil
}

// cryptoPublicKey recovers the underlying crypto.PublicKey from an
// ssh.PublicKey produced by x/crypto/ssh's parser, so this module's Key can
// hold the same stdlib types it generates.
func cryptoPublicKey(pub xssh.PublicKey) (crypto.PublicKey, error) {
	type cryptoPK interface {
		CryptoPublicKey() crypto.PublicKey
	}
	if ck, ok := pub.(cryptoPK); ok {
		return ck.CryptoPublicKey(), nil
	}
	return nil, pkierr.New(pkierr.KindParse, "public key does not expose its crypto representation")
}

// PasteComment returns the authorized_keys-style "algorithm base64 comment"
// line for k's public half.
func PasteComment(k *Key, comment string) (string, error) {
	blob, err := MarshalPublic(k)
	if err != nil {
		return "", err
	}
	if comment == "" {
		comment = k.Comment
	}
	line := xssh.MarshalAuthorizedKey(&wrappedPublicKey{tag: k.Tag, blob: blob})
	s := string(line)
	s = trimNewline(s)
	if comment != "" {
		s += " " + comment
	}
	return s, nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// wrappedPublicKey adapts an already-marshaled blob to ssh.PublicKey so
// x/crypto/ssh's MarshalAuthorizedKey can base64-encode it uniformly for
// both classical and PQ/hybrid tags, whose blobs x/crypto/ssh cannot parse
// but can happily re-encode.
type wrappedPublicKey struct {
	tag  registry.Tag
	blob []byte
}

func (w *wrappedPublicKey) Type() string    { return registry.NameOf(w.tag) }
func (w *wrappedPublicKey) Marshal() []byte { return w.blob }
func (w *wrappedPublicKey) Verify(data []byte, sig *xssh.Signature) error {
	return pkierr.New(pkierr.KindCompat, "verify not implemented on wrapped public key view")
}
