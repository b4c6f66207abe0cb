// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package registry is the single source of truth for the SSH PKI algorithm
// taxonomy: the closed enumeration of key/signature algorithm tags, their
// canonical wire identifiers and legacy aliases, default digests, and the
// cert/PQ/hybrid classification predicates. Every other package in this
// module consults this table instead of running its own switch statement,
// so a newly added tag cannot be handled in one place and silently dropped
// in another.
package registry

import (
	"strings"

	"github.com/toeirei/sshpki/internal/core/pkierr"
)

// Tag is the closed enumeration over supported SSH key/signature algorithms.
type Tag int

const (
	Unknown Tag = iota

	DSS
	RSA
	RSA1 // legacy; recognized only to be rejected on import
	ECDSAGeneric // deprecated generic "ecdsa" alias, kept for legacy identifiers
	ECDSAP256
	ECDSAP384
	ECDSAP521
	Ed25519

	DSSCert
	RSACert
	ECDSAP256Cert
	ECDSAP384Cert
	ECDSAP521Cert
	Ed25519Cert

	SKECDSAP256
	SKECDSAP256Cert
	SKEd25519
	SKEd25519Cert

	// Pure post-quantum signature tags.
	Dilithium2
	Falcon512
	Picnic
	SphincsSHA256128fRobust

	// Hybrid classical+PQ tags, one per (classical, PQ) pair this module wires.
	HybridRSA3072Dilithium2
	HybridP256Dilithium2
	HybridP384Dilithium2
	HybridP521Dilithium2
	HybridRSA3072Falcon512
	HybridP256Falcon512
)

// Digest is the hash algorithm implied by a signature-algorithm identifier.
type Digest int

const (
	// Auto means the algorithm embeds its own hashing (Ed25519, pure PQ) or
	// the identifier is unrecognized (promoted to a hard error by callers).
	Auto Digest = iota
	SHA1
	SHA256
	SHA384
	SHA512
)

func (d Digest) String() string {
	switch d {
	case SHA1:
		return "sha1"
	case SHA256:
		return "sha256"
	case SHA384:
		return "sha384"
	case SHA512:
		return "sha512"
	default:
		return "auto"
	}
}

// OQSDescriptor describes the byte lengths of a post-quantum algorithm's key
// and signature material. key.ParsePublic rejects a PQ public key (pure, or
// the PQ half of a hybrid) whose length differs from PKLen; SKLen and SigLen
// are not checked by any decoder.
type OQSDescriptor struct {
	// OQSName is the external-provider algorithm name (e.g. "Dilithium2").
	OQSName string
	PKLen   int
	SKLen   int
	// SigLen is 0 for variable-length signatures (Picnic, SPHINCS+ variants
	// used here are fixed-length, but the field stays generic).
	SigLen int
}

type entry struct {
	name       string
	aliases    []string
	digest     Digest
	isCert     bool
	plain      Tag  // for certs: the non-cert projection; else self
	certOf     Tag  // for non-certs: the cert variant, or Unknown if none
	isHybrid   bool
	isOQS      bool
	classical  Tag // for hybrids: the classical half
	pq         Tag // for hybrids: the PQ half
	oqs        *OQSDescriptor
	isSK       bool
}

var table = map[Tag]entry{
	Unknown: {name: ""},

	DSS:       {name: "ssh-dss", digest: SHA1, plain: DSS, certOf: DSSCert},
	RSA:       {name: "ssh-rsa", digest: SHA1, plain: RSA, certOf: RSACert},
	RSA1:      {name: "ssh-rsa1", digest: SHA1, plain: RSA1},
	ECDSAGeneric: {name: "ssh-ecdsa", digest: Auto, plain: ECDSAGeneric, aliases: []string{"ecdsa"}},
	ECDSAP256: {name: "ecdsa-sha2-nistp256", digest: SHA256, plain: ECDSAP256, certOf: ECDSAP256Cert},
	ECDSAP384: {name: "ecdsa-sha2-nistp384", digest: SHA384, plain: ECDSAP384, certOf: ECDSAP384Cert},
	ECDSAP521: {name: "ecdsa-sha2-nistp521", digest: SHA512, plain: ECDSAP521, certOf: ECDSAP521Cert},
	Ed25519:   {name: "ssh-ed25519", digest: Auto, plain: Ed25519, certOf: Ed25519Cert},

	DSSCert:       {name: "ssh-dss-cert-v01@openssh.com", digest: SHA1, isCert: true, plain: DSS},
	RSACert:       {name: "ssh-rsa-cert-v01@openssh.com", digest: SHA1, isCert: true, plain: RSA},
	ECDSAP256Cert: {name: "ecdsa-sha2-nistp256-cert-v01@openssh.com", digest: SHA256, isCert: true, plain: ECDSAP256},
	ECDSAP384Cert: {name: "ecdsa-sha2-nistp384-cert-v01@openssh.com", digest: SHA384, isCert: true, plain: ECDSAP384},
	ECDSAP521Cert: {name: "ecdsa-sha2-nistp521-cert-v01@openssh.com", digest: SHA512, isCert: true, plain: ECDSAP521},
	Ed25519Cert:   {name: "ssh-ed25519-cert-v01@openssh.com", digest: Auto, isCert: true, plain: Ed25519},

	SKECDSAP256:     {name: "sk-ecdsa-sha2-nistp256@openssh.com", digest: SHA256, plain: SKECDSAP256, certOf: SKECDSAP256Cert, isSK: true},
	SKECDSAP256Cert: {name: "sk-ecdsa-sha2-nistp256-cert-v01@openssh.com", digest: SHA256, isCert: true, plain: SKECDSAP256, isSK: true},
	SKEd25519:       {name: "sk-ssh-ed25519@openssh.com", digest: Auto, plain: SKEd25519, certOf: SKEd25519Cert, isSK: true},
	SKEd25519Cert:   {name: "sk-ssh-ed25519-cert-v01@openssh.com", digest: Auto, isCert: true, plain: SKEd25519, isSK: true},

	// Dilithium2's wire name is kept for compatibility with the OQS-SSH
	// naming convention; the material itself is realized via circl's
	// mldsa44 package (ML-DSA-44, FIPS 204's standardized form of the same
	// parameter set) since no ecosystem package implements the older,
	// non-standardized round-3 Dilithium2 API. See internal/core/crypto/pq.
	Dilithium2:              {name: "ssh-dilithium2@openssh.com", digest: Auto, isOQS: true, plain: Dilithium2, oqs: &OQSDescriptor{OQSName: "ML-DSA-44", PKLen: 1312, SKLen: 2560, SigLen: 2420}},
	Falcon512:                {name: "ssh-falcon512@openssh.com", digest: Auto, isOQS: true, plain: Falcon512, oqs: &OQSDescriptor{OQSName: "Falcon-512", PKLen: 897, SKLen: 1281, SigLen: 690}},
	Picnic:                   {name: "ssh-picnicl1full@openssh.com", digest: Auto, isOQS: true, plain: Picnic, oqs: &OQSDescriptor{OQSName: "Picnic-L1full", PKLen: 32, SKLen: 49, SigLen: 0}},
	SphincsSHA256128fRobust:  {name: "ssh-sphincssha256128frobust@openssh.com", digest: Auto, isOQS: true, plain: SphincsSHA256128fRobust, oqs: &OQSDescriptor{OQSName: "SPHINCS+-SHA256-128f-robust", PKLen: 32, SKLen: 64, SigLen: 17088}},

	HybridRSA3072Dilithium2: {name: "ssh-rsa3072-dilithium2@openssh.com", digest: SHA256, isHybrid: true, plain: HybridRSA3072Dilithium2, classical: RSA, pq: Dilithium2},
	HybridP256Dilithium2:    {name: "ssh-ecdsa-nistp256-dilithium2@openssh.com", digest: SHA256, isHybrid: true, plain: HybridP256Dilithium2, classical: ECDSAP256, pq: Dilithium2},
	HybridP384Dilithium2:    {name: "ssh-ecdsa-nistp384-dilithium2@openssh.com", digest: SHA384, isHybrid: true, plain: HybridP384Dilithium2, classical: ECDSAP384, pq: Dilithium2},
	HybridP521Dilithium2:    {name: "ssh-ecdsa-nistp521-dilithium2@openssh.com", digest: SHA512, isHybrid: true, plain: HybridP521Dilithium2, classical: ECDSAP521, pq: Dilithium2},
	HybridRSA3072Falcon512:  {name: "ssh-rsa3072-falcon512@openssh.com", digest: SHA256, isHybrid: true, plain: HybridRSA3072Falcon512, classical: RSA, pq: Falcon512},
	HybridP256Falcon512:     {name: "ssh-ecdsa-nistp256-falcon512@openssh.com", digest: SHA256, isHybrid: true, plain: HybridP256Falcon512, classical: ECDSAP256, pq: Falcon512},
}

var byName map[string]Tag

func init() {
	byName = make(map[string]Tag, len(table)*2)
	for tag, e := range table {
		if e.name != "" {
			byName[e.name] = tag
		}
		for _, a := range e.aliases {
			byName[a] = tag
		}
	}
	// Legacy aliases spelled out explicitly for callers still using them.
	byName["rsa"] = RSA
	byName["dsa"] = DSS
	byName["ssh-ecdsa"] = ECDSAGeneric
	byName["ecdsa"] = ECDSAGeneric
}

// NameOf returns the canonical SSH wire identifier for tag, or "" if tag is
// not a recognized, nameable algorithm (Unknown, or a tag with no wire name).
func NameOf(tag Tag) string {
	e, ok := table[tag]
	if !ok {
		return ""
	}
	return e.name
}

// TagOf resolves a wire identifier (or a legacy alias) to a Tag. Unknown
// identifiers map to Unknown.
func TagOf(name string) Tag {
	if t, ok := byName[name]; ok {
		return t
	}
	return Unknown
}

// SignatureTagOf is like TagOf but additionally folds the RFC 8332 RSA/SHA2
// signature-algorithm identifiers onto the RSA key tag, since those strings
// never appear in a public-key blob, only in a signature blob.
func SignatureTagOf(name string) Tag {
	switch name {
	case "rsa-sha2-256", "rsa-sha2-512":
		return RSA
	default:
		return TagOf(name)
	}
}

// HashOf returns the digest implied by a signature-algorithm wire
// identifier. Unrecognized identifiers are the caller's responsibility to
// reject — this function still returns Auto for them so callers that want
// the historical, permissive behavior can opt back in explicitly.
func HashOf(name string) Digest {
	switch name {
	case "rsa-sha2-256":
		return SHA256
	case "rsa-sha2-512":
		return SHA512
	}
	if t, ok := byName[name]; ok {
		return table[t].digest
	}
	return Auto
}

// HashOfStrict is HashOf, except an unrecognized signature-algorithm name is
// a hard error (pkierr.KindCompat) rather than a silent Auto default. Callers
// that decode a signature-algorithm name out of untrusted wire data (a
// signature blob's format field) use this instead of HashOf.
func HashOfStrict(name string) (Digest, error) {
	switch name {
	case "rsa-sha2-256":
		return SHA256, nil
	case "rsa-sha2-512":
		return SHA512, nil
	}
	if t, ok := byName[name]; ok {
		return table[t].digest, nil
	}
	return Auto, pkierr.New(pkierr.KindCompat, "unrecognized signature algorithm: "+name)
}

// PlainOf strips a v01 certificate suffix, returning the underlying
// key-material tag; SK tags stay SK tags (see SKClassicalTag). It is idempotent: PlainOf(PlainOf(t)) == PlainOf(t).
func PlainOf(tag Tag) Tag {
	e, ok := table[tag]
	if !ok {
		return tag
	}
	return e.plain
}

// SignatureName returns the on-the-wire signature-algorithm identifier for a
// (key tag, digest) pair — the inverse of HashOf/TagOf for signing purposes.
// For RSA this distinguishes ssh-rsa / rsa-sha2-256 / rsa-sha2-512 (and their
// certificate counterparts); every other tag uses its own key-type
// identifier regardless of digest, since only RSA has negotiable signature
// algorithms in SSH.
func SignatureName(tag Tag, digest Digest) string {
	switch tag {
	case RSA:
		switch digest {
		case SHA256:
			return "rsa-sha2-256"
		case SHA512:
			return "rsa-sha2-512"
		default:
			return "ssh-rsa"
		}
	case RSACert:
		switch digest {
		case SHA256:
			return "rsa-sha2-256-cert-v01@openssh.com"
		case SHA512:
			return "rsa-sha2-512-cert-v01@openssh.com"
		default:
			return "ssh-rsa-cert-v01@openssh.com"
		}
	default:
		return NameOf(tag)
	}
}

// IsCert reports whether tag is a v01 certificate variant.
func IsCert(tag Tag) bool {
	e, ok := table[tag]
	return ok && e.isCert
}

// IsOQS reports whether tag is a pure post-quantum algorithm.
func IsOQS(tag Tag) bool {
	e, ok := table[tag]
	return ok && e.isOQS
}

// IsHybrid reports whether tag combines a classical and a PQ algorithm.
func IsHybrid(tag Tag) bool {
	e, ok := table[tag]
	return ok && e.isHybrid
}

// IsSK reports whether tag is a security-key (FIDO/U2F-backed) algorithm.
func IsSK(tag Tag) bool {
	e, ok := table[tag]
	return ok && e.isSK
}

// SKClassicalTag returns the classical signature algorithm a security-key
// tag's authenticator actually performs (the curve/EdDSA scheme FIDO2/U2F
// hardware signs with), and whether tag is a security-key tag at all. This
// module only wires the two SK algorithms OpenSSH itself supports.
func SKClassicalTag(tag Tag) (Tag, bool) {
	switch tag {
	case SKECDSAP256:
		return ECDSAP256, true
	case SKEd25519:
		return Ed25519, true
	default:
		return Unknown, false
	}
}

// IsRSAHybrid reports whether tag is a hybrid whose classical half is RSA.
func IsRSAHybrid(tag Tag) bool {
	e, ok := table[tag]
	return ok && e.isHybrid && e.classical == RSA
}

// IsECDSAHybrid reports whether tag is a hybrid whose classical half is ECDSA.
func IsECDSAHybrid(tag Tag) bool {
	e, ok := table[tag]
	if !ok || !e.isHybrid {
		return false
	}
	switch e.classical {
	case ECDSAP256, ECDSAP384, ECDSAP521:
		return true
	default:
		return false
	}
}

// HybridHalves returns the classical and PQ tags composing a hybrid tag.
func HybridHalves(tag Tag) (classical, pq Tag, ok bool) {
	e, exist := table[tag]
	if !exist || !e.isHybrid {
		return Unknown, Unknown, false
	}
	return e.classical, e.pq, true
}

// OQSDescriptorOf returns the OQS byte-length descriptor for a pure-PQ or
// hybrid-PQ-half tag, or nil if tag carries no PQ material.
func OQSDescriptorOf(tag Tag) *OQSDescriptor {
	e, ok := table[tag]
	if !ok {
		return nil
	}
	return e.oqs
}

// CertOf returns the v01 certificate tag for a plain classical/SK tag, or
// Unknown if that tag has no certificate variant (e.g. a PQ tag).
func CertOf(tag Tag) Tag {
	e, ok := table[tag]
	if !ok {
		return Unknown
	}
	return e.certOf
}

// IsKnown reports whether tag is present in the registry at all.
func IsKnown(tag Tag) bool {
	_, ok := table[tag]
	return ok && tag != Unknown
}

// HasAuthorizedKeysPrefix reports whether field, with surrounding space
// trimmed, is exactly an algorithm identifier or alias recognized by this
// registry — used on each whitespace-separated field to distinguish an
// authorized_keys line's leading options from its key-type field.
func HasAuthorizedKeysPrefix(field string) bool {
	field = strings.TrimSpace(field)
	_, ok := byName[field]
	return ok
}
