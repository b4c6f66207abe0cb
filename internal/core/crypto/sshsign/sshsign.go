// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package sshsign implements the signature engine: producing and verifying
// the SSH signature blob (RFC 4253 §6.6 — a wire string naming the
// signature algorithm followed by a wire string holding the raw signature),
// for classical, security-key, post-quantum, and hybrid keys alike.
//
// Classical signing/verification is delegated to golang.org/x/crypto/ssh's
// Signer/PublicKey, which already implement the exact wire format this
// package needs; PQ and hybrid material has no x/crypto/ssh representation
// and is signed directly through the pq package.
package sshsign

import (
	"crypto/rand"
	"crypto/sha256"

	xssh "golang.org/x/crypto/ssh"

	"github.com/toeirei/sshpki/internal/core/crypto/key"
	"github.com/toeirei/sshpki/internal/core/crypto/pq"
	"github.com/toeirei/sshpki/internal/core/crypto/registry"
	"github.com/toeirei/sshpki/internal/core/crypto/wire"
	"github.com/toeirei/sshpki/internal/core/pkierr"
)

// Sign produces an SSH signature blob over data using k's private key and
// the preferred digest (RSA only; every other algorithm ignores it and
// signs with its one fixed hash). The returned bytes are the "algorithm
// name, raw signature" wire pair ready to embed in an SSH_MSG_USERAUTH or a
// certificate signature field.
func Sign(k *key.Key, data []byte, digest registry.Digest) ([]byte, error) {
	if k == nil || !k.IsPrivate() {
		return nil, pkierr.New(pkierr.KindCrypto, "key has no private material to sign with")
	}

	plain := registry.PlainOf(k.Tag)
	switch {
	case registry.IsSK(plain):
		return nil, pkierr.New(pkierr.KindCompat, "security-key signing requires an external FIDO/U2F authenticator; this library only verifies")
	case registry.IsHybrid(plain):
		return signHybrid(k, data)
	case registry.IsOQS(plain):
		return signPQ(k, plain, data)
	default:
		return signClassical(k, data, digest)
	}
}

// DoSign implements the client authentication signing entry point: session
// is bound into the signed data as a length-prefixed string ahead of
// userBuf, per string(session_id) ∥ bytes(user_buf).
func DoSign(sessionID, userBuf []byte, k *key.Key, digest registry.Digest) ([]byte, error) {
	if len(sessionID) == 0 {
		return nil, pkierr.New(pkierr.KindInput, "no session id available")
	}
	w := wire.NewWriter()
	w.WriteString(sessionID)
	w.WriteRaw(userBuf)
	return Sign(k, w.Bytes(), digest)
}

// DoSignServerHost implements the server host-signature variant: the
// exchange hash stands in for the session id but is packed as a bare
// byte-run, NOT a length-prefixed string. This asymmetry against DoSign is
// intentional and must be preserved exactly.
func DoSignServerHost(exchangeHash, userBuf []byte, k *key.Key, digest registry.Digest) ([]byte, error) {
	if len(exchangeHash) == 0 {
		return nil, pkierr.New(pkierr.KindInput, "empty exchange hash")
	}
	w := wire.NewWriter()
	w.WriteRaw(exchangeHash)
	w.WriteRaw(userBuf)
	return Sign(k, w.Bytes(), digest)
}

func signClassical(k *key.Key, data []byte, digest registry.Digest) ([]byte, error) {
	signer, err := k.Signer()
	if err != nil {
		return nil, err
	}
	sshSigner, err := xssh.NewSignerFromSigner(signer)
	if err != nil {
		return nil, pkierr.Wrap(pkierr.KindCrypto, "wrap signer", err)
	}

	var sig *xssh.Signature
	if algSigner, ok := sshSigner.(xssh.AlgorithmSigner); ok && registry.PlainOf(k.Tag) == registry.RSA {
		alg := registry.SignatureName(registry.RSA, digest)
		sig, err = algSigner.SignWithAlgorithm(rand.Reader, data, alg)
	} else {
		sig, err = sshSigner.Sign(rand.Reader, data)
	}
	if err != nil {
		return nil, pkierr.Wrap(pkierr.KindCrypto, "sign", err)
	}

	w := wire.NewWriter()
	w.WriteNameString(sig.Format)
	w.WriteString(sig.Blob)
	return w.Bytes(), nil
}

func signPQ(k *key.Key, tag registry.Tag, data []byte) ([]byte, error) {
	sig, err := pq.Sign(tag, rand.Reader, k.PQSecret(), data)
	if err != nil {
		return nil, pkierr.Wrap(pkierr.KindCrypto, "pq sign", err)
	}
	w := wire.NewWriter()
	w.WriteNameString(registry.NameOf(tag))
	w.WriteString(sig)
	return w.Bytes(), nil
}

// signHybrid produces the composed signature for a hybrid key: the
// classical half signs data with its own algorithm, the PQ half signs the
// same data independently, and both signature blobs are concatenated as
// wire strings under the hybrid algorithm's name. Verification requires
// both halves to succeed.
func signHybrid(k *key.Key, data []byte) ([]byte, error) {
	classicalTag, pqTag, ok := registry.HybridHalves(k.Tag)
	if !ok {
		return nil, pkierr.New(pkierr.KindInput, "not a hybrid key")
	}
	classicalKey := key.New(classicalTag, k.ClassicalPublic(), k.ClassicalPrivate(), k.Comment)
	classicalSig, err := signClassical(classicalKey, data, registry.SHA256)
	if err != nil {
		return nil, err
	}
	pqSig, err := pq.Sign(pqTag, rand.Reader, k.PQSecret(), data)
	if err != nil {
		return nil, pkierr.Wrap(pkierr.KindCrypto, "hybrid pq sign", err)
	}

	w := wire.NewWriter()
	w.WriteNameString(registry.NameOf(k.Tag))
	w.WriteString(classicalSig)
	w.WriteString(pqSig)
	return w.Bytes(), nil
}

// Verify checks an SSH signature blob (as produced by Sign) against data
// using pub's public key.
func Verify(pub *key.Key, data, sigBlob []byte) (bool, error) {
	if pub == nil {
		return false, pkierr.New(pkierr.KindInput, "nil public key")
	}
	plain := registry.PlainOf(pub.Tag)

	switch {
	case registry.IsSK(plain):
		return verifySK(pub, plain, data, sigBlob)
	case registry.IsHybrid(plain):
		return verifyHybrid(pub, data, sigBlob)
	case registry.IsOQS(plain):
		return verifyPQ(pub, plain, data, sigBlob)
	default:
		return verifyClassical(pub, data, sigBlob)
	}
}

// verifySK decodes an SK signature blob — sk-* format name, the raw
// classical signature, a flags byte, and a u32 counter — and checks it
// against the pre-image the authenticator actually signs:
// SHA256(application) ∥ flags ∥ counter ∥ SHA256(data). §4.6 step 3 requires
// this pre-image be synthesized automatically rather than handed to Verify
// pre-built.
func verifySK(pub *key.Key, tag registry.Tag, data, sigBlob []byte) (bool, error) {
	classicalTag, ok := registry.SKClassicalTag(tag)
	if !ok {
		return false, pkierr.New(pkierr.KindInput, "not a security-key algorithm: "+registry.NameOf(tag))
	}

	r := wire.NewReader(sigBlob)
	if _, err := r.ReadNameString(); err != nil {
		return false, pkierr.Wrap(pkierr.KindParse, "read sk signature format", err)
	}
	rawSig, err := r.ReadString()
	if err != nil {
		return false, pkierr.Wrap(pkierr.KindParse, "read sk signature", err)
	}
	flags, err := r.ReadByte()
	if err != nil {
		return false, pkierr.Wrap(pkierr.KindParse, "read sk flags", err)
	}
	counter, err := r.ReadUint32()
	if err != nil {
		return false, pkierr.Wrap(pkierr.KindParse, "read sk counter", err)
	}

	preimage := SKPreimage(pub.Application(), flags, counter, data)

	classicalKey := key.New(classicalTag, pub.ClassicalPublic(), nil, pub.Comment)
	w := wire.NewWriter()
	w.WriteNameString(registry.NameOf(classicalTag))
	w.WriteString(rawSig)
	return verifyClassical(classicalKey, preimage, w.Bytes())
}

func verifyClassical(pub *key.Key, data, sigBlob []byte) (bool, error) {
	format, raw, err := decodeSigBlob(sigBlob)
	if err != nil {
		return false, err
	}
	sshPub, err := xssh.NewPublicKey(pub.ClassicalPublic())
	if err != nil {
		return false, pkierr.Wrap(pkierr.KindCrypto, "wrap public key", err)
	}
	sig := &xssh.Signature{Format: format, Blob: raw}
	// x/crypto/ssh picks the RSA verification hash from sig.Format, so an
	// RSA signature verifies only under the format it was produced with.
	// The RSA half of a hybrid signature is labeled "rsa-sha2-256" (see
	// signHybrid); no "ssh-rsa" label is produced or special-cased for it.
	if err := sshPub.Verify(data, sig); err != nil {
		return false, nil
	}
	return true, nil
}

func verifyPQ(pub *key.Key, tag registry.Tag, data, sigBlob []byte) (bool, error) {
	_, raw, err := decodeSigBlob(sigBlob)
	if err != nil {
		return false, err
	}
	return pq.Verify(tag, pub.PQPublic(), data, raw)
}

func verifyHybrid(pub *key.Key, data, sigBlob []byte) (bool, error) {
	classicalTag, pqTag, ok := registry.HybridHalves(pub.Tag)
	if !ok {
		return false, pkierr.New(pkierr.KindInput, "not a hybrid key")
	}
	r := wire.NewReader(sigBlob)
	if _, err := r.ReadNameString(); err != nil {
		return false, pkierr.Wrap(pkierr.KindParse, "read hybrid signature name", err)
	}
	classicalSig, err := r.ReadString()
	if err != nil {
		return false, pkierr.Wrap(pkierr.KindParse, "read hybrid classical signature", err)
	}
	pqSig, err := r.ReadString()
	if err != nil {
		return false, pkierr.Wrap(pkierr.KindParse, "read hybrid pq signature", err)
	}

	classicalKey := key.New(classicalTag, pub.ClassicalPublic(), nil, pub.Comment)
	classicalOK, err := verifyClassical(classicalKey, data, classicalSig)
	if err != nil {
		return false, err
	}
	pqOK, err := pq.Verify(pqTag, pub.PQPublic(), data, pqSig)
	if err != nil {
		return false, err
	}
	return classicalOK && pqOK, nil
}

// decodeSigBlob reads the "algorithm name, raw signature" wire pair and
// rejects a format name the registry does not recognize at all, rather than
// silently forwarding an unknown algorithm name into the verifier (spec §9:
// an unrecognized signature-algorithm name should fail, not default).
func decodeSigBlob(sigBlob []byte) (format string, raw []byte, err error) {
	r := wire.NewReader(sigBlob)
	format, err = r.ReadNameString()
	if err != nil {
		return "", nil, pkierr.Wrap(pkierr.KindParse, "read signature format", err)
	}
	if _, err := registry.HashOfStrict(format); err != nil {
		return "", nil, err
	}
	raw, err = r.ReadString()
	if err != nil {
		return "", nil, pkierr.Wrap(pkierr.KindParse, "read signature blob", err)
	}
	return format, raw, nil
}

// SKPreimage constructs the data a security-key signature is actually over
// SHA256(application) ∥ flags ∥ counter ∥ SHA256(input). This
// module does not talk to FIDO/U2F hardware directly (AgentSigner is out of
// scope); this helper exists so a caller holding an externally-obtained
// (flags, counter, signature) tuple can verify it against a known input.
func SKPreimage(application string, flags byte, counter uint32, input []byte) []byte {
	appHash := sha256.Sum256([]byte(application))
	inputHash := sha256.Sum256(input)

	w := wire.NewWriter()
	w.WriteRaw(appHash[:])
	w.WriteByte(flags)
	w.WriteUint32(counter)
	w.WriteRaw(inputHash[:])
	return w.Bytes()
}
