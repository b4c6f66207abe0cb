// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package pq adapts github.com/cloudflare/circl's post-quantum signature
// implementations to the registry.Tag taxonomy. It is the only package in
// this module that imports circl; the packages above it (key, sshsign, and
// the private-key containers) reach PQ material through the Generate, Sign,
// Verify and PublicFromSecret functions below. The Signer and Verifier types
// declared here are not used by those callers.
//
// Grounded on remiblancher-qpki's internal/crypto/{keygen,hybrid,software}.go,
// which wires the same circl packages for an X.509 PKI; this module wires
// them into SSH key/signature blobs instead.
package pq

import (
	"crypto"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/mldsa/mldsa44"
	"github.com/cloudflare/circl/sign/slhdsa"

	"github.com/toeirei/sshpki/internal/core/crypto/registry"
)

// Signer is the minimal PQ signing surface this module needs: sign a
// message (PQ algorithms hash internally; there is no precomputed-digest
// path) and report the corresponding registry tag.
type Signer interface {
	Algorithm() registry.Tag
	Public() []byte
	Sign(rand io.Reader, message []byte) ([]byte, error)
}

// Verifier verifies a PQ signature against a raw public key.
type Verifier func(pub []byte, message, sig []byte) (bool, error)

// ErrUnsupported is returned for tags the registry recognizes but that have
// no backing implementation available (Falcon512, Picnic): these require
// the external liboqs provider, which this module treats as out of scope.
var ErrUnsupported = fmt.Errorf("pq: algorithm requires an external OQS provider")

// Generate creates a new key pair for tag using rand as the randomness
// source, returning the raw public and secret key bytes.
func Generate(tag registry.Tag, rand io.Reader) (pub, sec []byte, err error) {
	switch tag {
	case registry.Dilithium2:
		p, s, err := mldsa44.GenerateKey(rand)
		if err != nil {
			return nil, nil, err
		}
		pb, err := p.MarshalBinary()
		if err != nil {
			return nil, nil, err
		}
		sb, err := s.MarshalBinary()
		if err != nil {
			return nil, nil, err
		}
		return pb, sb, nil
	case registry.SphincsSHA256128fRobust:
		p, s, err := slhdsa.GenerateKey(rand, slhdsa.SHA2_128f)
		if err != nil {
			return nil, nil, err
		}
		pb, err := p.MarshalBinary()
		if err != nil {
			return nil, nil, err
		}
		sb, err := s.MarshalBinary()
		if err != nil {
			return nil, nil, err
		}
		return pb, sb, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupported, registry.NameOf(tag))
	}
}

// Sign signs message with the secret-key bytes for tag.
func Sign(tag registry.Tag, rand io.Reader, sec, message []byte) ([]byte, error) {
	switch tag {
	case registry.Dilithium2:
		var sk mldsa44.PrivateKey
		if err := sk.UnmarshalBinary(sec); err != nil {
			return nil, fmt.Errorf("pq: unmarshal ml-dsa-44 secret key: %w", err)
		}
		return sk.Sign(rand, message, crypto.Hash(0))
	case registry.SphincsSHA256128fRobust:
		var sk slhdsa.PrivateKey
		sk.ID = slhdsa.SHA2_128f
		if err := sk.UnmarshalBinary(sec); err != nil {
			return nil, fmt.Errorf("pq: unmarshal slh-dsa secret key: %w", err)
		}
		// slhdsa.PrivateKey implements crypto.Signer; it hashes the full
		// message internally, so no precomputed digest or context is needed.
		return sk.Sign(rand, message, nil)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, registry.NameOf(tag))
	}
}

// Verify verifies sig over message against a raw public key for tag.
func Verify(tag registry.Tag, pub, message, sig []byte) (bool, error) {
	switch tag {
	case registry.Dilithium2:
		var pk mldsa44.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return false, fmt.Errorf("pq: unmarshal ml-dsa-44 public key: %w", err)
		}
		return mldsa44.Verify(&pk, message, nil, sig), nil
	case registry.SphincsSHA256128fRobust:
		var pk slhdsa.PublicKey
		pk.ID = slhdsa.SHA2_128f
		if err := pk.UnmarshalBinary(pub); err != nil {
			return false, fmt.Errorf("pq: unmarshal slh-dsa public key: %w", err)
		}
		msg := slhdsa.NewMessage(message)
		return slhdsa.Verify(&pk, msg, sig, nil), nil
	default:
		return false, fmt.Errorf("%w: %s", ErrUnsupported, registry.NameOf(tag))
	}
}

// PublicFromSecret derives the raw public key bytes from secret-key bytes,
// for containers (legacy PEM) that store only the secret key.
func PublicFromSecret(tag registry.Tag, sec []byte) ([]byte, error) {
	switch tag {
	case registry.Dilithium2:
		var sk mldsa44.PrivateKey
		if err := sk.UnmarshalBinary(sec); err != nil {
			return nil, fmt.Errorf("pq: unmarshal ml-dsa-44 secret key: %w", err)
		}
		pub := sk.Public().(*mldsa44.PublicKey)
		return pub.MarshalBinary()
	case registry.SphincsSHA256128fRobust:
		var sk slhdsa.PrivateKey
		sk.ID = slhdsa.SHA2_128f
		if err := sk.UnmarshalBinary(sec); err != nil {
			return nil, fmt.Errorf("pq: unmarshal slh-dsa secret key: %w", err)
		}
		pub := sk.PublicKey()
		return pub.MarshalBinary()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, registry.NameOf(tag))
	}
}

// IsSupported reports whether tag has a backing implementation in this
// build (as opposed to being merely recognized by the registry).
func IsSupported(tag registry.Tag) bool {
	switch tag {
	case registry.Dilithium2, registry.SphincsSHA256128fRobust:
		return true
	default:
		return false
	}
}
