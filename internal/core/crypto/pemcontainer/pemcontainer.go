// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package pemcontainer reads and writes the legacy PEM private-key formats
// predating openssh-key-v1: PKCS#1/SEC1/PKCS#8 for RSA/ECDSA, and — since
// neither has a PKCS#1-equivalent — custom PEM block types for post-quantum
// keys, mirroring remiblancher-qpki's internal/crypto/software.go
// (PKCS#8 for classical, "<ALG> PRIVATE KEY" for PQ). ssh-dss keys are
// modeled for import only, since ssh-dss is deprecated and never generated.
package pemcontainer

import (
	"crypto/dsa" //nolint:staticcheck // import-only legacy ssh-dss support, per package doc
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"math/big"

	"github.com/toeirei/sshpki/internal/core/crypto/key"
	"github.com/toeirei/sshpki/internal/core/crypto/pq"
	"github.com/toeirei/sshpki/internal/core/crypto/registry"
	"github.com/toeirei/sshpki/internal/core/pkierr"
)

// pqPEMType maps a registry tag to the PEM block type this package writes
// for post-quantum private keys, since there is no standard OID/ASN.1 form
// for them to borrow PKCS#8's "PRIVATE KEY" type.
func pqPEMType(tag registry.Tag) (string, bool) {
	switch tag {
	case registry.Dilithium2:
		return "ML-DSA-44 PRIVATE KEY", true
	case registry.SphincsSHA256128fRobust:
		return "SLH-DSA-SHA2-128f PRIVATE KEY", true
	default:
		return "", false
	}
}

func pqTagFromPEMType(t string) (registry.Tag, bool) {
	switch t {
	case "ML-DSA-44 PRIVATE KEY":
		return registry.Dilithium2, true
	case "SLH-DSA-SHA2-128f PRIVATE KEY":
		return registry.SphincsSHA256128fRobust, true
	default:
		return registry.Unknown, false
	}
}

// Encode writes k's private key as a PEM block. Classical keys use PKCS#8
// ("PRIVATE KEY"); pure-PQ keys use their own block type. Hybrid keys have
// no legacy PEM representation (there was never a PEM predating them) and
// are rejected — use the opensshv1 container instead.
func Encode(k *key.Key, passphrase []byte) (*pem.Block, error) {
	if k == nil || !k.IsPrivate() {
		return nil, pkierr.New(pkierr.KindInput, "key has no private material to encode")
	}
	plain := registry.PlainOf(k.Tag)

	if registry.IsHybrid(plain) {
		return nil, pkierr.New(pkierr.KindCompat, "hybrid keys have no legacy PEM representation; use the openssh-key-v1 container")
	}

	var block *pem.Block
	if registry.IsOQS(plain) {
		pemType, ok := pqPEMType(plain)
		if !ok {
			return nil, pkierr.New(pkierr.KindCompat, "algorithm requires an external OQS provider: "+registry.NameOf(plain))
		}
		block = &pem.Block{Type: pemType, Bytes: append([]byte(nil), k.PQSecret()...)}
	} else {
		if plain == registry.DSS {
			return nil, pkierr.New(pkierr.KindCompat, "ssh-dss key generation/export is disabled; import-only")
		}
		der, err := x509.MarshalPKCS8PrivateKey(k.ClassicalPrivate())
		if err != nil {
			return nil, pkierr.Wrap(pkierr.KindCrypto, "marshal pkcs8 private key", err)
		}
		block = &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	}

	if len(passphrase) > 0 {
		encrypted, err := x509.EncryptPEMBlock(rand.Reader, block.Type, block.Bytes, passphrase, x509.PEMCipherAES256) //nolint:staticcheck // legacy PEM encryption kept for compatibility with existing keys
		if err != nil {
			return nil, pkierr.Wrap(pkierr.KindCrypto, "encrypt pem block", err)
		}
		return encrypted, nil
	}
	return block, nil
}

// Decode parses a legacy PEM private-key block back into a Key.
func Decode(block *pem.Block, passphrase []byte) (*key.Key, error) {
	if block == nil {
		return nil, pkierr.New(pkierr.KindParse, "nil pem block")
	}

	body := block.Bytes
	if x509.IsEncryptedPEMBlock(block) { //nolint:staticcheck // paired with EncryptPEMBlock above
		if len(passphrase) == 0 {
			return nil, pkierr.New(pkierr.KindPassphrase, "pem block is encrypted, passphrase required")
		}
		decrypted, err := x509.DecryptPEMBlock(block, passphrase) //nolint:staticcheck
		if err != nil {
			return nil, pkierr.Wrap(pkierr.KindPassphrase, "decrypt pem block (wrong passphrase?)", err)
		}
		body = decrypted
	}

	if tag, ok := pqTagFromPEMType(block.Type); ok {
		pub, err := pq.PublicFromSecret(tag, body)
		if err != nil {
			return nil, pkierr.Wrap(pkierr.KindCrypto, "derive pq public key", err)
		}
		return key.NewPQ(tag, pub, body, ""), nil
	}

	priv, err := parseClassicalPrivateKey(block.Type, body)
	if err != nil {
		return nil, err
	}
	return classicalFromAny(priv)
}

// parseClassicalPrivateKey header-sniffs block.Type to pick the right DER
// shape: PKCS#1 for "RSA PRIVATE KEY", SEC1 for "EC PRIVATE KEY", the legacy
// OpenSSL DSA ASN.1 structure for "DSA PRIVATE KEY" (no stdlib parser ships
// one), and PKCS#8 for everything else (this package's own "PRIVATE KEY"
// output, and anything already in PKCS#8 form). PKCS#1/SEC1/DSA DER is not
// PKCS#8 DER — parsing any of them with ParsePKCS8PrivateKey fails outright,
// which is why the block type must gate the parser rather than being
// ignored.
func parseClassicalPrivateKey(pemType string, body []byte) (interface{}, error) {
	switch pemType {
	case "RSA PRIVATE KEY":
		priv, err := x509.ParsePKCS1PrivateKey(body)
		if err != nil {
			return nil, pkierr.Wrap(pkierr.KindParse, "parse pkcs1 rsa private key", err)
		}
		return priv, nil
	case "EC PRIVATE KEY":
		priv, err := x509.ParseECPrivateKey(body)
		if err != nil {
			return nil, pkierr.Wrap(pkierr.KindParse, "parse sec1 ec private key", err)
		}
		return priv, nil
	case "DSA PRIVATE KEY":
		return parseDSAPrivateKey(body)
	default:
		priv, err := x509.ParsePKCS8PrivateKey(body)
		if err != nil {
			return nil, pkierr.Wrap(pkierr.KindParse, "parse pkcs8 private key", err)
		}
		return priv, nil
	}
}

// dsaPrivateKeyASN1 mirrors OpenSSL's legacy "DSAPrivateKey" SEQUENCE
// (version, p, q, g, pub_key, priv_key) used by "BEGIN DSA PRIVATE KEY".
// Go's x509 package has never had a parser for it since DSA predates PKCS#8
// adoption in the OpenSSL ecosystem.
type dsaPrivateKeyASN1 struct {
	Version       int
	P, Q, G, Y, X *big.Int
}

func parseDSAPrivateKey(der []byte) (*dsa.PrivateKey, error) {
	var k dsaPrivateKeyASN1
	if _, err := asn1.Unmarshal(der, &k); err != nil {
		return nil, pkierr.Wrap(pkierr.KindParse, "parse legacy dsa private key", err)
	}
	return &dsa.PrivateKey{
		PublicKey: dsa.PublicKey{
			Parameters: dsa.Parameters{P: k.P, Q: k.Q, G: k.G},
			Y:          k.Y,
		},
		X: k.X,
	}, nil
}

func classicalFromAny(priv interface{}) (*key.Key, error) {
	switch p := priv.(type) {
	case *rsa.PrivateKey:
		return key.New(registry.RSA, &p.PublicKey, p, ""), nil
	case *ecdsa.PrivateKey:
		tag, err := ecdsaTag(p.Curve)
		if err != nil {
			return nil, err
		}
		return key.New(tag, &p.PublicKey, p, ""), nil
	case ed25519.PrivateKey:
		return key.New(registry.Ed25519, p.Public(), p, ""), nil
	case *dsa.PrivateKey:
		return key.New(registry.DSS, &p.PublicKey, p, ""), nil
	default:
		return nil, pkierr.New(pkierr.KindParse, fmt.Sprintf("unsupported private key type %T", priv))
	}
}

func ecdsaTag(curve elliptic.Curve) (registry.Tag, error) {
	switch curve {
	case elliptic.P256():
		return registry.ECDSAP256, nil
	case elliptic.P384():
		return registry.ECDSAP384, nil
	case elliptic.P521():
		return registry.ECDSAP521, nil
	default:
		return registry.Unknown, pkierr.New(pkierr.KindCompat, "unsupported ecdsa curve")
	}
}
