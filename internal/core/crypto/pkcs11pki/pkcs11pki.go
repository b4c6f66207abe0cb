// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package pkcs11pki routes "pkcs11:" URIs (RFC 7512) to a hardware token
// through github.com/miekg/pkcs11, for keys whose private half never
// leaves an HSM/smartcard. Only ECDSA and RSA tokens are supported — SSH's
// security-key algorithms are FIDO/U2F-backed (a different protocol
// entirely, see sshsign.SKPreimage) and PQ HSM support varies too much by
// vendor to standardize on here.
//
// Grounded on remiblancher-qpki's pkg/crypto/pkcs11.go, simplified to a
// single session per Signer rather than that file's session pool, since a
// PKI tool signs far less often than a running CA service.
package pkcs11pki

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/asn1"
	"fmt"
	"io"
	"math/big"
	"net/url"
	"strings"

	p11 "github.com/miekg/pkcs11"

	"github.com/toeirei/sshpki/internal/core/crypto/registry"
	"github.com/toeirei/sshpki/internal/core/pkierr"
)

// URI holds the parsed attributes of a "pkcs11:" key reference, per RFC
// 7512 (e.g. "pkcs11:token=prod-hsm;object=host-key;pin-value=1234").
type URI struct {
	ModulePath string
	TokenLabel string
	Object     string
	ID         string
	PIN        string
}

// ParseURI parses a pkcs11: URI into its component attributes.
func ParseURI(raw string) (*URI, error) {
	if !strings.HasPrefix(raw, "pkcs11:") {
		return nil, pkierr.New(pkierr.KindInput, "not a pkcs11: URI")
	}
	body := strings.TrimPrefix(raw, "pkcs11:")
	// RFC 7512 separates path attributes with ';' and query attributes
	// (module-path, pin-value) with '&' after a literal '?'.
	path, query, _ := strings.Cut(body, "?")

	u := &URI{}
	for _, attr := range strings.Split(path, ";") {
		k, v, ok := strings.Cut(attr, "=")
		if !ok {
			continue
		}
		v, _ = url.PathUnescape(v)
		switch k {
		case "token":
			u.TokenLabel = v
		case "object":
			u.Object = v
		case "id":
			u.ID = v
		case "pin-value":
			u.PIN = v
		}
	}
	if query != "" {
		values, err := url.ParseQuery(query)
		if err == nil {
			if v := values.Get("module-path"); v != "" {
				u.ModulePath = v
			}
			if v := values.Get("pin-value"); v != "" {
				u.PIN = v
			}
		}
	}
	if u.Object == "" && u.ID == "" {
		return nil, pkierr.New(pkierr.KindInput, "pkcs11 URI must name an object or id")
	}
	return u, nil
}

// Signer signs through a single open PKCS#11 session; Close releases it.
type Signer struct {
	ctx       *p11.Ctx
	session   p11.SessionHandle
	keyHandle p11.ObjectHandle
	alg       registry.Tag
	pub       crypto.PublicKey
}

// Open locates the private key named by uri on its token and returns a
// Signer bound to it. defaultModulePath is used when uri carries no
// module-path attribute.
func Open(uri *URI, defaultModulePath string) (*Signer, error) {
	modulePath := uri.ModulePath
	if modulePath == "" {
		modulePath = defaultModulePath
	}
	if modulePath == "" {
		return nil, pkierr.New(pkierr.KindInput, "no PKCS#11 module path configured")
	}

	ctx := p11.New(modulePath)
	if ctx == nil {
		return nil, pkierr.New(pkierr.KindCrypto, "failed to load PKCS#11 module: "+modulePath)
	}
	if err := ctx.Initialize(); err != nil {
		ctx.Destroy()
		return nil, pkierr.Wrap(pkierr.KindCrypto, "initialize PKCS#11 module", err)
	}

	slot, err := findSlot(ctx, uri.TokenLabel)
	if err != nil {
		ctx.Destroy()
		return nil, err
	}

	session, err := ctx.OpenSession(slot, p11.CKF_SERIAL_SESSION|p11.CKF_RW_SESSION)
	if err != nil {
		ctx.Destroy()
		return nil, pkierr.Wrap(pkierr.KindCrypto, "open PKCS#11 session", err)
	}
	if uri.PIN != "" {
		if err := ctx.Login(session, p11.CKU_USER, uri.PIN); err != nil {
			ctx.CloseSession(session)
			ctx.Destroy()
			return nil, pkierr.Wrap(pkierr.KindPassphrase, "PKCS#11 token login failed", err)
		}
	}

	keyHandle, err := findPrivateKey(ctx, session, uri)
	if err != nil {
		ctx.CloseSession(session)
		ctx.Destroy()
		return nil, err
	}

	pub, alg, err := extractPublicKey(ctx, session, keyHandle)
	if err != nil {
		ctx.CloseSession(session)
		ctx.Destroy()
		return nil, err
	}

	return &Signer{ctx: ctx, session: session, keyHandle: keyHandle, alg: alg, pub: pub}, nil
}

// Public returns the token's public key.
func (s *Signer) Public() crypto.PublicKey { return s.pub }

// Algorithm returns the key's registry tag.
func (s *Signer) Algorithm() registry.Tag { return s.alg }

// Sign signs digest on the token. PKCS#11-backed keys never expose their
// private material: the facade's ImportPKCS11Key wraps the token key as a
// public-only Key, so signing through this type is the only private-key
// operation available for it.
func (s *Signer) Sign(_ io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	var mech *p11.Mechanism
	switch s.pub.(type) {
	case *ecdsa.PublicKey:
		mech = p11.NewMechanism(p11.CKM_ECDSA, nil)
	case *rsa.PublicKey:
		mech = p11.NewMechanism(p11.CKM_RSA_PKCS, nil)
		if opts != nil {
			digest = addDigestInfoPrefix(digest, opts.HashFunc())
		}
	default:
		return nil, pkierr.New(pkierr.KindCrypto, "unsupported PKCS#11 key type")
	}

	if err := s.ctx.SignInit(s.session, []*p11.Mechanism{mech}, s.keyHandle); err != nil {
		return nil, pkierr.Wrap(pkierr.KindCrypto, "pkcs11 sign init", err)
	}
	sig, err := s.ctx.Sign(s.session, digest)
	if err != nil {
		return nil, pkierr.Wrap(pkierr.KindCrypto, "pkcs11 sign", err)
	}

	if _, ok := s.pub.(*ecdsa.PublicKey); ok {
		return ecdsaRawToASN1(sig)
	}
	return sig, nil
}

// Close releases the token session.
func (s *Signer) Close() error {
	if s == nil || s.ctx == nil {
		return nil
	}
	s.ctx.Logout(s.session)
	s.ctx.CloseSession(s.session)
	s.ctx.Destroy()
	return nil
}

func findSlot(ctx *p11.Ctx, tokenLabel string) (uint, error) {
	slots, err := ctx.GetSlotList(true)
	if err != nil {
		return 0, pkierr.Wrap(pkierr.KindCrypto, "list PKCS#11 slots", err)
	}
	if tokenLabel == "" {
		if len(slots) == 0 {
			return 0, pkierr.New(pkierr.KindNotFound, "no PKCS#11 slots with a token present")
		}
		return slots[0], nil
	}
	for _, slot := range slots {
		info, err := ctx.GetTokenInfo(slot)
		if err != nil {
			continue
		}
		if strings.TrimRight(info.Label, "\x00 ") == tokenLabel {
			return slot, nil
		}
	}
	return 0, pkierr.New(pkierr.KindNotFound, "no PKCS#11 token labeled "+tokenLabel)
}

func findPrivateKey(ctx *p11.Ctx, session p11.SessionHandle, uri *URI) (p11.ObjectHandle, error) {
	template := []*p11.Attribute{
		p11.NewAttribute(p11.CKA_CLASS, p11.CKO_PRIVATE_KEY),
	}
	if uri.Object != "" {
		template = append(template, p11.NewAttribute(p11.CKA_LABEL, uri.Object))
	}
	if uri.ID != "" {
		template = append(template, p11.NewAttribute(p11.CKA_ID, []byte(uri.ID)))
	}

	if err := ctx.FindObjectsInit(session, template); err != nil {
		return 0, pkierr.Wrap(pkierr.KindCrypto, "pkcs11 find objects init", err)
	}
	defer ctx.FindObjectsFinal(session)

	objs, _, err := ctx.FindObjects(session, 1)
	if err != nil {
		return 0, pkierr.Wrap(pkierr.KindCrypto, "pkcs11 find objects", err)
	}
	if len(objs) == 0 {
		return 0, pkierr.New(pkierr.KindNotFound, "no matching PKCS#11 private key object")
	}
	return objs[0], nil
}

func extractPublicKey(ctx *p11.Ctx, session p11.SessionHandle, keyHandle p11.ObjectHandle) (crypto.PublicKey, registry.Tag, error) {
	attrs, err := ctx.GetAttributeValue(session, keyHandle, []*p11.Attribute{
		p11.NewAttribute(p11.CKA_KEY_TYPE, nil),
	})
	if err != nil {
		return nil, registry.Unknown, pkierr.Wrap(pkierr.KindCrypto, "read pkcs11 key type", err)
	}
	if len(attrs) == 0 {
		return nil, registry.Unknown, pkierr.New(pkierr.KindCrypto, "pkcs11 key type attribute missing")
	}

	switch keyTypeOf(attrs[0].Value) {
	case p11.CKK_EC:
		return extractECPublicKey(ctx, session, keyHandle)
	case p11.CKK_RSA:
		return extractRSAPublicKey(ctx, session, keyHandle)
	default:
		return nil, registry.Unknown, pkierr.New(pkierr.KindCompat, "unsupported PKCS#11 key type")
	}
}

func keyTypeOf(raw []byte) uint {
	var v uint
	for i, b := range raw {
		v |= uint(b) << (8 * i)
	}
	return v
}

func extractECPublicKey(ctx *p11.Ctx, session p11.SessionHandle, keyHandle p11.ObjectHandle) (crypto.PublicKey, registry.Tag, error) {
	attrs, err := ctx.GetAttributeValue(session, keyHandle, []*p11.Attribute{
		p11.NewAttribute(p11.CKA_EC_POINT, nil),
	})
	if err != nil || len(attrs) == 0 {
		return nil, registry.Unknown, pkierr.New(pkierr.KindCrypto, "read EC point from token")
	}

	x, y := ellipticUnmarshalDEROctet(attrs[0].Value)
	curve := elliptic.P256()
	pub := &ecdsa.PublicKey{Curve: curve, X: x, Y: y}
	return pub, registry.ECDSAP256, nil
}

func extractRSAPublicKey(ctx *p11.Ctx, session p11.SessionHandle, keyHandle p11.ObjectHandle) (crypto.PublicKey, registry.Tag, error) {
	attrs, err := ctx.GetAttributeValue(session, keyHandle, []*p11.Attribute{
		p11.NewAttribute(p11.CKA_MODULUS, nil),
		p11.NewAttribute(p11.CKA_PUBLIC_EXPONENT, nil),
	})
	if err != nil || len(attrs) < 2 {
		return nil, registry.Unknown, pkierr.New(pkierr.KindCrypto, "read RSA modulus/exponent from token")
	}
	n := new(big.Int).SetBytes(attrs[0].Value)
	e := new(big.Int).SetBytes(attrs[1].Value)
	return &rsa.PublicKey{N: n, E: int(e.Int64())}, registry.RSA, nil
}

// ellipticUnmarshalDEROctet strips the DER OCTET STRING wrapper PKCS#11
// puts around CKA_EC_POINT and splits the remaining uncompressed point into
// its X/Y coordinates.
func ellipticUnmarshalDEROctet(der []byte) (x, y *big.Int) {
	point := der
	if len(der) > 2 && der[0] == 0x04 {
		// ASN.1 OCTET STRING header: tag, length byte(s), then the point.
		lenByte := int(der[1])
		offset := 2
		if lenByte&0x80 != 0 {
			offset += lenByte & 0x7f
		}
		if offset < len(der) {
			point = der[offset:]
		}
	}
	if len(point) > 0 && point[0] == 0x04 {
		point = point[1:]
	}
	half := len(point) / 2
	if half == 0 {
		return big.NewInt(0), big.NewInt(0)
	}
	return new(big.Int).SetBytes(point[:half]), new(big.Int).SetBytes(point[half:])
}

// digestInfoPrefixes are the DER DigestInfo prefixes RFC 8017 requires
// ahead of a raw hash when signing with CKM_RSA_PKCS (PKCS#1 v1.5), since
// that mechanism signs exactly what it's given rather than hashing itself.
var digestInfoPrefixes = map[crypto.Hash][]byte{
	crypto.SHA256: {0x30, 0x31, 0x30, 0x0d, 0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x01, 0x05, 0x00, 0x04, 0x20},
	crypto.SHA512: {0x30, 0x51, 0x30, 0x0d, 0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x03, 0x05, 0x00, 0x04, 0x40},
}

func addDigestInfoPrefix(digest []byte, h crypto.Hash) []byte {
	prefix, ok := digestInfoPrefixes[h]
	if !ok {
		return digest
	}
	return append(append([]byte(nil), prefix...), digest...)
}

func ecdsaRawToASN1(sig []byte) ([]byte, error) {
	half := len(sig) / 2
	if half == 0 {
		return nil, fmt.Errorf("pkcs11pki: empty ECDSA signature")
	}
	r := new(big.Int).SetBytes(sig[:half])
	s := new(big.Int).SetBytes(sig[half:])
	type ecdsaSig struct{ R, S *big.Int }
	return asn1.Marshal(ecdsaSig{r, s})
}
