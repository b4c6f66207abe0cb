// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package opensshv1

import (
	"crypto/sha512"
	"encoding/binary"
	"errors"

	"golang.org/x/crypto/blowfish"
)

// bcryptPBKDF derives keyLen bytes from password and salt using the
// bcrypt_pbkdf construction OpenSSH's openssh-key-v1 container uses to turn
// a passphrase into a cipher key + IV. golang.org/x/crypto/ssh contains the
// identical algorithm but keeps it in an internal package, so keys
// encrypted with a passphrase (rather than unencrypted or PKCS#11-backed)
// need it reimplemented here atop the public blowfish primitive.
//
// Each of the ceil(keyLen/32) 32-byte output blocks is the XOR of `rounds`
// successive bcrypt-core-hash iterations; blocks are then interleaved
// byte-by-byte, matching OpenBSD's bcrypt_pbkdf.c.
func bcryptPBKDF(password, salt []byte, rounds, keyLen int) ([]byte, error) {
	const blockSize = 32

	if rounds < 1 {
		return nil, errors.New("bcryptpbkdf: rounds must be >= 1")
	}
	if len(password) == 0 {
		return nil, errors.New("bcryptpbkdf: empty password")
	}
	if len(salt) == 0 {
		return nil, errors.New("bcryptpbkdf: empty salt")
	}

	numBlocks := (keyLen + blockSize - 1) / blockSize
	key := make([]byte, numBlocks*blockSize)

	shaPass := sha512.Sum512(password)

	var out, tmp [blockSize]byte
	for block := 1; block <= numBlocks; block++ {
		h := sha512.New()
		h.Write(salt)
		var cnt [4]byte
		binary.BigEndian.PutUint32(cnt[:], uint32(block))
		h.Write(cnt[:])
		shaSalt := h.Sum(nil)

		bcryptCoreHash(shaPass[:], shaSalt, &tmp)
		out = tmp

		for i := 2; i <= rounds; i++ {
			h.Reset()
			h.Write(tmp[:])
			shaSalt = h.Sum(nil)

			bcryptCoreHash(shaPass[:], shaSalt, &tmp)
			for j := range out {
				out[j] ^= tmp[j]
			}
		}

		for i, v := range out {
			key[i*numBlocks+(block-1)] = v
		}
	}
	return key[:keyLen], nil
}

var bcryptMagic = []byte("OxychromaticBlowfishSwatDynamite")

// bcryptCoreHash is bcrypt's "expensive" hash step, repurposed by
// bcrypt_pbkdf to map a (password-hash, salt-hash) pair to a 32-byte block:
// a blowfish key schedule is re-expanded 64 times with salt and key
// alternately (EksBlowfishSetup), then used to ECB-encrypt a fixed 32-byte
// magic constant 64 times, with the result byte-swapped per 32-bit word.
func bcryptCoreHash(shaPass, shaSalt []byte, out *[32]byte) {
	c, err := blowfish.NewSaltedCipher(shaPass, shaSalt)
	if err != nil {
		// shaPass/shaSalt are fixed-size SHA-512 digests; NewSaltedCipher
		// only rejects empty or oversized keys/salts.
		panic(err)
	}
	for i := 0; i < 64; i++ {
		blowfish.ExpandKey(shaSalt, c)
		blowfish.ExpandKey(shaPass, c)
	}

	copy(out[:], bcryptMagic)
	for i := 0; i < 64; i++ {
		for j := 0; j < len(out); j += 8 {
			c.Encrypt(out[j:j+8], out[j:j+8])
		}
	}

	for i := 0; i < len(out)/4; i++ {
		out[i*4+0], out[i*4+3] = out[i*4+3], out[i*4+0]
		out[i*4+1], out[i*4+2] = out[i*4+2], out[i*4+1]
	}
}
