// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package sshkey splits authorized_keys-style lines into their algorithm,
// base64 key-data, and comment fields, ahead of the actual blob decode that
// happens in internal/core/crypto/key.
package sshkey

import (
	"fmt"
	"strings"

	"github.com/toeirei/sshpki/internal/core/crypto/registry"
)

// Parse splits a raw public key line (as found in an authorized_keys file)
// into its algorithm, base64 key-data, and comment fields. Leading options
// (from="...",command="...") are skipped by scanning for the first field the
// algorithm registry recognizes.
func Parse(rawKey string) (algorithm, keyData, comment string, err error) {
	fields := strings.Fields(rawKey)
	if len(fields) == 0 {
		err = fmt.Errorf("empty line")
		return
	}

	keyStartIndex := -1
	for i, field := range fields {
		if registry.HasAuthorizedKeysPrefix(field) {
			keyStartIndex = i
			break
		}
	}

	if keyStartIndex == -1 {
		err = fmt.Errorf("no recognized key algorithm found in line")
		return
	}

	if len(fields) < keyStartIndex+2 {
		err = fmt.Errorf("invalid public key format: missing key data after algorithm")
		return
	}

	algorithm = fields[keyStartIndex]
	keyData = fields[keyStartIndex+1]
	if len(fields) > keyStartIndex+2 {
		comment = strings.Join(fields[keyStartIndex+2:], " ")
	}

	return
}
