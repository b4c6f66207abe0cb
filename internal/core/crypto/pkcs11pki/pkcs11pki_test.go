// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package pkcs11pki

import "testing"

func TestParseURIObjectAndPIN(t *testing.T) {
	u, err := ParseURI("pkcs11:token=prod-hsm;object=host-key;pin-value=1234")
	if err != nil {
		t.Fatalf("ParseURI: %v", err)
	}
	if u.TokenLabel != "prod-hsm" || u.Object != "host-key" || u.PIN != "1234" {
		t.Fatalf("unexpected URI fields: %+v", u)
	}
}

func TestParseURIModulePathQuery(t *testing.T) {
	u, err := ParseURI("pkcs11:token=prod-hsm;id=01?module-path=/usr/lib/softhsm2.so")
	if err != nil {
		t.Fatalf("ParseURI: %v", err)
	}
	if u.ModulePath != "/usr/lib/softhsm2.so" || u.ID != "01" {
		t.Fatalf("unexpected URI fields: %+v", u)
	}
}

func TestParseURIRejectsNonPKCS11(t *testing.T) {
	if _, err := ParseURI("file:///etc/ssh/host_key"); err == nil {
		t.Fatalf("expected error for non-pkcs11 URI")
	}
}

func TestParseURIRequiresObjectOrID(t *testing.T) {
	if _, err := ParseURI("pkcs11:token=prod-hsm"); err == nil {
		t.Fatalf("expected error when neither object nor id is set")
	}
}
