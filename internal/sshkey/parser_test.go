package sshkey

import "testing"

func TestParseSimpleLine(t *testing.T) {
	algo, data, comment, err := Parse("ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIMock user@host")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if algo != "ssh-ed25519" {
		t.Fatalf("algo = %q", algo)
	}
	if data != "AAAAC3NzaC1lZDI1NTE5AAAAIMock" {
		t.Fatalf("data = %q", data)
	}
	if comment != "user@host" {
		t.Fatalf("comment = %q", comment)
	}
}

func TestParseWithLeadingOptions(t *testing.T) {
	line := `from="10.0.0.0/8",command="/bin/true" ssh-rsa AAAAB3NzaC1yc2EAAAADAQABAAAB deploy-key`
	algo, data, comment, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if algo != "ssh-rsa" {
		t.Fatalf("algo = %q, want ssh-rsa", algo)
	}
	if data == "" {
		t.Fatalf("expected non-empty key data")
	}
	if comment != "deploy-key" {
		t.Fatalf("comment = %q", comment)
	}
}

func TestParseEmptyLine(t *testing.T) {
	if _, _, _, err := Parse("   "); err == nil {
		t.Fatalf("expected error for empty line")
	}
}

func TestParseNoRecognizedAlgorithm(t *testing.T) {
	if _, _, _, err := Parse("bogus-type AAAA comment"); err == nil {
		t.Fatalf("expected error for unrecognized algorithm")
	}
}
