package utils

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestGeneratePickupCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		code, err := GeneratePickupCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q is not 6 characters", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("code %q contains non-digit %q", code, r)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Error("20 generated codes were all identical")
	}
}

func TestHashAndVerifyPickupCode(t *testing.T) {
	hash, err := HashPickupCode("042137", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "042137" {
		t.Fatal("code stored in plain text")
	}
	if !VerifyPickupCode(hash, "042137") {
		t.Error("correct code rejected")
	}
	if VerifyPickupCode(hash, "042138") {
		t.Error("wrong code accepted")
	}
	if VerifyPickupCode(hash, "") {
		t.Error("empty code accepted")
	}
}
