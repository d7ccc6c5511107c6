package credential

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	hasher := Hasher{Cost: bcrypt.MinCost}
	digest, err := hasher.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if digest == "secret123" || !strings.HasPrefix(digest, "$2") {
		t.Fatalf("expected a bcrypt hash, got %q", digest)
	}
	if !hasher.Verify(digest, "secret123") {
		t.Fatal("expected matching password to verify")
	}
	if hasher.Verify(digest, "wrong") {
		t.Fatal("expected wrong password to fail")
	}

	again, err := hasher.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if again == digest {
		t.Fatal("expected salted hashes to differ")
	}
}

func TestVerifyLegacyHashes(t *testing.T) {
	cases := []struct {
		name string
		hash string
	}{
		{
			name: "werkzeug pbkdf2",
			hash: "pbkdf2:sha256:1000$NaCl4salt$9f883539b2648237449a0fb8e077ba5b21a4bb8961630001e9a1fca2fe2ee465",
		},
		{
			name: "werkzeug scrypt",
			hash: "scrypt:16384:8:1$NaCl4salt$dfbe27439b1907e8cf6ec5659f882c9b73aac0f28e77762e667f07d78e5f356de83a79d3e23d68b2c3d2c524f5b02a8613c13db132ecb2076d7092120bfe9837",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !Verify(tc.hash, "secret123") {
				t.Fatal("expected legacy hash to verify")
			}
			if Verify(tc.hash, "secret124") {
				t.Fatal("expected wrong password to fail")
			}
		})
	}
}

func TestVerifyRejectsUnknownFormats(t *testing.T) {
	for _, stored := range []string{
		"",
		"secret123",
		"md5$abc$def",
		"pbkdf2:sha256:1000$salt",
		"pbkdf2:md5:1000$salt$00ff",
		"pbkdf2:sha256:zero$salt$00ff",
		"scrypt:1:2$salt$00ff",
		"pbkdf2:sha256:1000$salt$not-hex",
	} {
		if Verify(stored, "secret123") {
			t.Fatalf("Verify(%q) unexpectedly matched", stored)
		}
	}
}
