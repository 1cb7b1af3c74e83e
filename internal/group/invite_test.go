package group

import (
	"strings"
	"testing"
)

func TestNewInviteCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code := NewInviteCode()
		if len(code) != inviteLength {
			t.Fatalf("len(%q) = %d, want %d", code, len(code), inviteLength)
		}
		for _, c := range code {
			if !strings.ContainsRune(inviteAlphabet, c) {
				t.Fatalf("code %q contains %q outside the alphabet", code, c)
			}
		}
		seen[code] = true
	}
	if len(seen) < 100 {
		t.Errorf("collisions within 100 codes: %d unique", len(seen))
	}
}
