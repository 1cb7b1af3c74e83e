package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFSStoreRoundTrip(t *testing.T) {
	st, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	key, err := st.Put("images/pic.png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	rc, err := st.Get(key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "png-bytes" {
		t.Errorf("read back %q", b)
	}
}

func TestFSStoreGetRefusesEscapingKeys(t *testing.T) {
	dir := t.TempDir()
	secret := filepath.Join(dir, "secret.db")
	if err := os.WriteFile(secret, []byte("do not serve"), 0o600); err != nil {
		t.Fatal(err)
	}
	st, err := NewFSStore(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	keys := []string{
		"../secret.db",
		"images/../../secret.db",
		"..",
		"/etc/hostname",
		"",
	}
	for _, key := range keys {
		if rc, err := st.Get(key); err == nil {
			rc.Close()
			t.Errorf("Get(%q) opened a file outside the base", key)
		}
	}
}

func TestFSStorePutRefusesEscapingKeys(t *testing.T) {
	st, err := NewFSStore(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	for _, key := range []string{"../evil.sh", "a/../../evil.sh"} {
		if _, err := st.Put(key, strings.NewReader("x")); err == nil {
			t.Errorf("Put(%q) wrote outside the base", key)
		}
	}
}
