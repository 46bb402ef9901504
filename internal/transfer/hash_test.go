package transfer

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestHashVariantsAgree(t *testing.T) {
	data := randomPayload(100000)

	byBytes := HashBytes(data)
	if len(byBytes) != 64 {
		t.Fatalf("digest length = %d, want 64 hex chars", len(byBytes))
	}

	byReader, err := HashReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("HashReader: %v", err)
	}
	if byReader != byBytes {
		t.Errorf("HashReader = %s, HashBytes = %s", byReader, byBytes)
	}

	path := filepath.Join(t.TempDir(), "blob")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	byFile, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if byFile != byBytes {
		t.Errorf("HashFile = %s, HashBytes = %s", byFile, byBytes)
	}
}

func TestHashDistinguishesContent(t *testing.T) {
	a := HashBytes([]byte("one"))
	b := HashBytes([]byte("two"))
	if a == b {
		t.Error("distinct content produced identical digests")
	}
}

func TestHashFileMissing(t *testing.T) {
	if _, err := HashFile(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("expected error for missing file")
	}
}
