package files

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "report.pdf", []byte("pdf bytes"))

	info, err := ValidateFile(path)
	if err != nil {
		t.Fatalf("ValidateFile: %v", err)
	}
	if info.Name != "report.pdf" {
		t.Errorf("Name = %q", info.Name)
	}
	if info.Size != int64(len("pdf bytes")) {
		t.Errorf("Size = %d", info.Size)
	}
	if info.Type != "application/pdf" {
		t.Errorf("Type = %q", info.Type)
	}
	if !filepath.IsAbs(info.Path) {
		t.Errorf("Path not absolute: %q", info.Path)
	}
}

func TestValidateFileRejections(t *testing.T) {
	dir := t.TempDir()
	empty := writeTemp(t, dir, "empty", nil)

	cases := map[string]string{
		"missing":   filepath.Join(dir, "nope"),
		"directory": dir,
		"empty":     empty,
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ValidateFile(path); err == nil {
				t.Errorf("ValidateFile(%q) succeeded", path)
			}
		})
	}
}

func TestValidateFileUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "blob.xyzzy", []byte("data"))

	info, err := ValidateFile(path)
	if err != nil {
		t.Fatalf("ValidateFile: %v", err)
	}
	if info.Type != "application/octet-stream" {
		t.Errorf("Type = %q, want octet-stream fallback", info.Type)
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()

	first := UniquePath(dir, "photo.jpg")
	if first != filepath.Join(dir, "photo.jpg") {
		t.Errorf("first = %q", first)
	}

	writeTemp(t, dir, "photo.jpg", []byte("a"))
	second := UniquePath(dir, "photo.jpg")
	if second != filepath.Join(dir, "photo (1).jpg") {
		t.Errorf("second = %q", second)
	}

	writeTemp(t, dir, "photo (1).jpg", []byte("b"))
	third := UniquePath(dir, "photo.jpg")
	if third != filepath.Join(dir, "photo (2).jpg") {
		t.Errorf("third = %q", third)
	}
}

func TestWriteUniqueNeverClobbers(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "downloads")

	p1, err := WriteUnique(dir, "doc.txt", []byte("first"))
	if err != nil {
		t.Fatalf("WriteUnique: %v", err)
	}
	p2, err := WriteUnique(dir, "doc.txt", []byte("second"))
	if err != nil {
		t.Fatalf("WriteUnique: %v", err)
	}
	if p1 == p2 {
		t.Fatalf("both writes landed on %q", p1)
	}

	got, _ := os.ReadFile(p1)
	if string(got) != "first" {
		t.Errorf("original overwritten: %q", got)
	}
	got, _ = os.ReadFile(p2)
	if string(got) != "second" {
		t.Errorf("second copy = %q", got)
	}
}

func TestWriteUniqueStripsDirectoryComponents(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteUnique(dir, "../escape.txt", []byte("x"))
	if err != nil {
		t.Fatalf("WriteUnique: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("wrote outside target dir: %q", path)
	}
}
