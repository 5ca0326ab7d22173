package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")

	content := []byte("hello world")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestCopyFileMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")

	if err := os.WriteFile(src, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFileMode(src, dst, 0o755); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o111 == 0 {
		t.Fatalf("expected executable bits, got %o", info.Mode().Perm())
	}
}

func TestRequireNonEmpty(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.txt")
	full := filepath.Join(dir, "full.txt")
	_ = os.WriteFile(empty, nil, 0o644)
	_ = os.WriteFile(full, []byte("x"), 0o644)

	if err := RequireNonEmpty(full); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := RequireNonEmpty(empty); err == nil {
		t.Fatal("expected error for empty file")
	}
	if err := RequireNonEmpty(dir); err == nil {
		t.Fatal("expected error for directory")
	}
	if err := RequireNonEmpty(filepath.Join(dir, "missing")); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"my scan (1).png", "my-scan-1-.png"},
		{"résumé.docx", "resume.docx"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\photo.jpg`, "photo.jpg"},
		{"...hidden", "hidden"},
		{"--  --", "file"},
		{"", "file"},
		{"数据.csv", "csv"},
	}
	for _, tc := range tests {
		if got := SanitizeFileName(tc.in); got != tc.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSplitExt(t *testing.T) {
	base, ext := SplitExt("Scan.JPEG")
	if base != "Scan" || ext != "jpeg" {
		t.Fatalf("unexpected split %q %q", base, ext)
	}
	base, ext = SplitExt("README")
	if base != "README" || ext != "" {
		t.Fatalf("unexpected split %q %q", base, ext)
	}
}
