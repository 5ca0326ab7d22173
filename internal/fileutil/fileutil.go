package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CopyFile streams src to dst using io.Copy with default permissions (0o644).
func CopyFile(src, dst string) error {
	return CopyFileMode(src, dst, 0o644)
}

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// RequireNonEmpty returns an error unless path is a regular file with content.
func RequireNonEmpty(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", filepath.Base(path))
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s is empty", filepath.Base(path))
	}
	return nil
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	dashRuns    = regexp.MustCompile(`-+`)
	foldMarks   = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// SanitizeFileName reduces name to [a-zA-Z0-9._-]. Accents are folded first
// so "résumé.pdf" becomes "resume.pdf"; any other character becomes a dash,
// dash runs collapse and leading dashes or dots are dropped. An empty result
// becomes "file".
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, `\`, "/")))
	if folded, _, err := transform.String(foldMarks, name); err == nil {
		name = folded
	}
	name = unsafeChars.ReplaceAllString(name, "-")
	name = dashRuns.ReplaceAllString(name, "-")
	name = strings.TrimLeft(name, "-.")
	if name == "" {
		return "file"
	}
	return name
}

// SplitExt splits name into base and lowercase extension without the dot.
func SplitExt(name string) (string, string) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return base, strings.ToLower(strings.TrimPrefix(ext, "."))
}
