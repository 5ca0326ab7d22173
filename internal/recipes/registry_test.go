package recipes

import (
	"errors"
	"strings"
	"testing"

	"fileconv/internal/services"
)

type familySet map[Family]bool

func (s familySet) Supports(f Family) bool { return s[f] }

func allFamilies() familySet {
	set := familySet{}
	for _, r := range Definitions() {
		set[r.Family] = true
	}
	return set
}

func TestDefaultRegistryHasEveryRecipe(t *testing.T) {
	reg, err := Default(allFamilies())
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if reg.Len() != 27 {
		t.Fatalf("expected 27 recipes, got %d", reg.Len())
	}
	for _, slug := range []string{
		"image-to-text", "jpeg-to-text", "png-to-text", "pdf-to-text", "image-translator",
		"jpg-to-word", "png-to-document", "jpg-to-excel", "pdf-to-excel", "pdf-to-csv",
		"word-to-pdf", "word-to-jpg", "excel-to-jpg", "html-to-pdf", "pdf-to-html",
		"pdf-to-jpg", "merge-pdf", "split-pdf", "jpeg-to-png", "png-to-jpg",
		"heic-to-jpg", "tiff-to-pdf", "jpg-to-pdf", "svg-to-png", "csv-to-json",
		"qr-code-reader", "qr-code-generator",
	} {
		if _, ok := reg.Lookup(slug); !ok {
			t.Errorf("missing recipe %s", slug)
		}
	}
}

func TestLookupNormalizesSlug(t *testing.T) {
	reg, err := Default(nil)
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	for _, in := range []string{" PNG-to-JPG ", "png%2Dto%2Djpg", "Png-To-Jpg"} {
		r, ok := reg.Lookup(in)
		if !ok || r.Slug != "png-to-jpg" {
			t.Fatalf("Lookup(%q) = %v, %v", in, r.Slug, ok)
		}
	}
	if _, ok := reg.Lookup("png-to-gif"); ok {
		t.Fatal("expected unknown slug to be absent")
	}
}

func TestNewRejectsInvalidRecipes(t *testing.T) {
	bad := []Recipe{
		{Slug: "Bad Slug", Accept: Accept{Extensions: []string{"png"}}, OutputFormat: "jpg", Family: FamilyImage},
		{Slug: "no-accept", OutputFormat: "jpg", Family: FamilyImage},
		{Slug: "no-output", Accept: Accept{Extensions: []string{"png"}}, Family: FamilyImage},
		{Slug: "no-handler", Accept: Accept{Extensions: []string{"png"}}, OutputFormat: "jpg", Family: "teleport"},
	}
	_, err := New(bad, allFamilies())
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"Bad Slug", "accept table is empty", "output format is empty", `no handler for family "teleport"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestNewRejectsDuplicateSlug(t *testing.T) {
	r := Recipe{Slug: "png-to-jpg", Accept: Accept{Extensions: []string{"png"}}, OutputFormat: "jpg", Family: FamilyImage}
	if _, err := New([]Recipe{r, r}, nil); err == nil || !strings.Contains(err.Error(), "duplicate slug") {
		t.Fatalf("expected duplicate slug error, got %v", err)
	}
}

func TestAcceptsByExtensionAndMIME(t *testing.T) {
	reg, _ := Default(nil)
	imageToText, _ := reg.Lookup("image-to-text")
	if !imageToText.Accepts("scan.HEIC", "") {
		t.Fatal("expected heic accepted by extension")
	}
	if !imageToText.Accepts("upload", "image/x-portable-anymap") {
		t.Fatal("expected image/* wildcard to match")
	}
	pngToJPG, _ := reg.Lookup("png-to-jpg")
	if pngToJPG.Accepts("photo.jpg", "image/jpeg") {
		t.Fatal("png-to-jpg must not accept jpeg")
	}
	if !pngToJPG.Accepts("blob", "image/png; charset=binary") {
		t.Fatal("expected content type parameters to be ignored")
	}
	word, _ := reg.Lookup("word-to-pdf")
	if len(word.Accept.MIMETypes) != 1 || !strings.Contains(word.Accept.MIMETypes[0], "wordprocessingml") {
		t.Fatalf("expected derived docx mime, got %v", word.Accept.MIMETypes)
	}
}

func TestMergeRequiresTwoInputs(t *testing.T) {
	reg, _ := Default(nil)
	merge, _ := reg.Lookup("merge-pdf")
	err := merge.CheckInputCount(1)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if services.FailureMessage(err) != "Merge PDF requires at least two files." {
		t.Fatalf("unexpected message %q", services.FailureMessage(err))
	}
	if err := merge.CheckInputCount(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	split, _ := reg.Lookup("split-pdf")
	if err := split.CheckInputCount(0); err == nil {
		t.Fatal("expected error for zero inputs")
	}
}

func TestMIMEByExtension(t *testing.T) {
	if got := MIMEByExtension(".JPG"); got != "image/jpeg" {
		t.Fatalf("unexpected mime %q", got)
	}
	if got := MIMEByExtension("xyz"); got != "application/octet-stream" {
		t.Fatalf("unexpected fallback %q", got)
	}
}
