package convert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"

	"fileconv/internal/archive"
	"fileconv/internal/deps"
	"fileconv/internal/logging"
	"fileconv/internal/recipes"
	"fileconv/internal/runner"
	"fileconv/internal/services"
)

func noEnv(string) (string, bool) { return "", false }

// newToolkit builds a Toolkit whose PATH holds only binDir.
func newToolkit(t *testing.T, binDir string, inheritPath bool) *Toolkit {
	t.Helper()
	if inheritPath {
		t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	} else {
		t.Setenv("PATH", binDir)
	}
	logger := logging.NewNop()
	resolver := deps.NewResolver(runner.New(time.Minute, logger),
		deps.WithLookupEnv(noEnv), deps.WithProbeTimeout(2*time.Second), deps.WithLogger(logger))
	return &Toolkit{
		Resolver: resolver,
		Archive:  archive.New(resolver, logger),
		DPI:      72,
		Logger:   logger,
	}
}

func writeStub(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
}

func recipe(t *testing.T, slug string) recipes.Recipe {
	t.Helper()
	for _, r := range recipes.Definitions() {
		if r.Slug == slug {
			return r
		}
	}
	t.Fatalf("recipe %s not defined", slug)
	return recipes.Recipe{}
}

func workDirs(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	in := filepath.Join(root, "input")
	out := filepath.Join(root, "output")
	for _, dir := range []string{in, out} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	return in, out
}

func TestRouterCoversEveryRecipe(t *testing.T) {
	router := NewRouter(newToolkit(t, t.TempDir(), false))
	if _, err := recipes.Default(router); err != nil {
		t.Fatalf("default registry rejected router: %v", err)
	}
	if _, ok := router.Batch(recipes.FamilyPDFMerge); !ok {
		t.Fatal("expected merge to be a batch handler")
	}
	if _, ok := router.Handler(recipes.FamilyPDFMerge); ok {
		t.Fatal("merge must not have a per-file handler")
	}
}

func TestPNGToJPGFallsBackToBuiltInCodecs(t *testing.T) {
	tk := newToolkit(t, t.TempDir(), false)
	inDir, outDir := workDirs(t)

	src := filepath.Join(inDir, "logo.png")
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.NRGBA{R: 255, A: 255})
	f, err := os.Create(src)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.Close()

	h, _ := NewRouter(tk).Handler(recipes.FamilyImage)
	outputs, err := h.Convert(context.Background(), Input{Path: src, Name: "logo.png", Recipe: recipe(t, "png-to-jpg")}, outDir)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(outputs) != 1 || filepath.Base(outputs[0]) != "logo.jpg" {
		t.Fatalf("unexpected outputs %v", outputs)
	}
	out, err := os.Open(outputs[0])
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer out.Close()
	decoded, err := jpeg.Decode(out)
	if err != nil {
		t.Fatalf("output is not a jpeg: %v", err)
	}
	r, g, b, _ := decoded.At(3, 3).RGBA()
	if r>>8 < 240 || g>>8 < 240 || b>>8 < 240 {
		t.Fatalf("expected transparent pixel flattened to white, got %d %d %d", r>>8, g>>8, b>>8)
	}
}

func TestAVIFWithoutImageMagickNamesTool(t *testing.T) {
	tk := newToolkit(t, t.TempDir(), false)
	inDir, outDir := workDirs(t)
	src := filepath.Join(inDir, "photo.avif")
	if err := os.WriteFile(src, []byte("not really avif"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	err := tk.transcode(context.Background(), "AVIF to PNG", src, "avif", filepath.Join(outDir, "photo.png"), "png")
	if !errors.Is(err, services.ErrToolUnavailable) {
		t.Fatalf("expected tool unavailable, got %v", err)
	}
	msg := services.FailureMessage(err)
	for _, want := range []string{"AVIF to PNG", "image-convert", "magick"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in %q", want, msg)
		}
	}
}

func TestWordToPDFWithoutOfficeNamesPairAndInstall(t *testing.T) {
	tk := newToolkit(t, t.TempDir(), false)
	inDir, outDir := workDirs(t)
	src := filepath.Join(inDir, "report.docx")
	if err := os.WriteFile(src, []byte("docx"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	h, _ := NewRouter(tk).Handler(recipes.FamilyOfficePDF)
	_, err := h.Convert(context.Background(), Input{Path: src, Name: "report.docx", Recipe: recipe(t, "word-to-pdf")}, outDir)
	if !errors.Is(err, services.ErrToolUnavailable) {
		t.Fatalf("expected tool unavailable, got %v", err)
	}
	msg := services.FailureMessage(err)
	if !strings.Contains(msg, "Word to PDF") || !strings.Contains(msg, "soffice") {
		t.Fatalf("expected pair and install hint in %q", msg)
	}
}

func TestHTMLToPDFWithoutBrowserOrOffice(t *testing.T) {
	tk := newToolkit(t, t.TempDir(), false)
	inDir, outDir := workDirs(t)
	src := filepath.Join(inDir, "page.html")
	if err := os.WriteFile(src, []byte("<p>hi</p>"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	h, _ := NewRouter(tk).Handler(recipes.FamilyHTMLPDF)
	_, err := h.Convert(context.Background(), Input{Path: src, Name: "page.html", Recipe: recipe(t, "html-to-pdf")}, outDir)
	if !errors.Is(err, services.ErrToolUnavailable) {
		t.Fatalf("expected tool unavailable, got %v", err)
	}
	msg := services.FailureMessage(err)
	if !strings.Contains(msg, "chromium") || !strings.Contains(msg, "soffice") {
		t.Fatalf("expected both alternatives in %q", msg)
	}
}

func TestCSVToJSONFallback(t *testing.T) {
	tk := newToolkit(t, t.TempDir(), false)
	inDir, outDir := workDirs(t)
	src := filepath.Join(inDir, "people.csv")
	body := "name,city,note\nAda,London,\"a, b\"\nLinus,Helsinki,<ok>\nGrace,Arlington\n"
	if err := os.WriteFile(src, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	h, _ := NewRouter(tk).Handler(recipes.FamilyCSVJSON)
	outputs, err := h.Convert(context.Background(), Input{Path: src, Name: "people.csv", Recipe: recipe(t, "csv-to-json")}, outDir)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	data, err := os.ReadFile(outputs[0])
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var rows []map[string]*string
	if err := json.Unmarshal(data, &rows); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 records, got %d", len(rows))
	}
	if *rows[0]["note"] != "a, b" || *rows[1]["note"] != "<ok>" {
		t.Fatalf("unexpected values %s", data)
	}
	if rows[2]["note"] != nil {
		t.Fatalf("expected null for missing cell, got %q", *rows[2]["note"])
	}
	if !strings.Contains(string(data), `"<ok>"`) {
		t.Fatalf("expected html characters unescaped in %s", data)
	}
	if strings.Index(string(data), `"name"`) > strings.Index(string(data), `"city"`) {
		t.Fatalf("expected header order preserved in %s", data)
	}
}

func TestCSVToJSONHeaderOnly(t *testing.T) {
	data, err := csvToJSON(strings.NewReader("a,b\n"))
	if err != nil {
		t.Fatalf("csvToJSON: %v", err)
	}
	if string(data) != "[]" {
		t.Fatalf("expected empty array, got %s", data)
	}
}

func TestCollectPolicy(t *testing.T) {
	tk := newToolkit(t, t.TempDir(), false)
	ctx := context.Background()

	if _, err := tk.collect(ctx, "PDF to JPG", nil, t.TempDir(), "doc", "jpg"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for no output, got %v", err)
	}

	_, outDir := workDirs(t)
	scratch := t.TempDir()
	one := filepath.Join(scratch, "page-1.jpg")
	os.WriteFile(one, []byte("x"), 0o644)
	outputs, err := tk.collect(ctx, "PDF to JPG", []string{one}, outDir, "doc", "jpg")
	if err != nil {
		t.Fatalf("collect single: %v", err)
	}
	if len(outputs) != 1 || filepath.Base(outputs[0]) != "doc.jpg" {
		t.Fatalf("expected plain file, got %v", outputs)
	}

	_, outDir = workDirs(t)
	var pages []string
	for _, name := range []string{"page-1.jpg", "page-2.jpg", "page-3.jpg"} {
		p := filepath.Join(scratch, name)
		os.WriteFile(p, []byte(name), 0o644)
		pages = append(pages, p)
	}
	outputs, err = tk.collect(ctx, "PDF to JPG", pages, outDir, "doc", "jpg")
	if err != nil {
		t.Fatalf("collect many: %v", err)
	}
	if len(outputs) != 1 || filepath.Base(outputs[0]) != "doc.zip" {
		t.Fatalf("expected one zip, got %v", outputs)
	}
	entries, err := archive.Entries(outputs[0])
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	want := []string{"doc-page-1.jpg", "doc-page-2.jpg", "doc-page-3.jpg"}
	if strings.Join(entries, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, entries)
	}
}

func TestMergeWithOneInputFailsBeforeIO(t *testing.T) {
	tk := newToolkit(t, t.TempDir(), false)
	_, outDir := workDirs(t)
	in := Input{Path: "/does/not/exist.pdf", Name: "a.pdf", Recipe: recipe(t, "merge-pdf")}
	_, err := tk.mergePDFs(context.Background(), []Input{in}, outDir)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := services.FailureMessage(err); got != "Merge PDF requires at least two files." {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestBarcodeDecodeNoSymbol(t *testing.T) {
	bin := t.TempDir()
	writeStub(t, bin, "zbarimg", `[ "$1" = "--version" ] && { echo 0.23; exit 0; }
exit 4`)
	tk := newToolkit(t, bin, false)
	inDir, outDir := workDirs(t)
	src := filepath.Join(inDir, "blank.png")
	os.WriteFile(src, []byte("png"), 0o644)

	h, _ := NewRouter(tk).Handler(recipes.FamilyBarcodeDecode)
	_, err := h.Convert(context.Background(), Input{Path: src, Name: "blank.png", Recipe: recipe(t, "qr-code-reader")}, outDir)
	if !errors.Is(err, services.ErrValidation) || services.FailureMessage(err) != "No QR code detected." {
		t.Fatalf("expected no QR code error, got %v", err)
	}
}

func TestBarcodeEncodePassesTextOnStdin(t *testing.T) {
	bin := t.TempDir()
	writeStub(t, bin, "qrencode", `[ "$1" = "--version" ] && { echo "qrencode version 4.1.1"; exit 0; }
while [ $# -gt 0 ]; do
  [ "$1" = "-o" ] && out="$2"
  shift
done
cat > "$out"`)
	tk := newToolkit(t, bin, true)
	inDir, outDir := workDirs(t)
	src := filepath.Join(inDir, "link.txt")
	os.WriteFile(src, []byte("  https://example.com\n"), 0o644)

	h, _ := NewRouter(tk).Handler(recipes.FamilyBarcodeEncode)
	outputs, err := h.Convert(context.Background(), Input{Path: src, Name: "link.txt", Recipe: recipe(t, "qr-code-generator")}, outDir)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	data, _ := os.ReadFile(outputs[0])
	if string(data) != "https://example.com" {
		t.Fatalf("expected trimmed text on stdin, got %q", data)
	}
	if filepath.Base(outputs[0]) != "link.png" {
		t.Fatalf("unexpected output name %s", outputs[0])
	}
}

func TestSplitColumns(t *testing.T) {
	rows := splitColumns("Name    Qty\tPrice\nWidget  2\n\n\fTotal\n")
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %v", rows)
	}
	for _, row := range rows {
		if len(row) != 3 {
			t.Fatalf("expected padded rows, got %v", rows)
		}
	}
	if rows[0][2] != "Price" || rows[1][1] != "2" || rows[2][0] != "Total" {
		t.Fatalf("unexpected rows %v", rows)
	}
	if got := splitColumns("  \n"); len(got) != 1 || len(got[0]) != 1 || got[0][0] != "" {
		t.Fatalf("expected single empty cell for blank text, got %v", got)
	}
}

func TestSortByPageNumber(t *testing.T) {
	files := []string{"/t/page-10.jpg", "/t/page-2.jpg", "/t/page-1.jpg"}
	sortByPageNumber(files)
	if strings.Join(files, ",") != "/t/page-1.jpg,/t/page-2.jpg,/t/page-10.jpg" {
		t.Fatalf("unexpected order %v", files)
	}
}

func TestWriteDocx(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "scan.docx")
	if err := writeDocx(dest, []string{"Invoice <1>", "Total & tax"}); err != nil {
		t.Fatalf("writeDocx: %v", err)
	}
	entries, err := archive.Entries(dest)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if strings.Join(entries, ",") != "[Content_Types].xml,_rels/.rels,word/document.xml" {
		t.Fatalf("unexpected parts %v", entries)
	}
}

// writeLastArg is a stub body that writes to its final argument using shell
// builtins only, so it runs with an isolated PATH.
const writeLastArg = `for a; do last="$a"; done
printf 'converted' > "$last"`

func writeHEIC(t *testing.T) (string, string) {
	t.Helper()
	inDir, outDir := workDirs(t)
	src := filepath.Join(inDir, "IMG_0001.heic")
	if err := os.WriteFile(src, []byte("ftypheic"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return src, outDir
}

func TestHEICPrefersImageMagick(t *testing.T) {
	bin := t.TempDir()
	writeStub(t, bin, "magick", `[ "$1" = "-version" ] && { echo "Version: ImageMagick 7.1.1"; exit 0; }
`+writeLastArg)
	writeStub(t, bin, "heif-convert", `[ "$1" = "--version" ] && { echo 1.17.6; exit 0; }
exit 9`)
	tk := newToolkit(t, bin, false)
	src, outDir := writeHEIC(t)

	h, _ := NewRouter(tk).Handler(recipes.FamilyImage)
	outputs, err := h.Convert(context.Background(), Input{Path: src, Name: "IMG_0001.heic", Recipe: recipe(t, "heic-to-jpg")}, outDir)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(outputs) != 1 || filepath.Base(outputs[0]) != "IMG_0001.jpg" {
		t.Fatalf("unexpected outputs %v", outputs)
	}
}

func TestHEICFallsBackToDecoder(t *testing.T) {
	bin := t.TempDir()
	writeStub(t, bin, "heif-convert", `[ "$1" = "--version" ] && { echo 1.17.6; exit 0; }
`+writeLastArg)
	tk := newToolkit(t, bin, false)
	src, outDir := writeHEIC(t)

	h, _ := NewRouter(tk).Handler(recipes.FamilyImage)
	outputs, err := h.Convert(context.Background(), Input{Path: src, Name: "IMG_0001.heic", Recipe: recipe(t, "heic-to-jpg")}, outDir)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	data, err := os.ReadFile(outputs[0])
	if err != nil || string(data) != "converted" {
		t.Fatalf("expected decoder output, got %q %v", data, err)
	}
}

func TestHEICWithoutToolsNamesBoth(t *testing.T) {
	tk := newToolkit(t, t.TempDir(), false)
	src, outDir := writeHEIC(t)

	h, _ := NewRouter(tk).Handler(recipes.FamilyImage)
	_, err := h.Convert(context.Background(), Input{Path: src, Name: "IMG_0001.heic", Recipe: recipe(t, "heic-to-jpg")}, outDir)
	if !errors.Is(err, services.ErrToolUnavailable) {
		t.Fatalf("expected tool unavailable, got %v", err)
	}
	msg := services.FailureMessage(err)
	for _, want := range []string{"HEIC to JPG", "image-convert", "heic-decode", "magick", "heif-convert"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in %q", want, msg)
		}
	}
	if entries, _ := os.ReadDir(outDir); len(entries) != 0 {
		t.Fatalf("expected no output files, found %d", len(entries))
	}
}

func TestImageHandlerUnreadableWithoutMagickNamesPair(t *testing.T) {
	tk := newToolkit(t, t.TempDir(), false)
	inDir, outDir := workDirs(t)
	src := filepath.Join(inDir, "photo.avif")
	if err := os.WriteFile(src, []byte("not really avif"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	h, _ := NewRouter(tk).Handler(recipes.FamilyImage)
	_, err := h.Convert(context.Background(), Input{Path: src, Name: "photo.avif", Recipe: recipe(t, "png-to-jpg")}, outDir)
	if !errors.Is(err, services.ErrToolUnavailable) {
		t.Fatalf("expected tool unavailable, got %v", err)
	}
	msg := services.FailureMessage(err)
	for _, want := range []string{"PNG to JPG", "image-convert", "cannot read avif"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in %q", want, msg)
		}
	}
}

// writePDF builds a PDF with one page per generated PNG.
func writePDF(t *testing.T, dir, name string, pages int) string {
	t.Helper()
	images := make([]string, 0, pages)
	for i := 0; i < pages; i++ {
		path := filepath.Join(t.TempDir(), fmt.Sprintf("page-%d.png", i+1))
		img := image.NewRGBA(image.Rect(0, 0, 16, 16))
		img.Set(i, i, color.RGBA{B: 255, A: 255})
		f, err := os.Create(path)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := png.Encode(f, img); err != nil {
			t.Fatalf("encode: %v", err)
		}
		f.Close()
		images = append(images, path)
	}
	dest := filepath.Join(dir, name)
	if err := api.ImportImagesFile(images, dest, pdfcpu.DefaultImportConfig(), pdfConfig()); err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	return dest
}

func TestPDFToJPGWithBuiltInRenderer(t *testing.T) {
	tk := newToolkit(t, t.TempDir(), false)
	h, _ := NewRouter(tk).Handler(recipes.FamilyPDFImage)
	r := recipe(t, "pdf-to-jpg")

	inDir, outDir := workDirs(t)
	single := writePDF(t, inDir, "one.pdf", 1)
	outputs, err := h.Convert(context.Background(), Input{Path: single, Name: "one.pdf", Recipe: r}, outDir)
	if err != nil {
		t.Fatalf("convert 1 page: %v", err)
	}
	if len(outputs) != 1 || filepath.Base(outputs[0]) != "one.jpg" {
		t.Fatalf("expected one.jpg, got %v", outputs)
	}
	f, err := os.Open(outputs[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := jpeg.Decode(f); err != nil {
		t.Fatalf("expected a jpeg page, got %v", err)
	}
	f.Close()

	inDir, outDir = workDirs(t)
	triple := writePDF(t, inDir, "three.pdf", 3)
	outputs, err = h.Convert(context.Background(), Input{Path: triple, Name: "three.pdf", Recipe: r}, outDir)
	if err != nil {
		t.Fatalf("convert 3 pages: %v", err)
	}
	if len(outputs) != 1 || filepath.Base(outputs[0]) != "three.zip" {
		t.Fatalf("expected three.zip, got %v", outputs)
	}
	entries, err := archive.Entries(outputs[0])
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	want := []string{"three-page-1.jpg", "three-page-2.jpg", "three-page-3.jpg"}
	if strings.Join(entries, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, entries)
	}
}

func TestPDFToJPGWithoutPages(t *testing.T) {
	tk := newToolkit(t, t.TempDir(), false)
	h, _ := NewRouter(tk).Handler(recipes.FamilyPDFImage)
	inDir, outDir := workDirs(t)
	src := filepath.Join(inDir, "empty.pdf")
	empty := "%PDF-1.4\n1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n" +
		"2 0 obj\n<< /Type /Pages /Kids [] /Count 0 >>\nendobj\n" +
		"trailer\n<< /Root 1 0 R >>\n%%EOF\n"
	if err := os.WriteFile(src, []byte(empty), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := h.Convert(context.Background(), Input{Path: src, Name: "empty.pdf", Recipe: recipe(t, "pdf-to-jpg")}, outDir)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if entries, _ := os.ReadDir(outDir); len(entries) != 0 {
		t.Fatalf("expected no output files, found %d", len(entries))
	}
}
