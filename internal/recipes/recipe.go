package recipes

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"fileconv/internal/services"
)

// Family groups recipes that share a conversion routine.
type Family string

const (
	FamilyOCRText       Family = "ocr-text"
	FamilyOCRTranslate  Family = "ocr-translate"
	FamilyOCRDocx       Family = "ocr-docx"
	FamilyOCRXlsx       Family = "ocr-xlsx"
	FamilyPDFText       Family = "pdf-text"
	FamilyPDFTables     Family = "pdf-tables"
	FamilyPDFImage      Family = "pdf-image"
	FamilyPDFHTML       Family = "pdf-html"
	FamilyPDFMerge      Family = "pdf-merge"
	FamilyPDFSplit      Family = "pdf-split"
	FamilyOfficePDF     Family = "office-pdf"
	FamilyOfficeImage   Family = "office-image"
	FamilyHTMLPDF       Family = "html-pdf"
	FamilyImage         Family = "image"
	FamilyImagePDF      Family = "image-pdf"
	FamilySVG           Family = "svg"
	FamilyCSVJSON       Family = "csv-json"
	FamilyBarcodeDecode Family = "barcode-decode"
	FamilyBarcodeEncode Family = "barcode-encode"
)

// Accept lists the inputs a recipe takes. A MIME entry ending in "/*"
// matches the whole type.
type Accept struct {
	Extensions []string
	MIMETypes  []string
}

// Recipe is one registered conversion.
type Recipe struct {
	Slug         string
	Title        string
	Description  string
	Category     string
	Tags         []string
	Accept       Accept
	OutputFormat string
	Family       Family
	// Batch recipes consume every input of a job in one call.
	Batch bool
	// MinInputs is checked before any storage I/O.
	MinInputs        int
	MinInputsMessage string
	Featured         bool
}

// Accepts reports whether a file with the given name or content type is a
// valid input.
func (r Recipe) Accepts(filename, contentType string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext != "" && slices.Contains(r.Accept.Extensions, ext) {
		return true
	}
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if ct == "" {
		return false
	}
	for _, mime := range r.Accept.MIMETypes {
		if mime == ct {
			return true
		}
		if prefix, ok := strings.CutSuffix(mime, "/*"); ok && strings.HasPrefix(ct, prefix+"/") {
			return true
		}
	}
	return false
}

// CheckInputCount enforces MinInputs.
func (r Recipe) CheckInputCount(n int) error {
	if r.MinInputs > 0 && n < r.MinInputs {
		msg := r.MinInputsMessage
		if msg == "" {
			msg = fmt.Sprintf("%s requires at least %d files.", r.Title, r.MinInputs)
		}
		return services.Wrap(services.ErrValidation, "recipes", r.Slug, msg, nil)
	}
	if n == 0 {
		return services.Wrap(services.ErrValidation, "recipes", r.Slug, "No files were uploaded.", nil)
	}
	return nil
}

// PrimaryInput is the first accepted extension, used for display.
func (r Recipe) PrimaryInput() string {
	if len(r.Accept.Extensions) > 0 {
		return r.Accept.Extensions[0]
	}
	return r.OutputFormat
}

// Pair renders the conversion for messages, e.g. "PNG to JPG".
func (r Recipe) Pair() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Slug
}

// NormalizeSlug trims, URL-unescapes and lowercases a slug.
func NormalizeSlug(slug string) string {
	if decoded, err := url.PathUnescape(slug); err == nil {
		slug = decoded
	}
	return strings.ToLower(strings.TrimSpace(slug))
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
