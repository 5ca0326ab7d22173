package deps

import (
	"fmt"
	"sort"
	"strings"
)

// Capability names a conversion primitive that one of several external
// tools can provide.
type Capability string

const (
	OCR           Capability = "ocr"
	ImageConvert  Capability = "image-convert"
	HEICDecode    Capability = "heic-decode"
	SVGRasterize  Capability = "svg-rasterize"
	OfficeConvert Capability = "office-convert"
	HTMLPrint     Capability = "html-print"
	PDFRender     Capability = "pdf-render"
	PDFText       Capability = "pdf-text"
	PDFHTML       Capability = "pdf-html"
	Python        Capability = "python"
	Zip           Capability = "zip"
	BarcodeDecode Capability = "barcode-decode"
	BarcodeEncode Capability = "barcode-encode"
)

// Spec describes how a capability is discovered.
type Spec struct {
	Capability  Capability
	EnvVar      string
	Candidates  []string
	ProbeArgs   []string
	Description string
	// Fallback names the in-process or alternate implementation used when no
	// candidate is installed. Empty means the capability is required.
	Fallback string
}

var specs = map[Capability]Spec{
	OCR: {
		EnvVar: "FILECONV_TESSERACT", Candidates: []string{"tesseract"}, ProbeArgs: []string{"--version"},
		Description: "Text recognition for image and scanned PDF recipes", Fallback: "cloud OCR",
	},
	ImageConvert: {
		EnvVar: "FILECONV_IMAGEMAGICK", Candidates: []string{"magick", "convert"}, ProbeArgs: []string{"-version"},
		Description: "Raster format conversion", Fallback: "in-process raster codecs",
	},
	HEICDecode: {
		EnvVar: "FILECONV_HEIF_CONVERT", Candidates: []string{"heif-convert", "heif-dec"}, ProbeArgs: []string{"--version"},
		Description: "HEIC/HEIF decoding",
	},
	SVGRasterize: {
		EnvVar: "FILECONV_RSVG", Candidates: []string{"rsvg-convert", "inkscape"}, ProbeArgs: []string{"--version"},
		Description: "SVG rasterization", Fallback: "in-process SVG renderer",
	},
	OfficeConvert: {
		EnvVar: "FILECONV_SOFFICE", Candidates: []string{"soffice", "libreoffice"}, ProbeArgs: []string{"--version"},
		Description: "Word and Excel rendering",
	},
	HTMLPrint: {
		EnvVar: "FILECONV_CHROME", Candidates: []string{"chromium", "chromium-browser", "google-chrome"}, ProbeArgs: []string{"--version"},
		Description: "HTML to PDF printing", Fallback: string(OfficeConvert),
	},
	PDFRender: {
		EnvVar: "FILECONV_PDFTOPPM", Candidates: []string{"pdftoppm"}, ProbeArgs: []string{"-v"},
		Description: "PDF page rasterization", Fallback: "in-process PDF renderer",
	},
	PDFText: {
		EnvVar: "FILECONV_PDFTOTEXT", Candidates: []string{"pdftotext"}, ProbeArgs: []string{"-v"},
		Description: "PDF text layer extraction", Fallback: "in-process PDF renderer",
	},
	PDFHTML: {
		EnvVar: "FILECONV_PDFTOHTML", Candidates: []string{"pdftohtml"}, ProbeArgs: []string{"-v"},
		Description: "PDF to HTML export", Fallback: "in-process PDF renderer",
	},
	Python: {
		EnvVar: "FILECONV_PYTHON", Candidates: []string{"python3", "python"}, ProbeArgs: []string{"--version"},
		Description: "Tabular data scripts", Fallback: "in-process CSV reader",
	},
	Zip: {
		EnvVar: "FILECONV_ZIP", Candidates: []string{"zip"}, ProbeArgs: []string{"-v"},
		Description: "Multi-file artifact bundling", Fallback: "in-process zip writer",
	},
	BarcodeDecode: {
		EnvVar: "FILECONV_ZBARIMG", Candidates: []string{"zbarimg"}, ProbeArgs: []string{"--version"},
		Description: "QR and barcode reading",
	},
	BarcodeEncode: {
		EnvVar: "FILECONV_QRENCODE", Candidates: []string{"qrencode"}, ProbeArgs: []string{"--version"},
		Description: "QR code generation",
	},
}

// Lookup returns the discovery rules for c.
func Lookup(c Capability) (Spec, bool) {
	spec, ok := specs[c]
	if !ok {
		return Spec{}, false
	}
	spec.Capability = c
	return spec, true
}

// Capabilities lists every known capability in name order.
func Capabilities() []Capability {
	out := make([]Capability, 0, len(specs))
	for c := range specs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseCapability maps user input (case-insensitive) to a capability.
func ParseCapability(value string) (Capability, error) {
	c := Capability(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := specs[c]; !ok {
		return "", fmt.Errorf("unknown capability %q", value)
	}
	return c, nil
}

// InstallHint names the tools that satisfy c, for error messages.
func InstallHint(c Capability) string {
	spec, ok := Lookup(c)
	if !ok {
		return string(c)
	}
	return fmt.Sprintf("%s (or set %s)", strings.Join(spec.Candidates, " or "), spec.EnvVar)
}

// Requirements expands the capability table into per-binary requirements for
// CheckBinaries. Overrides replace the candidate list of a capability.
func Requirements(overrides map[Capability]string) []Requirement {
	var reqs []Requirement
	for _, c := range Capabilities() {
		spec, _ := Lookup(c)
		commands := spec.Candidates
		if override := strings.TrimSpace(overrides[c]); override != "" {
			commands = []string{override}
		}
		for _, command := range commands {
			reqs = append(reqs, Requirement{
				Name:        string(c),
				Command:     command,
				Description: spec.Description,
				Optional:    spec.Fallback != "" || len(commands) > 1,
			})
		}
	}
	return reqs
}
