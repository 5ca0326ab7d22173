package convert

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"fileconv/internal/deps"
	"fileconv/internal/fileutil"
	"fileconv/internal/logging"
	"fileconv/internal/runner"
)

// textLayerMinimum is the shortest extracted text accepted before a PDF is
// treated as scanned and sent through OCR.
const textLayerMinimum = 50

var pdfcpuInit sync.Once

func pdfConfig() *model.Configuration {
	pdfcpuInit.Do(api.DisableConfigDir)
	return model.NewDefaultConfiguration()
}

func pageCount(pair, path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, invalid(pair, "The PDF could not be read.", err)
	}
	if n == 0 {
		return 0, invalid(pair, "The PDF has no pages.", nil)
	}
	return n, nil
}

func (tk *Toolkit) convertPDFToImages(ctx context.Context, in Input, outputDir string) ([]string, error) {
	pair := in.Recipe.Pair()
	if _, err := pageCount(pair, in.Path); err != nil {
		return nil, err
	}
	scratch, cleanup, err := scratchDir(outputDir, "pages")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	pages, err := tk.renderPages(ctx, pair, in.Path, scratch, in.Recipe.OutputFormat)
	if err != nil {
		return nil, err
	}
	return tk.collect(ctx, pair, pages, outputDir, in.Base(), in.Recipe.OutputFormat)
}

// renderPages rasterizes every page of a PDF into dir, in page order.
func (tk *Toolkit) renderPages(ctx context.Context, pair, pdfPath, dir, format string) ([]string, error) {
	if format == "jpeg" {
		format = "jpg"
	}
	tool, ok, err := tk.optional(ctx, deps.PDFRender)
	if err != nil {
		return nil, err
	}
	if ok {
		flag := "-jpeg"
		if format == "png" {
			flag = "-png"
		}
		prefix := filepath.Join(dir, "page")
		if _, err := tool.Run(ctx, []string{flag, "-r", strconv.Itoa(tk.dpi()), pdfPath, prefix}, runner.Options{}); err != nil {
			return nil, err
		}
		pages, err := filepath.Glob(prefix + "-*." + format)
		if err != nil {
			return nil, storageErr(pair, "list pages", err)
		}
		sortByPageNumber(pages)
		return pages, nil
	}

	tk.fallingBack(ctx, deps.PDFRender, "mupdf")
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, invalid(pair, "The PDF could not be opened.", err)
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := doc.ImageDPI(i, float64(tk.dpi()))
		if err != nil {
			return nil, invalid(pair, fmt.Sprintf("Page %d could not be rendered.", i+1), err)
		}
		path := filepath.Join(dir, fmt.Sprintf("page-%d.%s", i+1, format))
		f, err := os.Create(path)
		if err != nil {
			return nil, storageErr(pair, "write page", err)
		}
		if format == "png" {
			err = png.Encode(f, img)
		} else {
			err = jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality})
		}
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, storageErr(pair, "encode page", err)
		}
		pages = append(pages, path)
	}
	return pages, nil
}

func (tk *Toolkit) convertPDFToText(ctx context.Context, in Input, outputDir string) ([]string, error) {
	pair := in.Recipe.Pair()
	text, err := tk.extractText(ctx, pair, in.Path)
	if err != nil {
		return nil, err
	}

	if len(strings.TrimSpace(text)) < textLayerMinimum && tk.OCR != nil && tk.OCR.Available(ctx) {
		if scanned, err := tk.ocrPDF(ctx, pair, in.Path, outputDir); err == nil {
			if len(strings.TrimSpace(scanned)) > len(strings.TrimSpace(text)) {
				text = scanned
			}
		} else {
			tk.log(ctx).Info("ocr of pdf pages failed; keeping text layer",
				logging.String(logging.FieldEventType, "pdf_ocr_skipped"),
				logging.Error(err),
			)
		}
	}
	if strings.TrimSpace(text) == "" {
		return nil, invalid(pair, "No text detected.", nil)
	}

	dest := filepath.Join(outputDir, in.Base()+".txt")
	if err := writeText(pair, dest, text); err != nil {
		return nil, err
	}
	return []string{dest}, nil
}

// extractText reads the text layer with pdftotext, or MuPDF when poppler is
// not installed. Pages are separated by form feeds either way.
func (tk *Toolkit) extractText(ctx context.Context, pair, pdfPath string) (string, error) {
	tool, ok, err := tk.optional(ctx, deps.PDFText)
	if err != nil {
		return "", err
	}
	if ok {
		res, err := tool.Run(ctx, []string{"-layout", "-enc", "UTF-8", "-eol", "unix", pdfPath, "-"}, runner.Options{})
		if err != nil {
			return "", err
		}
		return string(res.Stdout), nil
	}

	tk.fallingBack(ctx, deps.PDFText, "mupdf")
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return "", invalid(pair, "The PDF could not be opened.", err)
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return "", invalid(pair, fmt.Sprintf("Page %d text could not be read.", i+1), err)
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\f"), nil
}

func (tk *Toolkit) ocrPDF(ctx context.Context, pair, pdfPath, outputDir string) (string, error) {
	scratch, cleanup, err := scratchDir(outputDir, "ocr")
	if err != nil {
		return "", err
	}
	defer cleanup()
	pages, err := tk.renderPages(ctx, pair, pdfPath, scratch, "png")
	if err != nil {
		return "", err
	}
	return tk.OCR.RecognizePages(ctx, pages)
}

func (tk *Toolkit) convertPDFToHTML(ctx context.Context, in Input, outputDir string) ([]string, error) {
	pair := in.Recipe.Pair()
	if _, err := pageCount(pair, in.Path); err != nil {
		return nil, err
	}
	dest := filepath.Join(outputDir, in.Base()+".html")

	tool, ok, err := tk.optional(ctx, deps.PDFHTML)
	if err != nil {
		return nil, err
	}
	if ok {
		scratch, cleanup, err := scratchDir(outputDir, "html")
		if err != nil {
			return nil, err
		}
		defer cleanup()
		if _, err := tool.Run(ctx, []string{"-s", "-i", "-noframes", "-q", in.Path, filepath.Join(scratch, "page")}, runner.Options{}); err != nil {
			return nil, err
		}
		produced, err := filepath.Glob(filepath.Join(scratch, "*.html"))
		if err != nil || len(produced) == 0 {
			return nil, invalid(pair, "The PDF could not be exported as HTML.", err)
		}
		if err := moveFile(produced[0], dest); err != nil {
			return nil, storageErr(pair, "move output", err)
		}
		return []string{dest}, nil
	}

	tk.fallingBack(ctx, deps.PDFHTML, "mupdf")
	doc, err := fitz.New(in.Path)
	if err != nil {
		return nil, invalid(pair, "The PDF could not be opened.", err)
	}
	defer doc.Close()

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	b.WriteString(htmlEscaper.Replace(in.Base()))
	b.WriteString("</title>\n</head>\n<body>\n")
	for i := 0; i < doc.NumPage(); i++ {
		page, err := doc.HTML(i, false)
		if err != nil {
			return nil, invalid(pair, fmt.Sprintf("Page %d could not be exported.", i+1), err)
		}
		b.WriteString(page)
		b.WriteString("\n")
	}
	b.WriteString("</body>\n</html>\n")
	if err := os.WriteFile(dest, []byte(b.String()), 0o644); err != nil {
		return nil, storageErr(pair, "write output", err)
	}
	return []string{dest}, nil
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func (tk *Toolkit) mergePDFs(ctx context.Context, inputs []Input, outputDir string) ([]string, error) {
	if len(inputs) == 0 {
		return nil, invalid("Merge PDF", "No files were uploaded.", nil)
	}
	recipe := inputs[0].Recipe
	if err := recipe.CheckInputCount(len(inputs)); err != nil {
		return nil, err
	}
	pair := recipe.Pair()
	paths := make([]string, 0, len(inputs))
	for _, in := range inputs {
		if _, err := pageCount(pair, in.Path); err != nil {
			return nil, invalid(pair, fmt.Sprintf("%s could not be read as a PDF.", in.Name), err)
		}
		paths = append(paths, in.Path)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dest := filepath.Join(outputDir, "merged.pdf")
	if err := api.MergeCreateFile(paths, dest, false, pdfConfig()); err != nil {
		_ = os.Remove(dest)
		return nil, invalid(pair, "The PDFs could not be merged.", err)
	}
	return []string{dest}, nil
}

func (tk *Toolkit) splitPDF(ctx context.Context, in Input, outputDir string) ([]string, error) {
	pair := in.Recipe.Pair()
	n, err := pageCount(pair, in.Path)
	if err != nil {
		return nil, err
	}
	if n == 1 {
		dest := filepath.Join(outputDir, in.Base()+".pdf")
		if err := fileutil.CopyFile(in.Path, dest); err != nil {
			return nil, storageErr(pair, "copy page", err)
		}
		return []string{dest}, nil
	}

	scratch, cleanup, err := scratchDir(outputDir, "split")
	if err != nil {
		return nil, err
	}
	defer cleanup()
	if err := api.SplitFile(in.Path, scratch, 1, pdfConfig()); err != nil {
		return nil, invalid(pair, "The PDF could not be split.", err)
	}
	pages, err := filepath.Glob(filepath.Join(scratch, "*.pdf"))
	if err != nil {
		return nil, storageErr(pair, "list pages", err)
	}
	sortByPageNumber(pages)
	return tk.collect(ctx, pair, pages, outputDir, in.Base(), "pdf")
}

var trailingNumber = regexp.MustCompile(`(\d+)\D*$`)

// sortByPageNumber orders files by the last number in their names so that
// page-10 follows page-9.
func sortByPageNumber(files []string) {
	number := func(path string) int {
		m := trailingNumber.FindStringSubmatch(filepath.Base(path))
		if m == nil {
			return 0
		}
		n, _ := strconv.Atoi(m[1])
		return n
	}
	sort.SliceStable(files, func(i, j int) bool {
		ni, nj := number(files[i]), number(files[j])
		if ni != nj {
			return ni < nj
		}
		return files[i] < files[j]
	})
}
