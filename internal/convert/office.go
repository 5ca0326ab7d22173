package convert

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"

	"fileconv/internal/deps"
	"fileconv/internal/runner"
)

func (tk *Toolkit) convertOfficeToPDF(ctx context.Context, in Input, outputDir string) ([]string, error) {
	pair := in.Recipe.Pair()
	scratch, cleanup, err := scratchDir(outputDir, "office")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	pdfPath, err := tk.officePDF(ctx, pair, in.Path, scratch, "pdf")
	if err != nil {
		return nil, err
	}
	dest := filepath.Join(outputDir, in.Base()+".pdf")
	if err := moveFile(pdfPath, dest); err != nil {
		return nil, storageErr(pair, "move output", err)
	}
	return []string{dest}, nil
}

func (tk *Toolkit) convertOfficeToImages(ctx context.Context, in Input, outputDir string) ([]string, error) {
	pair := in.Recipe.Pair()
	scratch, cleanup, err := scratchDir(outputDir, "office")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	pdfPath, err := tk.officePDF(ctx, pair, in.Path, scratch, "pdf")
	if err != nil {
		return nil, err
	}
	if _, err := pageCount(pair, pdfPath); err != nil {
		return nil, err
	}
	pagesDir := filepath.Join(scratch, "pages")
	if err := os.Mkdir(pagesDir, 0o755); err != nil {
		return nil, storageErr(pair, "create pages dir", err)
	}
	pages, err := tk.renderPages(ctx, pair, pdfPath, pagesDir, in.Recipe.OutputFormat)
	if err != nil {
		return nil, err
	}
	return tk.collect(ctx, pair, pages, outputDir, in.Base(), in.Recipe.OutputFormat)
}

// officePDF runs LibreOffice headless with a throwaway profile so parallel
// conversions never share a user installation lock.
func (tk *Toolkit) officePDF(ctx context.Context, pair, src, scratch, filter string) (string, error) {
	tool, err := tk.require(ctx, deps.OfficeConvert, pair)
	if err != nil {
		return "", err
	}
	return runOffice(ctx, tool, pair, src, scratch, filter)
}

func runOffice(ctx context.Context, tool deps.Tool, pair, src, scratch, filter string) (string, error) {
	profile := filepath.Join(scratch, "profile")
	outDir := filepath.Join(scratch, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", storageErr(pair, "create office dir", err)
	}
	args := []string{
		"--headless", "--norestore", "--nolockcheck",
		"-env:UserInstallation=file://" + profile,
		"--convert-to", filter,
		"--outdir", outDir,
		src,
	}
	if _, err := tool.Run(ctx, args, runner.Options{Dir: scratch}); err != nil {
		return "", err
	}
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	dest := filepath.Join(outDir, base+".pdf")
	if err := requireOutput(pair, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func (tk *Toolkit) convertHTMLToPDF(ctx context.Context, in Input, outputDir string) ([]string, error) {
	pair := in.Recipe.Pair()
	dest := filepath.Join(outputDir, in.Base()+".pdf")

	browser, ok, err := tk.optional(ctx, deps.HTMLPrint)
	if err != nil {
		return nil, err
	}
	if ok {
		abs, err := filepath.Abs(in.Path)
		if err != nil {
			return nil, storageErr(pair, "resolve input", err)
		}
		args := []string{
			"--headless", "--disable-gpu", "--no-sandbox", "--no-pdf-header-footer",
			"--print-to-pdf=" + dest,
			"file://" + abs,
		}
		if _, err := browser.Run(ctx, args, runner.Options{}); err != nil {
			return nil, err
		}
		if err := requireOutput(pair, dest); err != nil {
			return nil, err
		}
		return []string{dest}, nil
	}

	office, ok, err := tk.optional(ctx, deps.OfficeConvert)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, missingEither(pair, deps.HTMLPrint, deps.OfficeConvert)
	}
	tk.fallingBack(ctx, deps.HTMLPrint, "soffice writer_web_pdf_Export")
	scratch, cleanup, err := scratchDir(outputDir, "office")
	if err != nil {
		return nil, err
	}
	defer cleanup()
	pdfPath, err := runOffice(ctx, office, pair, in.Path, scratch, "pdf:writer_web_pdf_Export")
	if err != nil {
		return nil, err
	}
	if err := moveFile(pdfPath, dest); err != nil {
		return nil, storageErr(pair, "move output", err)
	}
	return []string{dest}, nil
}

// pdfImportable lists the image formats pdfcpu can embed directly.
var pdfImportable = map[string]bool{"jpg": true, "jpeg": true, "png": true, "tif": true, "tiff": true, "webp": true}

func (tk *Toolkit) convertImageToPDF(ctx context.Context, in Input, outputDir string) ([]string, error) {
	pair := in.Recipe.Pair()
	dest := filepath.Join(outputDir, in.Base()+".pdf")

	tool, ok, err := tk.optional(ctx, deps.ImageConvert)
	if err != nil {
		return nil, err
	}
	if ok {
		if _, err := tool.Run(ctx, []string{in.Path, dest}, runner.Options{}); err != nil {
			return nil, err
		}
		if err := requireOutput(pair, dest); err != nil {
			return nil, err
		}
		return []string{dest}, nil
	}

	if !pdfImportable[in.Ext()] {
		return nil, missing(pair, deps.ImageConvert, "The built-in converter cannot embed "+in.Ext()+" files.", nil)
	}
	tk.fallingBack(ctx, deps.ImageConvert, "pdfcpu import")
	if err := api.ImportImagesFile([]string{in.Path}, dest, pdfcpu.DefaultImportConfig(), pdfConfig()); err != nil {
		_ = os.Remove(dest)
		return nil, invalid(pair, "The image could not be placed in a PDF.", err)
	}
	return []string{dest}, nil
}
