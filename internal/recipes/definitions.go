package recipes

var commonImageExtensions = []string{"png", "jpg", "jpeg", "gif", "jfif", "svg", "webp", "avif", "heic", "tif", "tiff", "bmp"}

const (
	categoryImageDoc    = "Image to Document"
	categoryImageFormat = "Image Format Converters"
	categoryImagePDF    = "Image to PDF"
	categoryDocImage    = "Document to Image"
	categoryDocConvert  = "Document Converters"
	categoryPDFTools    = "PDF Tools"
	categoryScanCode    = "Scan Codes"
	categoryData        = "Data Tools"
)

type def struct {
	slug, title, description, category string
	tags                               []string
	extensions                         []string
	extraMIME                          []string
	output                             string
	family                             Family
	batch                              bool
	minInputs                          int
	minInputsMessage                   string
	featured                           bool
}

func (d def) recipe() Recipe {
	return Recipe{
		Slug:             d.slug,
		Title:            d.title,
		Description:      d.description,
		Category:         d.category,
		Tags:             d.tags,
		Accept:           buildAccept(d.extensions, d.extraMIME...),
		OutputFormat:     d.output,
		Family:           d.family,
		Batch:            d.batch,
		MinInputs:        d.minInputs,
		MinInputsMessage: d.minInputsMessage,
		Featured:         d.featured,
	}
}

var definitions = []def{
	{slug: "image-to-text", title: "Image to Text", description: "Extract text from images.", category: categoryImageDoc,
		tags: []string{"image", "ocr", "text"}, extensions: commonImageExtensions, extraMIME: []string{"image/*"},
		output: "txt", family: FamilyOCRText, featured: true},
	{slug: "jpeg-to-text", title: "JPEG to Text", description: "OCR text from JPEGs.", category: categoryImageDoc,
		tags: []string{"image", "ocr", "text"}, extensions: []string{"jpeg", "jpg"}, output: "txt", family: FamilyOCRText},
	{slug: "png-to-text", title: "PNG to Text", description: "Extract text from PNG files.", category: categoryImageDoc,
		tags: []string{"image", "ocr", "text"}, extensions: []string{"png"}, output: "txt", family: FamilyOCRText},
	{slug: "pdf-to-text", title: "PDF to Text", description: "Extract selectable text from PDFs.", category: categoryDocConvert,
		tags: []string{"pdf", "text", "extract"}, extensions: []string{"pdf"}, output: "txt", family: FamilyPDFText},
	{slug: "image-translator", title: "Image Translator", description: "Translate text inside images.", category: categoryImageDoc,
		tags: []string{"image", "ocr", "translate"}, extensions: commonImageExtensions, extraMIME: []string{"image/*"},
		output: "txt", family: FamilyOCRTranslate},
	{slug: "jpg-to-word", title: "JPG to Word", description: "Convert images into editable Word docs.", category: categoryImageDoc,
		tags: []string{"image", "doc", "convert"}, extensions: []string{"jpg", "jpeg"}, output: "docx", family: FamilyOCRDocx},
	{slug: "png-to-document", title: "PNG to Document", description: "Turn scans into editable docs.", category: categoryImageDoc,
		tags: []string{"image", "doc", "convert"}, extensions: []string{"png"}, output: "docx", family: FamilyOCRDocx},
	{slug: "jpg-to-excel", title: "JPG to Excel", description: "Turn tables into spreadsheets.", category: categoryImageDoc,
		tags: []string{"image", "spreadsheet", "convert"}, extensions: []string{"jpg", "jpeg"}, output: "xlsx", family: FamilyOCRXlsx},
	{slug: "pdf-to-excel", title: "PDF to Excel", description: "Extract tables into Excel.", category: categoryDocConvert,
		tags: []string{"pdf", "spreadsheet", "extract"}, extensions: []string{"pdf"}, output: "xlsx", family: FamilyPDFTables, featured: true},
	{slug: "pdf-to-csv", title: "PDF to CSV", description: "Extract data tables to CSV.", category: categoryDocConvert,
		tags: []string{"pdf", "data", "extract"}, extensions: []string{"pdf"}, output: "csv", family: FamilyPDFTables},
	{slug: "word-to-pdf", title: "Word to PDF", description: "Share documents as PDF.", category: categoryDocConvert,
		tags: []string{"doc", "pdf", "convert"}, extensions: []string{"docx"}, output: "pdf", family: FamilyOfficePDF, featured: true},
	{slug: "word-to-jpg", title: "Word to JPG", description: "Render documents as images.", category: categoryDocImage,
		tags: []string{"doc", "image", "convert"}, extensions: []string{"docx"}, output: "jpg", family: FamilyOfficeImage},
	{slug: "excel-to-jpg", title: "Excel to JPG", description: "Share sheets as images.", category: categoryDocImage,
		tags: []string{"spreadsheet", "image", "convert"}, extensions: []string{"xlsx"}, output: "jpg", family: FamilyOfficeImage},
	{slug: "html-to-pdf", title: "HTML to PDF", description: "Print web pages to PDF.", category: categoryDocConvert,
		tags: []string{"html", "pdf", "convert"}, extensions: []string{"html"}, output: "pdf", family: FamilyHTMLPDF},
	{slug: "pdf-to-html", title: "PDF to HTML", description: "Export PDFs as web pages.", category: categoryDocConvert,
		tags: []string{"pdf", "html", "convert"}, extensions: []string{"pdf"}, output: "html", family: FamilyPDFHTML},
	{slug: "pdf-to-jpg", title: "PDF to JPG", description: "Export pages as images.", category: categoryDocImage,
		tags: []string{"pdf", "image", "convert"}, extensions: []string{"pdf"}, output: "jpg", family: FamilyPDFImage, featured: true},
	{slug: "merge-pdf", title: "Merge PDF", description: "Combine multiple PDFs.", category: categoryPDFTools,
		tags: []string{"pdf", "merge"}, extensions: []string{"pdf"}, output: "pdf", family: FamilyPDFMerge,
		batch: true, minInputs: 2, minInputsMessage: "Merge PDF requires at least two files."},
	{slug: "split-pdf", title: "Split PDF", description: "Split a PDF into separate pages.", category: categoryPDFTools,
		tags: []string{"pdf", "split"}, extensions: []string{"pdf"}, output: "pdf", family: FamilyPDFSplit},
	{slug: "jpeg-to-png", title: "JPEG to PNG", description: "Swap formats without losing clarity.", category: categoryImageFormat,
		tags: []string{"image", "convert"}, extensions: []string{"jpeg", "jpg"}, output: "png", family: FamilyImage},
	{slug: "png-to-jpg", title: "PNG to JPG", description: "Optimize images for the web.", category: categoryImageFormat,
		tags: []string{"image", "convert"}, extensions: []string{"png"}, output: "jpg", family: FamilyImage},
	{slug: "heic-to-jpg", title: "HEIC to JPG", description: "Open iPhone photos anywhere.", category: categoryImageFormat,
		tags: []string{"image", "convert"}, extensions: []string{"heic"}, output: "jpg", family: FamilyImage},
	{slug: "tiff-to-pdf", title: "TIFF to PDF", description: "Bundle TIFF scans into PDF.", category: categoryImagePDF,
		tags: []string{"image", "pdf", "convert"}, extensions: []string{"tiff", "tif"}, output: "pdf", family: FamilyImagePDF},
	{slug: "jpg-to-pdf", title: "JPG to PDF", description: "Bundle images into a PDF.", category: categoryImagePDF,
		tags: []string{"image", "pdf", "convert"}, extensions: []string{"jpg", "jpeg"}, output: "pdf", family: FamilyImagePDF, featured: true},
	{slug: "svg-to-png", title: "SVG to PNG", description: "Rasterize vector graphics.", category: categoryImageFormat,
		tags: []string{"image", "convert"}, extensions: []string{"svg"}, output: "png", family: FamilySVG},
	{slug: "csv-to-json", title: "CSV to JSON", description: "Convert structured data quickly.", category: categoryData,
		tags: []string{"data", "convert"}, extensions: []string{"csv"}, output: "json", family: FamilyCSVJSON},
	{slug: "qr-code-reader", title: "QR Code Reader", description: "Decode QR codes and barcodes in images.", category: categoryScanCode,
		tags: []string{"image", "scan", "qr"}, extensions: []string{"png", "jpg", "jpeg"}, output: "txt", family: FamilyBarcodeDecode},
	{slug: "qr-code-generator", title: "QR Code Generator", description: "Turn text into a QR code image.", category: categoryScanCode,
		tags: []string{"text", "qr"}, extensions: []string{"txt"}, output: "png", family: FamilyBarcodeEncode},
}

// Definitions returns a copy of the built-in recipe table in display order.
func Definitions() []Recipe {
	out := make([]Recipe, 0, len(definitions))
	for _, d := range definitions {
		out = append(out, d.recipe())
	}
	return out
}

// Categories lists the display categories in order.
func Categories() []string {
	return []string{
		categoryImageDoc, categoryImageFormat, categoryImagePDF, categoryDocImage,
		categoryDocConvert, categoryPDFTools, categoryScanCode, categoryData,
	}
}
