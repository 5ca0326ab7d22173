package convert

import (
	"fileconv/internal/recipes"
)

// Router maps recipe families onto handlers.
type Router struct {
	single map[recipes.Family]Handler
	batch  map[recipes.Family]BatchHandler
}

// NewRouter registers every built-in family against tk.
func NewRouter(tk *Toolkit) *Router {
	r := &Router{
		single: map[recipes.Family]Handler{
			recipes.FamilyOCRText:       HandlerFunc(tk.convertImageToText),
			recipes.FamilyOCRTranslate:  HandlerFunc(tk.translateImage),
			recipes.FamilyOCRDocx:       HandlerFunc(tk.convertImageToDocx),
			recipes.FamilyOCRXlsx:       HandlerFunc(tk.convertImageToSheet),
			recipes.FamilyPDFText:       HandlerFunc(tk.convertPDFToText),
			recipes.FamilyPDFTables:     HandlerFunc(tk.extractTables),
			recipes.FamilyPDFImage:      HandlerFunc(tk.convertPDFToImages),
			recipes.FamilyPDFHTML:       HandlerFunc(tk.convertPDFToHTML),
			recipes.FamilyPDFSplit:      HandlerFunc(tk.splitPDF),
			recipes.FamilyOfficePDF:     HandlerFunc(tk.convertOfficeToPDF),
			recipes.FamilyOfficeImage:   HandlerFunc(tk.convertOfficeToImages),
			recipes.FamilyHTMLPDF:       HandlerFunc(tk.convertHTMLToPDF),
			recipes.FamilyImage:         HandlerFunc(tk.convertImage),
			recipes.FamilyImagePDF:      HandlerFunc(tk.convertImageToPDF),
			recipes.FamilySVG:           HandlerFunc(tk.convertSVG),
			recipes.FamilyCSVJSON:       HandlerFunc(tk.convertCSVToJSON),
			recipes.FamilyBarcodeDecode: HandlerFunc(tk.decodeBarcode),
			recipes.FamilyBarcodeEncode: HandlerFunc(tk.encodeBarcode),
		},
		batch: map[recipes.Family]BatchHandler{
			recipes.FamilyPDFMerge: BatchHandlerFunc(tk.mergePDFs),
		},
	}
	return r
}

// Supports reports whether a handler exists for f.
func (r *Router) Supports(f recipes.Family) bool {
	if _, ok := r.single[f]; ok {
		return true
	}
	_, ok := r.batch[f]
	return ok
}

// Handler returns the per-file handler for f.
func (r *Router) Handler(f recipes.Family) (Handler, bool) {
	h, ok := r.single[f]
	return h, ok
}

// Batch returns the whole-job handler for f.
func (r *Router) Batch(f recipes.Family) (BatchHandler, bool) {
	h, ok := r.batch[f]
	return h, ok
}

// Register replaces the handler for f. Tests use it to stub conversions.
func (r *Router) Register(f recipes.Family, h Handler) {
	delete(r.batch, f)
	r.single[f] = h
}
