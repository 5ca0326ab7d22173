package recipes

import "strings"

var mimeByExtension = map[string]string{
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"csv":  "text/csv",
	"txt":  "text/plain",
	"md":   "text/markdown",
	"html": "text/html",
	"json": "application/json",
	"xml":  "application/xml",
	"zip":  "application/zip",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"jfif": "image/jpeg",
	"svg":  "image/svg+xml",
	"webp": "image/webp",
	"avif": "image/avif",
	"heic": "image/heic",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"bmp":  "image/bmp",
}

// MIMEByExtension returns the content type for a bare extension, or
// application/octet-stream when it is unknown.
func MIMEByExtension(ext string) string {
	if mime, ok := mimeByExtension[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))]; ok {
		return mime
	}
	return "application/octet-stream"
}

func uniqueLower(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func buildAccept(extensions []string, extraMIME ...string) Accept {
	exts := uniqueLower(extensions)
	mimes := append([]string{}, extraMIME...)
	for _, ext := range exts {
		if mime, ok := mimeByExtension[ext]; ok {
			mimes = append(mimes, mime)
		}
	}
	return Accept{Extensions: exts, MIMETypes: uniqueLower(mimes)}
}
