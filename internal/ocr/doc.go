// Package ocr recognizes text in raster images.
//
// Tesseract is the primary engine. When it is not installed and a cloud OCR
// endpoint is configured, images are submitted to that service instead. The
// cloud protocol is asynchronous:
//
//	POST {url}/v1/documents            raw image bytes  -> {"jobId": "..."}
//	GET  {url}/v1/documents/{jobId}    ?nextToken=...   -> {"status", "lines", "nextToken", "statusMessage"}
//
// Status is one of IN_PROGRESS, SUCCEEDED, PARTIAL_SUCCESS or FAILED. Results
// may be paginated through nextToken. Polling starts at 1.5s, grows by 1.4x
// up to 8s and gives up after 180s.
package ocr
