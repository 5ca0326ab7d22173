// Package language maps the language names and codes accepted in
// configuration onto the forms each backend expects: ISO 639-1 codes for the
// translation service and traineddata names for tesseract.
package language
