// Package translate is a LibreTranslate client used by the image-translator
// recipe after text recognition.
package translate
