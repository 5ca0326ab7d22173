// Package convert holds the conversion routines behind every recipe family.
//
// Each routine prefers an external tool resolved through deps and falls back
// to an in-process implementation only when that tool is not installed and
// the fallback can handle the input. Routines that yield several files
// (pages of a PDF, say) return one zip; a single page is returned as a plain
// file.
package convert
