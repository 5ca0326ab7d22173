// Package archive bundles multiple produced files into a single zip
// artifact. The external zip tool is used when installed; otherwise the
// archive is written in-process.
package archive
