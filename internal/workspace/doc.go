// Package workspace allocates the per-job scratch directories used while a
// conversion runs. A workspace holds an input directory for downloaded uploads
// and an output directory for produced artifacts; Release removes both.
package workspace
