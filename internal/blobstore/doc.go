// Package blobstore provides the object store the conversion pipeline reads
// uploads from and writes job records and artifacts to. Keys are
// slash-separated and namespaced per job (temp/<jobId>/...); the fs backend
// maps them onto a directory tree and the sqlite backend onto rows.
package blobstore
