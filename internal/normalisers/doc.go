// Package normalisers provides implementations of the Normaliser interface
// for various document formats. Each normaliser knows how to extract text
// or rows from a specific MIME type.
//
// The Registry picks a normaliser by MIME type, resolving the type from the
// file name when the caller does not know it.
package normalisers
