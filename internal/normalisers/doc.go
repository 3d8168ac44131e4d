// Package normalisers provides implementations of the Normaliser interface
// for document formats. Each normaliser knows how to extract text content
// and page offsets from a specific MIME type.
package normalisers
