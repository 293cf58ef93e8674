// Package html provides a Normaliser implementation for HTML documents.
// It parses the markup with goquery and keeps the readable text, one line
// per block element.
package html
