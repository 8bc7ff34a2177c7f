package model

import (
	"github.com/dhcgn/mht-to-html/mht"
)

// Document is a single .mht archive read from disk.
type Document struct {
	Path string
	Name string
	Hash string
	Size int64
	Raw  []byte
}

// Envelope wraps a document alongside an optional error encountered while reading.
type Envelope struct {
	Document Document
	Err      error
}

// Conversion pairs a source document with its converted output.
type Conversion struct {
	Document Document
	Result   mht.Result
}
