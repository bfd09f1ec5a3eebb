package storage

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Document is a not-yet-submitted remote document built from raw PDF
// bytes.
type Document struct {
	ID     string
	Name   string
	Parent string

	data []byte
}

// NewPDF builds a document from PDF bytes. The display name is the
// base filename with its extension stripped.
func NewPDF(filename string, data []byte) *Document {
	base := filepath.Base(filename)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	return &Document{
		ID:   uuid.NewString(),
		Name: name,
		data: data,
	}
}

// payload assembles the archive the upload endpoint expects: the PDF
// plus content and pagedata entries keyed by the document ID.
func (d *Document) payload() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	entries := []struct {
		name string
		data []byte
	}{
		{d.ID + ".content", []byte(`{"extraMetadata":{},"fileType":"pdf","lastOpenedPage":0,"pageCount":0}`)},
		{d.ID + ".pagedata", nil},
		{d.ID + ".pdf", d.data},
	}

	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			return nil, fmt.Errorf("failed to build upload archive: %w", err)
		}
		if _, err := w.Write(e.data); err != nil {
			return nil, fmt.Errorf("failed to build upload archive: %w", err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload archive: %w", err)
	}

	return buf.Bytes(), nil
}
