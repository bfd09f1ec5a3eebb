package storage

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
)

func TestNewPDF(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"strips extension", "report.pdf", "report"},
		{"keeps inner dots", "2024.01.report.pdf", "2024.01.report"},
		{"no extension", "report", "report"},
		{"strips directories", "/tmp/downloads/report.pdf", "report"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := NewPDF(tt.filename, []byte("%PDF-1.4"))
			if doc.Name != tt.want {
				t.Errorf("Name = %q, want %q", doc.Name, tt.want)
			}
			if doc.ID == "" {
				t.Error("expected non-empty document ID")
			}
			if doc.Parent != "" {
				t.Errorf("Parent = %q, want empty", doc.Parent)
			}
		})
	}
}

func TestNewPDFUniqueIDs(t *testing.T) {
	a := NewPDF("a.pdf", nil)
	b := NewPDF("b.pdf", nil)
	if a.ID == b.ID {
		t.Errorf("documents share ID %q", a.ID)
	}
}

func TestDocumentPayload(t *testing.T) {
	pdf := []byte("%PDF-1.4 test content")
	doc := NewPDF("report.pdf", pdf)

	payload, err := doc.payload()
	if err != nil {
		t.Fatalf("payload() error = %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		t.Fatalf("payload is not a zip archive: %v", err)
	}

	want := map[string]bool{
		doc.ID + ".content":  true,
		doc.ID + ".pagedata": true,
		doc.ID + ".pdf":      true,
	}
	for _, f := range zr.File {
		if !want[f.Name] {
			t.Errorf("unexpected archive entry %q", f.Name)
		}
		delete(want, f.Name)
	}
	for name := range want {
		t.Errorf("archive entry %q missing", name)
	}

	rc, err := zr.Open(doc.ID + ".pdf")
	if err != nil {
		t.Fatalf("failed to open pdf entry: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("failed to read pdf entry: %v", err)
	}
	if !bytes.Equal(data, pdf) {
		t.Errorf("pdf entry = %q, want %q", data, pdf)
	}
}
