// Package message parses fetched mail and stages qualifying PDF
// attachments into local scratch storage.
package message

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

const pdfContentType = "application/pdf"

// Attachment is one staged PDF: the original filename plus the scratch
// path its bytes were written to.
type Attachment struct {
	Filename string
	Path     string
}

var wordDecoder = mime.WordDecoder{CharsetReader: charset.Reader}

// DecodeSubject decodes RFC 2047 encoded words in a raw subject
// header. Plain ASCII comes back unchanged; decode failures degrade to
// the raw input. Used for logging only.
func DecodeSubject(raw string) string {
	decoded, err := wordDecoder.DecodeHeader(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(decoded)
}

// Subject extracts the decoded subject of a raw message. Unparseable
// messages yield an empty subject rather than an error.
func Subject(raw []byte) string {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	defer mr.Close()

	subject, err := mr.Header.Subject()
	if err != nil {
		return DecodeSubject(mr.Header.Get("Subject"))
	}
	return strings.TrimSpace(subject)
}

// ExtractPDFs walks the message parts and writes each qualifying PDF
// to downloadDir, overwriting any existing file of the same name. A
// part qualifies when it declares a Content-Disposition, its content
// type is application/pdf and it carries a non-empty filename.
// Everything else is silently skipped, and a message that cannot be
// parsed at all yields no attachments.
func ExtractPDFs(raw []byte, downloadDir string) ([]Attachment, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, nil
	}
	defer mr.Close()

	var attachments []Attachment
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		filename, ok := attachmentFilename(part.Header)
		if !ok {
			continue
		}

		data, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}

		path := filepath.Join(downloadDir, filepath.Base(filename))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return attachments, fmt.Errorf("failed to save attachment %s: %w", filename, err)
		}

		attachments = append(attachments, Attachment{
			Filename: filename,
			Path:     path,
		})
	}

	return attachments, nil
}

// attachmentFilename reports whether a part is a qualifying PDF and
// returns its filename. Inline parts qualify only when they carry an
// explicit Content-Disposition of their own.
func attachmentFilename(header mail.PartHeader) (string, bool) {
	var filename, contentType string

	switch h := header.(type) {
	case *mail.AttachmentHeader:
		filename, _ = h.Filename()
		contentType, _, _ = h.ContentType()
	case *mail.InlineHeader:
		disposition := h.Get("Content-Disposition")
		if disposition == "" {
			return "", false
		}
		contentType, _, _ = h.ContentType()
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			filename = params["filename"]
		}
	default:
		return "", false
	}

	if contentType != pdfContentType || filename == "" {
		return "", false
	}
	return filename, true
}
