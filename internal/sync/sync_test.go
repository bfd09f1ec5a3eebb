package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	goimap "github.com/emersion/go-imap/v2"

	"github.com/shano/email-to-remarkable-sync/internal/config"
	"github.com/shano/email-to-remarkable-sync/internal/storage"
)

type fakeMailbox struct {
	unread   []goimap.UID
	messages map[goimap.UID][]byte
	read     map[goimap.UID]bool
	closed   bool
	fetchErr error
}

func (m *fakeMailbox) UnreadUIDs() ([]goimap.UID, error) {
	return m.unread, nil
}

func (m *fakeMailbox) FetchRaw(uid goimap.UID) ([]byte, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.messages[uid], nil
}

func (m *fakeMailbox) MarkRead(uid goimap.UID) error {
	if m.read == nil {
		m.read = make(map[goimap.UID]bool)
	}
	m.read[uid] = true
	return nil
}

func (m *fakeMailbox) Close() error {
	m.closed = true
	return nil
}

type fakeStorage struct {
	authErr   error
	folders   []storage.Folder
	failNames map[string]bool
	uploads   []*storage.Document
}

func (s *fakeStorage) Authenticate(ctx context.Context) error {
	return s.authErr
}

func (s *fakeStorage) Folders(ctx context.Context) ([]storage.Folder, error) {
	return s.folders, nil
}

func (s *fakeStorage) Upload(ctx context.Context, doc *storage.Document) error {
	if s.failNames[doc.Name] {
		return errors.New("upload failed")
	}
	s.uploads = append(s.uploads, doc)
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		IMAPServer:  "imap.example.com",
		Username:    "user@example.com",
		Password:    "secret",
		Mailbox:     "INBOX",
		DownloadDir: t.TempDir(),
		DestFolder:  "From Email",
	}
}

func newSyncer(cfg *config.Config, store Storage, mbox Mailbox) *Syncer {
	dial := func() (Mailbox, error) { return mbox, nil }
	return New(cfg, store, dial, slog.New(slog.DiscardHandler))
}

// pdfMessage builds a raw multipart message with one PDF attachment
// per filename.
func pdfMessage(filenames ...string) []byte {
	var b strings.Builder
	b.WriteString("From: sender@example.com\r\n")
	b.WriteString("Subject: test message\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/mixed; boundary=\"BOUNDARY\"\r\n")
	b.WriteString("\r\n")
	for _, name := range filenames {
		b.WriteString("--BOUNDARY\r\n")
		fmt.Fprintf(&b, "Content-Type: application/pdf; name=%q\r\n", name)
		fmt.Fprintf(&b, "Content-Disposition: attachment; filename=%q\r\n", name)
		b.WriteString("Content-Transfer-Encoding: base64\r\n")
		b.WriteString("\r\n")
		b.WriteString("JVBERi0xLjQK\r\n")
	}
	b.WriteString("--BOUNDARY--\r\n")
	return []byte(b.String())
}

func plainMessage() []byte {
	return []byte("From: sender@example.com\r\n" +
		"Subject: no attachments\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"Just text.\r\n")
}

func TestRunNoUnreadMessages(t *testing.T) {
	store := &fakeStorage{}
	mbox := &fakeMailbox{}

	err := newSyncer(testConfig(t), store, mbox).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(store.uploads) != 0 {
		t.Errorf("got %d uploads, want 0", len(store.uploads))
	}
	if !mbox.closed {
		t.Error("mailbox was not closed")
	}
}

func TestRunStorageAuthFailure(t *testing.T) {
	store := &fakeStorage{authErr: errors.New("bad token")}
	dialed := false
	dial := func() (Mailbox, error) {
		dialed = true
		return &fakeMailbox{}, nil
	}

	syncer := New(testConfig(t), store, dial, slog.New(slog.DiscardHandler))
	if err := syncer.Run(context.Background()); err == nil {
		t.Fatal("expected error for storage auth failure")
	}
	if dialed {
		t.Error("mailbox was opened despite storage failure")
	}
}

func TestRunMarksReadWithoutAttachments(t *testing.T) {
	store := &fakeStorage{}
	mbox := &fakeMailbox{
		unread:   []goimap.UID{7},
		messages: map[goimap.UID][]byte{7: plainMessage()},
	}

	err := newSyncer(testConfig(t), store, mbox).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !mbox.read[7] {
		t.Error("message without attachments was not marked read")
	}
	if len(store.uploads) != 0 {
		t.Errorf("got %d uploads, want 0", len(store.uploads))
	}
}

func TestRunUploadsAndMarksRead(t *testing.T) {
	cfg := testConfig(t)
	store := &fakeStorage{}
	mbox := &fakeMailbox{
		unread:   []goimap.UID{1},
		messages: map[goimap.UID][]byte{1: pdfMessage("report.pdf")},
	}

	err := newSyncer(cfg, store, mbox).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(store.uploads) != 1 {
		t.Fatalf("got %d uploads, want 1", len(store.uploads))
	}
	if store.uploads[0].Name != "report" {
		t.Errorf("uploaded name = %q, want %q", store.uploads[0].Name, "report")
	}
	// No folder in the listing matches, so the upload is unparented.
	if store.uploads[0].Parent != "" {
		t.Errorf("Parent = %q, want empty", store.uploads[0].Parent)
	}
	if !mbox.read[1] {
		t.Error("message was not marked read after successful upload")
	}
	if !mbox.closed {
		t.Error("mailbox was not closed")
	}

	// The scratch file is deleted after a successful upload.
	if _, err := os.Stat(filepath.Join(cfg.DownloadDir, "report.pdf")); !os.IsNotExist(err) {
		t.Error("scratch file was not removed after successful upload")
	}
}

func TestRunMatchesDestinationFolder(t *testing.T) {
	cfg := testConfig(t)
	cfg.DestFolder = "Test Folder"
	store := &fakeStorage{
		folders: []storage.Folder{
			{ID: "folder-1", Name: "Other"},
			{ID: "folder-2", Name: "Test Folder"},
		},
	}
	mbox := &fakeMailbox{
		unread:   []goimap.UID{1},
		messages: map[goimap.UID][]byte{1: pdfMessage("report.pdf")},
	}

	err := newSyncer(cfg, store, mbox).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(store.uploads) != 1 {
		t.Fatalf("got %d uploads, want 1", len(store.uploads))
	}
	if store.uploads[0].Parent != "folder-2" {
		t.Errorf("Parent = %q, want %q", store.uploads[0].Parent, "folder-2")
	}
}

func TestRunPartialUploadFailure(t *testing.T) {
	cfg := testConfig(t)
	store := &fakeStorage{failNames: map[string]bool{"broken": true}}
	mbox := &fakeMailbox{
		unread:   []goimap.UID{1},
		messages: map[goimap.UID][]byte{1: pdfMessage("good.pdf", "broken.pdf")},
	}

	err := newSyncer(cfg, store, mbox).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if mbox.read[1] {
		t.Error("partially failed message must stay unread")
	}
	if len(store.uploads) != 1 {
		t.Errorf("got %d successful uploads, want 1", len(store.uploads))
	}

	// Only the successful attachment's scratch file is removed.
	if _, err := os.Stat(filepath.Join(cfg.DownloadDir, "good.pdf")); !os.IsNotExist(err) {
		t.Error("successful attachment's scratch file was not removed")
	}
	if _, err := os.Stat(filepath.Join(cfg.DownloadDir, "broken.pdf")); err != nil {
		t.Error("failed attachment's scratch file must stay in place")
	}
}

func TestRunFetchFailureClosesMailbox(t *testing.T) {
	store := &fakeStorage{}
	mbox := &fakeMailbox{
		unread:   []goimap.UID{1},
		fetchErr: errors.New("connection reset"),
	}

	err := newSyncer(testConfig(t), store, mbox).Run(context.Background())
	if err == nil {
		t.Fatal("expected error for fetch failure")
	}
	if !mbox.closed {
		t.Error("mailbox was not closed after pass-aborting error")
	}
}
