// Package sync runs the single mailbox-to-cloud synchronization pass:
// authenticate with storage, list unread mail, stage PDF attachments,
// upload them, and mark fully handled messages as read.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	goimap "github.com/emersion/go-imap/v2"

	"github.com/shano/email-to-remarkable-sync/internal/config"
	"github.com/shano/email-to-remarkable-sync/internal/message"
	"github.com/shano/email-to-remarkable-sync/internal/storage"
)

// Mailbox is the mail surface one pass needs.
type Mailbox interface {
	UnreadUIDs() ([]goimap.UID, error)
	FetchRaw(uid goimap.UID) ([]byte, error)
	MarkRead(uid goimap.UID) error
	Close() error
}

// Storage is the document-store surface one pass needs.
type Storage interface {
	Authenticate(ctx context.Context) error
	Folders(ctx context.Context) ([]storage.Folder, error)
	Upload(ctx context.Context, doc *storage.Document) error
}

// Syncer executes one synchronization pass. It is single-threaded and
// performs no retries; the calling scheduler re-invoking the program
// is the only retry mechanism.
type Syncer struct {
	cfg    *config.Config
	store  Storage
	dial   func() (Mailbox, error)
	logger *slog.Logger
}

func New(cfg *config.Config, store Storage, dial func() (Mailbox, error), logger *slog.Logger) *Syncer {
	return &Syncer{
		cfg:    cfg,
		store:  store,
		dial:   dial,
		logger: logger,
	}
}

// Run performs one pass. Per-attachment upload failures only leave the
// owning message unread; any other failure aborts the pass. The
// mailbox session, once opened, is released in all paths.
func (s *Syncer) Run(ctx context.Context) error {
	if err := os.MkdirAll(s.cfg.DownloadDir, 0755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}
	s.logger.Debug("staging downloads", "dir", s.cfg.DownloadDir)

	if err := s.store.Authenticate(ctx); err != nil {
		return fmt.Errorf("failed to connect to reMarkable: %w", err)
	}
	s.logger.Info("authenticated with reMarkable cloud")

	folders, err := s.store.Folders(ctx)
	if err != nil {
		return fmt.Errorf("failed to sync folder listing: %w", err)
	}
	s.logger.Debug("folder listing synced", "folders", len(folders))

	mbox, err := s.dial()
	if err != nil {
		return fmt.Errorf("failed to open mailbox: %w", err)
	}
	defer mbox.Close()
	s.logger.Info("opened mailbox", "mailbox", s.cfg.Mailbox)

	uids, err := mbox.UnreadUIDs()
	if err != nil {
		return fmt.Errorf("failed to search unread messages: %w", err)
	}
	if len(uids) == 0 {
		s.logger.Info("no unread messages, nothing to do")
		return nil
	}
	s.logger.Info("found unread messages", "count", len(uids))

	for _, uid := range uids {
		if err := s.processMessage(ctx, mbox, folders, uid); err != nil {
			return err
		}
	}

	return nil
}

func (s *Syncer) processMessage(ctx context.Context, mbox Mailbox, folders []storage.Folder, uid goimap.UID) error {
	raw, err := mbox.FetchRaw(uid)
	if err != nil {
		return fmt.Errorf("failed to fetch message %d: %w", uid, err)
	}

	logger := s.logger.With("uid", uint32(uid), "subject", message.Subject(raw))
	logger.Info("processing message")

	attachments, err := message.ExtractPDFs(raw, s.cfg.DownloadDir)
	if err != nil {
		return fmt.Errorf("failed to extract attachments from message %d: %w", uid, err)
	}

	if len(attachments) == 0 {
		logger.Info("no PDF attachments, marking as read")
		return markRead(mbox, uid)
	}
	logger.Info("downloaded attachments", "count", len(attachments))

	allSucceeded := true
	for _, att := range attachments {
		if !s.upload(ctx, folders, att, logger) {
			allSucceeded = false
			continue
		}
		// Only a successful upload releases the scratch file; failed
		// ones stay in place so nothing is silently lost.
		if err := os.Remove(att.Path); err != nil {
			logger.Warn("failed to remove scratch file", "file", att.Path, "error", err)
		}
	}

	if allSucceeded {
		logger.Info("all attachments uploaded, marking as read")
		return markRead(mbox, uid)
	}

	logger.Warn("some attachments failed to upload, leaving message unread for retry")
	return nil
}

// upload is the error boundary for a single attachment: every failure
// is logged and reported as false, never propagated.
func (s *Syncer) upload(ctx context.Context, folders []storage.Folder, att message.Attachment, logger *slog.Logger) bool {
	data, err := os.ReadFile(att.Path)
	if err != nil {
		logger.Error("failed to read attachment", "file", att.Path, "error", err)
		return false
	}

	doc := storage.NewPDF(att.Filename, data)

	if s.cfg.DestFolder != "" {
		found := false
		for _, folder := range folders {
			if folder.Name == s.cfg.DestFolder {
				doc.Parent = folder.ID
				found = true
				break
			}
		}
		if !found {
			logger.Warn("destination folder not found, uploading to root", "folder", s.cfg.DestFolder)
		}
	}

	logger.Info("uploading document", "name", doc.Name)
	if err := s.store.Upload(ctx, doc); err != nil {
		logger.Error("upload failed", "name", doc.Name, "error", err)
		return false
	}

	return true
}

func markRead(mbox Mailbox, uid goimap.UID) error {
	if err := mbox.MarkRead(uid); err != nil {
		return fmt.Errorf("failed to mark message %d as read: %w", uid, err)
	}
	return nil
}
