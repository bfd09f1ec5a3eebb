// Package storage is a client for the reMarkable cloud document
// storage service: token resolution, authentication, folder listing
// and document upload.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shano/email-to-remarkable-sync/internal/log"
)

const (
	DefaultAuthHost    = "https://webapp-production-dot-remarkable-production.appspot.com"
	DefaultStorageHost = "https://document-storage-production-dot-remarkable-production.appspot.com"

	userTokenPath    = "/token/json/2/user/new"
	docsPath         = "/document-storage/json/2/docs"
	uploadPath       = "/document-storage/json/2/upload/request"
	updateStatusPath = "/document-storage/json/2/upload/update-status"
)

// Options configure a Client. SyncFile and LogFile are the adapter
// housekeeping paths passed through from configuration; either may be
// empty to disable it.
type Options struct {
	Token       string
	AuthHost    string
	StorageHost string
	SyncFile    string
	LogFile     string
	HTTPClient  *http.Client
}

type Client struct {
	http        *http.Client
	authHost    string
	storageHost string
	deviceToken string
	userToken   string
	syncFile    string

	wire       *slog.Logger
	wireCloser io.Closer

	folders []Folder
}

func NewClient(opts Options) *Client {
	c := &Client{
		http:        opts.HTTPClient,
		authHost:    opts.AuthHost,
		storageHost: opts.StorageHost,
		deviceToken: opts.Token,
		syncFile:    opts.SyncFile,
		wire:        slog.New(slog.DiscardHandler),
	}

	if c.http == nil {
		c.http = &http.Client{Timeout: 60 * time.Second}
	}
	if c.authHost == "" {
		c.authHost = DefaultAuthHost
	}
	if c.storageHost == "" {
		c.storageHost = DefaultStorageHost
	}

	if opts.LogFile != "" {
		if wire, closer, err := log.NewFileLogger(opts.LogFile); err == nil {
			c.wire = wire
			c.wireCloser = closer
		}
	}

	return c
}

// Close releases the wire log file, if one was opened. The service
// itself has no close contract beyond process exit.
func (c *Client) Close() error {
	if c.wireCloser != nil {
		return c.wireCloser.Close()
	}
	return nil
}

// Authenticate exchanges the device token for a session token. Must be
// called before Folders or Upload.
func (c *Client) Authenticate(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authHost+userTokenPath, nil)
	if err != nil {
		return fmt.Errorf("failed to build auth request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.deviceToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("authentication request failed: %w", err)
	}
	defer resp.Body.Close()
	c.wire.Info("authenticate", "status", resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("authentication failed: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read session token: %w", err)
	}

	c.userToken = strings.TrimSpace(string(body))
	if c.userToken == "" {
		return fmt.Errorf("authentication returned an empty session token")
	}

	return nil
}

// Folders returns the collections known to the storage service. The
// listing is fetched once per client and reused; it also refreshes the
// sync-state file.
func (c *Client) Folders(ctx context.Context) ([]Folder, error) {
	if c.folders != nil {
		return c.folders, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.storageHost+docsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build listing request: %w", err)
	}

	var items []docItem
	if err := c.doJSON(req, &items); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	folders := []Folder{}
	for _, item := range items {
		if item.Type == collectionType {
			folders = append(folders, Folder{ID: item.ID, Name: item.VisibleName})
		}
	}

	c.folders = folders
	c.saveSyncState(len(items))
	return folders, nil
}

// Upload submits one document: reserve an upload slot, put the blob,
// then publish its metadata.
func (c *Client) Upload(ctx context.Context, doc *Document) error {
	request := []uploadRequest{{
		ID:      doc.ID,
		Type:    documentType,
		Version: 1,
	}}

	req, err := c.newJSONRequest(ctx, http.MethodPut, c.storageHost+uploadPath, request)
	if err != nil {
		return err
	}

	var responses []uploadResponse
	if err := c.doJSON(req, &responses); err != nil {
		return fmt.Errorf("upload request failed: %w", err)
	}
	if len(responses) == 0 || !responses[0].Success {
		return fmt.Errorf("upload request rejected: %s", responseMessage(responses))
	}

	payload, err := doc.payload()
	if err != nil {
		return err
	}

	blobReq, err := http.NewRequestWithContext(ctx, http.MethodPut, responses[0].BlobURLPut, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build blob request: %w", err)
	}

	blobResp, err := c.http.Do(blobReq)
	if err != nil {
		return fmt.Errorf("blob upload failed: %w", err)
	}
	defer blobResp.Body.Close()
	c.wire.Info("put blob", "document", doc.ID, "status", blobResp.StatusCode, "bytes", len(payload))

	if blobResp.StatusCode != http.StatusOK {
		return fmt.Errorf("blob upload failed: %s", blobResp.Status)
	}

	update := []metadataUpdate{{
		ID:             doc.ID,
		Parent:         doc.Parent,
		VisibleName:    doc.Name,
		Type:           documentType,
		Version:        1,
		ModifiedClient: time.Now().UTC().Format(time.RFC3339),
	}}

	updateReq, err := c.newJSONRequest(ctx, http.MethodPut, c.storageHost+updateStatusPath, update)
	if err != nil {
		return err
	}

	var updateResponses []uploadResponse
	if err := c.doJSON(updateReq, &updateResponses); err != nil {
		return fmt.Errorf("metadata update failed: %w", err)
	}
	if len(updateResponses) == 0 || !updateResponses[0].Success {
		return fmt.Errorf("metadata update rejected: %s", responseMessage(updateResponses))
	}

	return nil
}

func (c *Client) newJSONRequest(ctx context.Context, method, url string, body interface{}) (*http.Request, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) doJSON(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.userToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	c.wire.Info(req.Method+" "+req.URL.Path, "status", resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func responseMessage(responses []uploadResponse) string {
	if len(responses) == 0 || responses[0].Message == "" {
		return "no response"
	}
	return responses[0].Message
}

// Sync-state bookkeeping. The file records the last successful listing
// so operators can see when the adapter last talked to the service;
// parse errors are treated as an absent state.

type syncState struct {
	LastSync  int64 `json:"last_sync"`
	Documents int   `json:"documents"`
}

func (c *Client) saveSyncState(documents int) {
	if c.syncFile == "" {
		return
	}

	previous := c.loadSyncState()
	if previous != nil {
		c.wire.Info("refreshing sync state",
			"previous_sync", time.Unix(previous.LastSync, 0).UTC().Format(time.RFC3339),
			"previous_documents", previous.Documents)
	}

	data, err := json.Marshal(&syncState{
		LastSync:  time.Now().Unix(),
		Documents: documents,
	})
	if err != nil {
		return
	}
	_ = os.WriteFile(c.syncFile, data, 0600)
}

func (c *Client) loadSyncState() *syncState {
	data, err := os.ReadFile(c.syncFile)
	if err != nil {
		return nil
	}

	state := &syncState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil
	}
	return state
}
