// Package imap adapts go-imap to the narrow surface one
// synchronization pass needs: list unread, fetch raw, mark read.
package imap

import (
	"fmt"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/shano/email-to-remarkable-sync/internal/config"
)

type Client struct {
	client *imapclient.Client
	config *config.Config
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		config: cfg,
	}
}

// withDefaultPort appends the IMAPS port when the server address
// carries none.
func withDefaultPort(server string) string {
	if strings.Contains(server, ":") {
		return server
	}
	return server + ":993"
}

// Connect dials the server over TLS, authenticates and selects the
// configured mailbox. The session stays scoped to that mailbox.
func (c *Client) Connect() error {
	addr := withDefaultPort(c.config.IMAPServer)

	client, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := client.Login(c.config.Username, c.config.Password).Wait(); err != nil {
		client.Close()
		return fmt.Errorf("IMAP login failed: %w", err)
	}

	if _, err := client.Select(c.config.Mailbox, nil).Wait(); err != nil {
		client.Close()
		return fmt.Errorf("failed to select mailbox %s: %w", c.config.Mailbox, err)
	}

	c.client = client
	return nil
}

// Close logs out and releases the connection. Safe to call when
// Connect never succeeded.
func (c *Client) Close() error {
	if c.client != nil {
		if err := c.client.Logout().Wait(); err != nil {
			// Ignore logout errors, just close
		}
		return c.client.Close()
	}
	return nil
}

// UnreadUIDs returns the UIDs of unseen messages in server order.
func (c *Client) UnreadUIDs() ([]imap.UID, error) {
	if c.client == nil {
		return nil, fmt.Errorf("not connected")
	}

	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}

	searchData, err := c.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("search for unread messages failed: %w", err)
	}

	return searchData.AllUIDs(), nil
}

// FetchRaw returns the full raw message for one UID. The body section
// is peeked so fetching alone never sets \Seen.
func (c *Client) FetchRaw(uid imap.UID) ([]byte, error) {
	if c.client == nil {
		return nil, fmt.Errorf("not connected")
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOptions := &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := c.client.Fetch(imap.UIDSetNum(uid), fetchOptions)
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return nil, fmt.Errorf("message %d not found", uid)
	}

	buf, err := msg.Collect()
	if err != nil {
		return nil, fmt.Errorf("failed to collect message %d: %w", uid, err)
	}

	raw := buf.FindBodySection(bodySection)
	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}

	return raw, nil
}

// MarkRead sets \Seen on one message. Idempotent.
func (c *Client) MarkRead(uid imap.UID) error {
	if c.client == nil {
		return fmt.Errorf("not connected")
	}

	storeCmd := c.client.Store(imap.UIDSetNum(uid), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := storeCmd.Close(); err != nil {
		return fmt.Errorf("failed to mark message %d as read: %w", uid, err)
	}

	return nil
}
