package cli

import (
	"context"

	"github.com/shano/email-to-remarkable-sync/internal/config"
	"github.com/shano/email-to-remarkable-sync/internal/imap"
	"github.com/shano/email-to-remarkable-sync/internal/storage"
	"github.com/shano/email-to-remarkable-sync/internal/sync"
)

// RunCmd executes one synchronization pass and exits. Scheduling
// repeated passes is the caller's job (cron, systemd timer).
type RunCmd struct{}

func (c *RunCmd) Run(ctx *Context) error {
	cfg, err := config.Load(ctx.Globals.Config)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	token, err := storage.ResolveToken(cfg.Token, cfg.TokenPath)
	if err != nil {
		return err
	}

	store := storage.NewClient(storage.Options{
		Token:    token,
		SyncFile: cfg.SyncFilePath,
		LogFile:  cfg.LogFilePath,
	})
	defer store.Close()

	dial := func() (sync.Mailbox, error) {
		client := imap.NewClient(cfg)
		if err := client.Connect(); err != nil {
			return nil, err
		}
		return client, nil
	}

	syncer := sync.New(cfg, store, dial, ctx.Logger)
	return syncer.Run(context.Background())
}
