package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/shano/email-to-remarkable-sync/internal/config"
)

// AuthCmd manages the mail password stored in the OS keyring. When the
// keyring holds a password, EMAIL_PASSWORD does not need to be set in
// the scheduler's environment.
type AuthCmd struct {
	Set    AuthSetCmd    `cmd:"" help:"Store the mail password in the system keyring"`
	Delete AuthDeleteCmd `cmd:"" help:"Remove the stored mail password"`
}

type AuthSetCmd struct {
	Username string `help:"Mail account username (defaults to EMAIL_USERNAME)" short:"u"`
}

func (c *AuthSetCmd) Run(ctx *Context) error {
	username, err := resolveUsername(c.Username, ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Password for %s: ", username)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if len(password) == 0 {
		return fmt.Errorf("password must not be empty")
	}

	if err := config.SetPassword(username, string(password)); err != nil {
		return fmt.Errorf("failed to store password: %w", err)
	}

	fmt.Printf("Password stored for %s.\n", username)
	return nil
}

type AuthDeleteCmd struct {
	Username string `help:"Mail account username (defaults to EMAIL_USERNAME)" short:"u"`
}

func (c *AuthDeleteCmd) Run(ctx *Context) error {
	username, err := resolveUsername(c.Username, ctx)
	if err != nil {
		return err
	}

	if err := config.DeletePassword(username); err != nil {
		return fmt.Errorf("failed to delete password: %w", err)
	}

	fmt.Printf("Password removed for %s.\n", username)
	return nil
}

func resolveUsername(flag string, ctx *Context) (string, error) {
	if flag != "" {
		return flag, nil
	}

	cfg, err := config.Load(ctx.Globals.Config)
	if err != nil {
		return "", err
	}
	if cfg.Username == "" {
		return "", fmt.Errorf("no username given - pass --username or set EMAIL_USERNAME")
	}
	return cfg.Username, nil
}
