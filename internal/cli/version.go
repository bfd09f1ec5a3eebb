package cli

import (
	"fmt"
	"runtime"
)

type VersionCmd struct{}

func (c *VersionCmd) Run(ctx *Context) error {
	fmt.Printf("email2rm version %s\n", Version)
	fmt.Printf("Go version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	return nil
}
