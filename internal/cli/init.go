package cli

import (
	"os"

	"github.com/julianstephens/constancia/internal/config"
)

type InitCmd struct{}

func (c *InitCmd) Run(ctx *Context) error {
	if err := ctx.Store.Init(); err != nil {
		return err
	}
	ctx.printf("Initialized constancia storage at: %s\n", ctx.Store.GetConfigPath())

	if ctx.ConfigDir == "" {
		return nil
	}
	if _, err := os.Stat(config.Path(ctx.ConfigDir)); os.IsNotExist(err) {
		if err := ctx.config().Save(ctx.ConfigDir); err != nil {
			return err
		}
		ctx.printf("Wrote default settings to: %s\n", config.Path(ctx.ConfigDir))
	}
	return nil
}
