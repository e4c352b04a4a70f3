package cli

import (
	"fmt"

	"github.com/julianstephens/constancia/internal/storage"
)

type MigrateCmd struct {
	List bool `help:"Show applied migrations instead of applying pending ones."`
}

func (c *MigrateCmd) Run(ctx *Context) error {
	if err := ctx.OpenStore(); err != nil {
		return err
	}

	m, ok := ctx.Store.(storage.Migrator)
	if !ok {
		ctx.println("This storage backend has no schema to migrate.")
		return nil
	}

	if c.List {
		records, err := m.AppliedMigrations()
		if err != nil {
			return err
		}
		if len(records) == 0 {
			ctx.println("No migrations applied yet.")
		}
		for _, r := range records {
			ctx.printf("%03d %-20s %s\n", r.Version, r.Name, r.AppliedAt.Local().Format("2006-01-02 15:04"))
		}
		return nil
	}

	count, err := m.Migrate(func(msg string) { ctx.println(msg) })
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if count == 0 {
		ctx.println("No migrations to apply. Database is up to date.")
	} else {
		ctx.printf("\nSuccessfully applied %d migration(s).\n", count)
	}
	return nil
}
