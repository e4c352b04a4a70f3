package cli

import (
	"time"
)

type DreamCmd struct {
	Add    DreamAddCmd    `cmd:"" help:"Add a dream to the board."`
	Edit   DreamEditCmd   `cmd:"" help:"Change a dream's name or image."`
	Delete DreamDeleteCmd `cmd:"" help:"Remove a dream."`
	List   DreamListCmd   `cmd:"" help:"List dreams." default:"1"`
	Rotate DreamRotateCmd `cmd:"" help:"Cycle through dream names."`
}

type DreamAddCmd struct {
	Name string `arg:"" help:"What you dream of."`
	Img  string `help:"Image URL or data URI."`
}

func (c *DreamAddCmd) Run(ctx *Context) error {
	s, err := ctx.Session(nil)
	if err != nil {
		return err
	}
	d, err := s.Dreams.Add(c.Name, c.Img)
	if err = ctx.afterMutation(err); err != nil {
		return err
	}
	ctx.printf("Added dream: %s (id %d)\n", d.Name, d.ID)
	return nil
}

type DreamEditCmd struct {
	ID   string  `arg:"" help:"Dream id."`
	Name *string `help:"New name."`
	Img  *string `help:"New image reference; empty clears it."`
}

func (c *DreamEditCmd) Run(ctx *Context) error {
	s, err := ctx.Session(nil)
	if err != nil {
		return err
	}
	id, err := parseID("dream", c.ID)
	if err != nil {
		return err
	}
	d, err := s.Dreams.Update(id, c.Name, c.Img)
	if err = ctx.afterMutation(err); err != nil {
		return err
	}
	ctx.printf("Updated dream: %s\n", d.Name)
	return nil
}

type DreamDeleteCmd struct {
	ID string `arg:"" help:"Dream id."`
}

func (c *DreamDeleteCmd) Run(ctx *Context) error {
	s, err := ctx.Session(nil)
	if err != nil {
		return err
	}
	id, err := parseID("dream", c.ID)
	if err != nil {
		return err
	}
	if err := ctx.afterMutation(s.Dreams.Delete(id)); err != nil {
		return err
	}
	ctx.printf("Deleted dream %d\n", id)
	return nil
}

type DreamListCmd struct{}

func (c *DreamListCmd) Run(ctx *Context) error {
	s, err := ctx.Session(nil)
	if err != nil {
		return err
	}
	list := s.Dreams.List()
	if len(list) == 0 {
		ctx.println("Your dream board is empty.")
		return nil
	}
	for _, d := range list {
		img := "(placeholder)"
		if d.Img != "" {
			img = d.Img
			if len(img) > 48 {
				img = img[:45] + "..."
			}
		}
		ctx.printf("%-15d %-30s %s\n", d.ID, d.Name, img)
	}
	return nil
}

type DreamRotateCmd struct {
	Count    int           `help:"Number of names to show (default: one full cycle)."`
	Interval time.Duration `help:"Pause between names." default:"0s"`
}

func (c *DreamRotateCmd) Run(ctx *Context) error {
	s, err := ctx.Session(nil)
	if err != nil {
		return err
	}

	n := c.Count
	if n <= 0 {
		n = s.Dreams.Len()
	}
	shown := 0
	for name := range s.Dreams.Rotation() {
		if shown >= n {
			break
		}
		if shown > 0 && c.Interval > 0 {
			time.Sleep(c.Interval)
		}
		ctx.println(name)
		shown++
	}
	if shown == 0 {
		ctx.println("Your dream board is empty.")
	}
	return nil
}
