package cli

import (
	"github.com/julianstephens/constancia/internal/models"
)

type VerseCmd struct {
	Show VerseShowCmd `cmd:"" help:"Show the verse of the day." default:"1"`
	Set  VerseSetCmd  `cmd:"" help:"Replace the verse of the day."`
}

type VerseShowCmd struct{}

func (c *VerseShowCmd) Run(ctx *Context) error {
	s, err := ctx.Session(nil)
	if err != nil {
		return err
	}
	v := s.Verse.Get()
	ctx.printf("“%s”\n  %s\n", v.Text, v.Reference)
	return nil
}

type VerseSetCmd struct {
	Reference string `arg:"" help:"Book chapter:verse."`
	Text      string `arg:"" help:"Verse text."`
}

func (c *VerseSetCmd) Run(ctx *Context) error {
	s, err := ctx.Session(nil)
	if err != nil {
		return err
	}
	if err := ctx.afterMutation(s.Verse.Set(models.Verse{Reference: c.Reference, Text: c.Text})); err != nil {
		return err
	}
	ctx.printf("Verse of the day set to %s\n", s.Verse.Get().Reference)
	return nil
}
