// Package printers renders catalogue listings for the terminal.
package printers

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/justyntemme/tscat/internal/entity"
	"github.com/justyntemme/tscat/internal/exchange"
)

const timeLayout = "2006-01-02 15:04:05"

type Printer struct {
	Out    io.Writer
	ShowID bool

	// Now anchors relative times.
	Now func() time.Time
}

func New(out io.Writer) *Printer {
	if out == nil {
		out = color.Output
	}
	return &Printer{Out: out, Now: time.Now}
}

var (
	title  = color.New(color.Bold, color.Underline)
	faint  = color.New(color.Faint)
	italic = color.New(color.Faint, color.Italic)
	dyn    = color.New(color.FgHiMagenta)
	id     = color.New(color.FgHiYellow, color.Faint)
)

func (p *Printer) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func (p *Printer) titleWithCount(name string, count int) {
	_, _ = title.Fprint(p.Out, name)
	noun := "entries"
	if count == 1 {
		noun = "entry"
	}
	_, _ = faint.Fprintf(p.Out, " - %d %s\n", count, noun)
}

func (p *Printer) none() {
	_, _ = italic.Fprint(p.Out, " none\n\n")
}

func newTable() *uitable.Table {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 60
	return tbl
}

func (p *Printer) row(tbl *uitable.Table, uuid string, dim bool, cells ...any) {
	if dim {
		for i, c := range cells {
			cells[i] = faint.Sprint(c)
		}
	}
	if p.ShowID {
		cells = append([]any{id.Sprint(uuid)}, cells...)
	}
	tbl.AddRow(cells...)
}

// Catalogues prints the live catalogues and then the trash, dimmed.
func (p *Printer) Catalogues(live, trashed []*entity.Catalogue) {
	p.catalogueTable("Catalogues", live, false)
	p.catalogueTable("Trash", trashed, true)
}

func (p *Printer) catalogueTable(name string, cats []*entity.Catalogue, inTrash bool) {
	p.titleWithCount(name, len(cats))
	if len(cats) == 0 {
		p.none()
		return
	}
	tbl := newTable()
	for _, c := range cats {
		kind := "static"
		if c.Dynamic() {
			kind = dyn.Sprint("dynamic")
		}
		p.row(tbl, c.ID, inTrash,
			c.Name,
			strings.Join(c.Path, "/"),
			c.Author,
			strings.Join(c.Tags, ", "),
			kind,
		)
	}
	_, _ = fmt.Fprintln(p.Out, tbl)
	_, _ = fmt.Fprintln(p.Out)
}

// Events prints the events of c. Events listed only because the predicate
// matches them are dimmed.
func (p *Printer) Events(c *entity.Catalogue, events []entity.CatalogueEvent) {
	p.titleWithCount(c.Name, len(events))
	if len(events) == 0 {
		p.none()
		return
	}
	tbl := newTable()
	now := p.now()
	for _, ce := range events {
		e := ce.Event
		p.row(tbl, e.ID, !ce.Assigned,
			e.Start.Format(timeLayout),
			humanize.RelTime(e.Start, now, "ago", "from now"),
			duration(e.Start, e.Stop),
			e.Author,
			strings.Join(e.Tags, ", "),
			humanize.Comma(e.Rating),
		)
	}
	_, _ = fmt.Fprintln(p.Out, tbl)
	_, _ = fmt.Fprintln(p.Out)
}

func duration(start, stop time.Time) string {
	if !stop.After(start) {
		return "instant"
	}
	return strings.TrimSpace(humanize.RelTime(start, stop, "", ""))
}

// Imported summarizes an import dictionary.
func (p *Printer) Imported(source string, d *exchange.Dict) {
	_, _ = fmt.Fprintf(p.Out, "Imported %s catalogues and %s events from %s\n",
		humanize.Comma(int64(len(d.Catalogues))), humanize.Comma(int64(len(d.Events))), source)
	for _, c := range d.Catalogues {
		_, _ = faint.Fprintf(p.Out, "  %s (%s)\n", c.Name, humanize.Comma(int64(len(c.Events))))
	}
}
