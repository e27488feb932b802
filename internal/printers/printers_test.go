package printers

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/justyntemme/tscat/internal/entity"
	"github.com/justyntemme/tscat/internal/exchange"
)

func newTestPrinter(now time.Time) (*Printer, *bytes.Buffer) {
	color.NoColor = true
	var buf bytes.Buffer
	p := New(&buf)
	p.Now = func() time.Time { return now }
	return p, &buf
}

func TestCatalogues(t *testing.T) {
	p, buf := newTestPrinter(time.Now())
	p.ShowID = true

	live := []*entity.Catalogue{
		{ID: "c1", Name: "flares", Author: "alice", Path: []string{"solar", "2024"}, Tags: []string{"x", "y"}},
		{ID: "c2", Name: "fast", Predicate: entity.Has("speed")},
	}
	p.Catalogues(live, nil)

	out := buf.String()
	assert.Contains(t, out, "Catalogues - 2 entries")
	assert.Contains(t, out, "solar/2024")
	assert.Contains(t, out, "x, y")
	assert.Contains(t, out, "dynamic")
	assert.Contains(t, out, "c1")
	assert.Contains(t, out, "Trash - 0 entries")
	assert.Contains(t, out, "none")
}

func TestEvents(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	p, buf := newTestPrinter(now)

	start := now.Add(-72 * time.Hour)
	c := &entity.Catalogue{ID: "c1", Name: "flares"}
	events := []entity.CatalogueEvent{
		{Event: &entity.Event{ID: "e1", Start: start, Stop: start.Add(time.Hour), Author: "alice", Rating: 1200}, Assigned: true},
		{Event: &entity.Event{ID: "e2", Start: start, Stop: start, Author: "bob"}},
	}
	p.Events(c, events)

	out := buf.String()
	assert.Contains(t, out, "flares - 2 entries")
	assert.Contains(t, out, start.Format(timeLayout))
	assert.Contains(t, out, "3 days ago")
	assert.Contains(t, out, "1 hour")
	assert.Contains(t, out, "instant")
	assert.Contains(t, out, "1,200")
	assert.NotContains(t, out, "e1")
}

func TestImported(t *testing.T) {
	p, buf := newTestPrinter(time.Now())
	d := &exchange.Dict{
		Catalogues: []exchange.CatalogueRecord{{UUID: "c1", Name: "flares", Events: []string{"e1"}}},
		Events:     []exchange.EventRecord{{UUID: "e1"}},
	}
	p.Imported("flares.json", d)
	assert.Contains(t, buf.String(), "Imported 1 catalogues and 1 events from flares.json")
	assert.Contains(t, buf.String(), "flares (1)")
}

func TestDuration(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "instant", duration(at, at))
	assert.Equal(t, "2 hours", duration(at, at.Add(2*time.Hour)))
}
