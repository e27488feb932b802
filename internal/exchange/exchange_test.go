package exchange

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/tscat/internal/entity"
)

func sampleDict(t *testing.T) *Dict {
	t.Helper()
	start := time.Date(2023, 7, 14, 8, 30, 0, 0, time.UTC)
	attrs := entity.NewAttributes()
	attrs.Set("speed", entity.Float(512.25))
	attrs.Set("seen", entity.Time(start))

	cat := &entity.Catalogue{
		ID:        "c1",
		Name:      "Shocks",
		Author:    "alice",
		Tags:      []string{"solar"},
		Path:      []string{"missions", "wind"},
		Predicate: entity.Comparison(">=", entity.FieldRef(entity.FieldRating), entity.Int(2)),
	}
	require.NoError(t, cat.SetField("version", entity.Int(2)))

	e1 := &entity.Event{ID: "e1", Start: start, Stop: start.Add(time.Minute), Author: "alice", Tags: []string{"shock"}, Rating: 3, Attributes: attrs}
	e2 := &entity.Event{ID: "e2", Start: start.Add(time.Hour), Stop: start.Add(2 * time.Hour), Author: "bob"}
	e3 := &entity.Event{ID: "e3", Start: start, Stop: start, Author: "carol"}

	return &Dict{
		Catalogues: []CatalogueRecord{CatalogueRecordOf(cat, []string{"e1", "e2"})},
		Events:     []EventRecord{EventRecordOf(e1), EventRecordOf(e2), EventRecordOf(e3)},
	}
}

func assertSameDict(t *testing.T, want, got *Dict) {
	t.Helper()
	require.Len(t, got.Catalogues, len(want.Catalogues))
	require.Len(t, got.Events, len(want.Events))

	events := map[string]EventRecord{}
	for _, e := range got.Events {
		events[e.UUID] = e
	}
	for _, e := range want.Events {
		g, ok := events[e.UUID]
		require.True(t, ok, e.UUID)
		assert.True(t, e.Entity().Fields().Equal(g.Entity().Fields()), e.UUID)
	}
	for i, c := range want.Catalogues {
		g := got.Catalogues[i]
		assert.True(t, c.Entity().Fields().Equal(g.Entity().Fields()))
		assert.ElementsMatch(t, c.Events, g.Events)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	want := sampleDict(t)

	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, want))

	got, err := CanonicalizeJSON(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assertSameDict(t, want, got)
}

func TestJSONExportIsDeterministic(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, EncodeJSON(&a, sampleDict(t)))
	require.NoError(t, EncodeJSON(&b, sampleDict(t)))
	assert.Equal(t, a.String(), b.String())
	assert.True(t, strings.HasPrefix(a.String(), `{"catalogues":[`))
}

func TestCanonicalizeJSONRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{`},
		{"missing events", `{"catalogues": []}`},
		{"bad attribute name", `{"catalogues": [], "events": [{"uuid": "e", "start": "2020-01-01T00:00:00Z", "stop": "2020-01-01T00:00:00Z", "attributes": [{"name": "9x", "value": {"type": "int", "value": 1}}]}]}`},
		{"dangling link", `{"catalogues": [{"uuid": "c", "name": "c", "events": ["e"]}], "events": []}`},
		{"duplicate uuid", `{"catalogues": [{"uuid": "x", "name": "c"}], "events": [{"uuid": "x", "start": "2020-01-01T00:00:00Z", "stop": "2020-01-01T00:00:00Z"}]}`},
		{"inverted range", `{"catalogues": [], "events": [{"uuid": "e", "start": "2020-01-02T00:00:00Z", "stop": "2020-01-01T00:00:00Z"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CanonicalizeJSON(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestVOTableRoundTrip(t *testing.T) {
	want := sampleDict(t)

	var buf bytes.Buffer
	require.NoError(t, EncodeVOTable(&buf, want))
	assert.Contains(t, buf.String(), "<VOTABLE")

	got, err := CanonicalizeVOTable(&buf)
	require.NoError(t, err)
	assertSameDict(t, want, got)
	assert.Equal(t, []string{"missions", "wind"}, got.Catalogues[0].Path)
	assert.True(t, want.Catalogues[0].Predicate.Equal(got.Catalogues[0].Predicate))
}

func TestCanonicalizePathMergesDirectory(t *testing.T) {
	dir := t.TempDir()
	d := sampleDict(t)

	write := func(name string, d *Dict, format Format) {
		f, err := os.Create(filepath.Join(dir, name))
		require.NoError(t, err)
		defer f.Close()
		require.NoError(t, Encode(f, d, format))
	}

	second := &Dict{
		Catalogues: []CatalogueRecord{{UUID: "c2", Name: "Other", Events: []string{"e3"}}},
		Events:     []EventRecord{d.Events[2]},
	}
	write("a.json", d, FormatJSON)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
	write(filepath.Join("nested", "b.xml"), second, FormatVOTable)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	merged, err := CanonicalizePath(dir, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c1", "c2"}, merged.CatalogueUUIDs())
	assert.ElementsMatch(t, []string{"e1", "e2", "e3"}, merged.EventUUIDs())
}

func TestCanonicalizePathDuplicateCatalogue(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.json", "b.json"} {
		f, err := os.Create(filepath.Join(dir, name))
		require.NoError(t, err)
		require.NoError(t, EncodeJSON(f, sampleDict(t)))
		f.Close()
	}

	_, err := CanonicalizePath(dir, "")
	assert.ErrorIs(t, err, ErrDuplicateUUID)
}

func TestFormatFromPath(t *testing.T) {
	f, err := FormatFromPath("x/catalogue.VOT")
	require.NoError(t, err)
	assert.Equal(t, FormatVOTable, f)

	_, err = FormatFromPath("x/catalogue.csv")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
