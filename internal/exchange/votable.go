package exchange

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/justyntemme/tscat/internal/debug"
	"github.com/justyntemme/tscat/internal/entity"
)

// One RESOURCE per catalogue: PARAMs hold the catalogue fields, the events
// table holds its linked events. List, predicate and attribute values are
// carried as JSON text. A RESOURCE without a uuid PARAM only carries events.

type voTable struct {
	XMLName   xml.Name     `xml:"VOTABLE"`
	Version   string       `xml:"version,attr"`
	Resources []voResource `xml:"RESOURCE"`
}

type voResource struct {
	Name   string    `xml:"name,attr,omitempty"`
	Params []voParam `xml:"PARAM"`
	Tables []voData  `xml:"TABLE"`
}

type voParam struct {
	Name      string `xml:"name,attr"`
	Datatype  string `xml:"datatype,attr"`
	Arraysize string `xml:"arraysize,attr,omitempty"`
	Value     string `xml:"value,attr"`
}

type voData struct {
	Name   string    `xml:"name,attr,omitempty"`
	Fields []voField `xml:"FIELD"`
	Rows   []voRow   `xml:"DATA>TABLEDATA>TR"`
}

type voField struct {
	Name      string `xml:"name,attr"`
	Datatype  string `xml:"datatype,attr"`
	Arraysize string `xml:"arraysize,attr,omitempty"`
	Xtype     string `xml:"xtype,attr,omitempty"`
}

type voRow struct {
	Cells []string `xml:"TD"`
}

var eventFields = []voField{
	{Name: entity.FieldUUID, Datatype: "char", Arraysize: "*"},
	{Name: entity.FieldStart, Datatype: "char", Arraysize: "*", Xtype: "timestamp"},
	{Name: entity.FieldStop, Datatype: "char", Arraysize: "*", Xtype: "timestamp"},
	{Name: entity.FieldAuthor, Datatype: "char", Arraysize: "*"},
	{Name: entity.FieldTags, Datatype: "char", Arraysize: "*", Xtype: "json"},
	{Name: entity.FieldProducts, Datatype: "char", Arraysize: "*", Xtype: "json"},
	{Name: entity.FieldRating, Datatype: "long"},
	{Name: "attributes", Datatype: "char", Arraysize: "*", Xtype: "json"},
}

// CanonicalizeVOTable parses a VOTable document into a Dict.
func CanonicalizeVOTable(r io.Reader) (*Dict, error) {
	var doc voTable
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	parts := make([]*Dict, 0, len(doc.Resources))
	for i, res := range doc.Resources {
		d, err := decodeResource(res)
		if err != nil {
			return nil, fmt.Errorf("%w: resource %d: %v", ErrInvalidDocument, i, err)
		}
		parts = append(parts, d)
	}
	d, err := Merge(parts...)
	if err != nil {
		return nil, err
	}
	debug.Log(debug.EXCHANGE, "Canonicalized VOTable: %d catalogues, %d events", len(d.Catalogues), len(d.Events))
	return d, nil
}

func decodeResource(res voResource) (*Dict, error) {
	d := &Dict{}
	params := make(map[string]string, len(res.Params))
	for _, p := range res.Params {
		params[p.Name] = p.Value
	}

	for _, table := range res.Tables {
		for _, row := range table.Rows {
			e, err := decodeEventRow(table.Fields, row)
			if err != nil {
				return nil, err
			}
			d.Events = append(d.Events, e)
		}
	}

	id, ok := params[entity.FieldUUID]
	if !ok {
		return d, nil
	}
	c := CatalogueRecord{
		UUID:   id,
		Name:   params[entity.FieldName],
		Author: params[entity.FieldAuthor],
		Events: d.EventUUIDs(),
	}
	if c.Name == "" {
		c.Name = res.Name
	}
	if err := decodeJSONParam(params, entity.FieldTags, &c.Tags); err != nil {
		return nil, err
	}
	if err := decodeJSONParam(params, entity.FieldPath, &c.Path); err != nil {
		return nil, err
	}
	if raw, ok := params[entity.FieldPredicate]; ok && raw != "" {
		c.Predicate = &entity.Predicate{}
		if err := json.Unmarshal([]byte(raw), c.Predicate); err != nil {
			return nil, fmt.Errorf("predicate: %w", err)
		}
	}
	c.Attributes = entity.NewAttributes()
	if err := decodeJSONParam(params, "attributes", c.Attributes); err != nil {
		return nil, err
	}
	d.Catalogues = append(d.Catalogues, c)
	return d, nil
}

func decodeJSONParam(params map[string]string, name string, into any) error {
	raw, ok := params[name]
	if !ok || raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), into); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func decodeEventRow(fields []voField, row voRow) (EventRecord, error) {
	if len(row.Cells) != len(fields) {
		return EventRecord{}, fmt.Errorf("row has %d cells for %d fields", len(row.Cells), len(fields))
	}
	e := EventRecord{Attributes: entity.NewAttributes()}
	for i, f := range fields {
		cell := row.Cells[i]
		var err error
		switch f.Name {
		case entity.FieldUUID:
			e.UUID = cell
		case entity.FieldStart:
			e.Start, err = time.Parse(time.RFC3339Nano, cell)
		case entity.FieldStop:
			e.Stop, err = time.Parse(time.RFC3339Nano, cell)
		case entity.FieldAuthor:
			e.Author = cell
		case entity.FieldTags:
			err = unmarshalCell(cell, &e.Tags)
		case entity.FieldProducts:
			err = unmarshalCell(cell, &e.Products)
		case entity.FieldRating:
			if cell != "" {
				e.Rating, err = strconv.ParseInt(cell, 10, 64)
			}
		case "attributes":
			err = unmarshalCell(cell, e.Attributes)
		}
		if err != nil {
			return EventRecord{}, fmt.Errorf("field %s: %w", f.Name, err)
		}
	}
	e.Start, e.Stop = e.Start.UTC(), e.Stop.UTC()
	return e, nil
}

func unmarshalCell(cell string, into any) error {
	if cell == "" {
		return nil
	}
	return json.Unmarshal([]byte(cell), into)
}

// EncodeVOTable writes d as a VOTable document.
func EncodeVOTable(w io.Writer, d *Dict) error {
	d = d.normalized()
	events := make(map[string]EventRecord, len(d.Events))
	for _, e := range d.Events {
		events[e.UUID] = e
	}

	doc := voTable{Version: "1.4"}
	linked := make(map[string]bool)
	for _, c := range d.Catalogues {
		res := voResource{Name: c.Name}
		res.Params = append(res.Params,
			charParam(entity.FieldUUID, c.UUID),
			charParam(entity.FieldName, c.Name),
			charParam(entity.FieldAuthor, c.Author),
			jsonParam(entity.FieldTags, c.Tags),
			jsonParam(entity.FieldPath, c.Path),
			jsonParam("attributes", c.Attributes),
		)
		if c.Predicate != nil {
			res.Params = append(res.Params, jsonParam(entity.FieldPredicate, c.Predicate))
		}
		table := voData{Name: "events", Fields: eventFields}
		for _, id := range c.Events {
			e, ok := events[id]
			if !ok {
				return fmt.Errorf("%w: catalogue %s links unknown event %s", ErrInvalidDocument, c.UUID, id)
			}
			table.Rows = append(table.Rows, encodeEventRow(e))
			linked[id] = true
		}
		res.Tables = []voData{table}
		doc.Resources = append(doc.Resources, res)
	}

	orphans := voData{Name: "events", Fields: eventFields}
	for _, e := range d.Events {
		if !linked[e.UUID] {
			orphans.Rows = append(orphans.Rows, encodeEventRow(e))
		}
	}
	if len(orphans.Rows) > 0 {
		doc.Resources = append(doc.Resources, voResource{Tables: []voData{orphans}})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func charParam(name, value string) voParam {
	return voParam{Name: name, Datatype: "char", Arraysize: "*", Value: value}
}

func jsonParam(name string, v any) voParam {
	data, _ := json.Marshal(v)
	return charParam(name, string(data))
}

func encodeEventRow(e EventRecord) voRow {
	return voRow{Cells: []string{
		e.UUID,
		e.Start.UTC().Format(time.RFC3339Nano),
		e.Stop.UTC().Format(time.RFC3339Nano),
		e.Author,
		mustJSON(e.Tags),
		mustJSON(e.Products),
		strconv.FormatInt(e.Rating, 10),
		mustJSON(e.Attributes),
	}}
}

func mustJSON(v any) string {
	data, _ := json.Marshal(v)
	return string(data)
}
