package ui

import (
	"strings"

	"github.com/justyntemme/tscat/internal/entity"
	"github.com/justyntemme/tscat/internal/model"
	"github.com/justyntemme/tscat/internal/nodes"
)

// TimeLayout is how event times are shown in the table.
const TimeLayout = "2006-01-02 15:04:05"

// Flatten lists the visible rows of the catalogue outline. Folders and the
// trash show their children only when expanded.
func Flatten(root *nodes.Node, expanded map[string]bool) []TreeRow {
	var rows []TreeRow
	var walk func(n *nodes.Node, depth int, inTrash bool)
	walk = func(n *nodes.Node, depth int, inTrash bool) {
		for _, c := range n.Children() {
			row := TreeRow{
				ID:       c.ID(),
				Name:     c.Name(),
				Kind:     c.Kind(),
				Depth:    depth,
				Expanded: expanded[c.ID()],
				InTrash:  inTrash,
			}
			if cat := c.Catalogue(); cat != nil {
				row.Dynamic = cat.Dynamic()
			}
			rows = append(rows, row)
			if row.Expanded {
				walk(c, depth+1, inTrash || c.Kind() == nodes.KindTrash)
			}
		}
	}
	walk(root, 0, false)
	return rows
}

// EventRows formats the table of cm.
func EventRows(cm *model.CatalogModel) []EventRow {
	rows := make([]EventRow, cm.RowCount())
	for i := range rows {
		cells := make([]string, cm.ColumnCount())
		for col := range cells {
			if v, ok := cm.Data(i, col); ok {
				cells[col] = FormatValue(v)
			}
		}
		rows[i] = EventRow{ID: cm.Row(i).ID(), Cells: cells, Dimmed: cm.Dimmed(i)}
	}
	return rows
}

func FormatValue(v entity.Value) string {
	switch v.Type() {
	case entity.TypeTime:
		return v.AsTime().Format(TimeLayout)
	case entity.TypeStrings:
		return strings.Join(v.AsStrings(), ", ")
	}
	return v.String()
}
