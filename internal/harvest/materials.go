// Package harvest extracts material-usage records from a saved operations
// page and writes them out as CSV.
package harvest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"opsdash/internal/observability"
)

// Material is one row of the materials table.
type Material struct {
	ID           string
	Name         string
	QuantityUsed string
	Unit         string
	Sector       string
	UnitCost     string
	Supplier     string
	Branch       string
	Shift        string
}

// field binds a cell class to a CSV header and a Material field.
type field struct {
	class  string
	header string
	get    func(*Material) *string
}

//nolint:gochecknoglobals // fixed table layout
var fields = []field{
	{"td_id_material", "Id_material", func(m *Material) *string { return &m.ID }},
	{"td_nome", "Nome", func(m *Material) *string { return &m.Name }},
	{"td_quantidade_uso", "Quantidade_uso", func(m *Material) *string { return &m.QuantityUsed }},
	{"td_unidade", "Unidade", func(m *Material) *string { return &m.Unit }},
	{"td_setor_uso", "Setor_uso", func(m *Material) *string { return &m.Sector }},
	{"td_custo_unitario", "Custo_unitario", func(m *Material) *string { return &m.UnitCost }},
	{"td_fornecedor", "Fornecedor", func(m *Material) *string { return &m.Supplier }},
	{"td_Filial", "Filial", func(m *Material) *string { return &m.Branch }},
	{"td_turno", "Turno", func(m *Material) *string { return &m.Shift }},
}

// Result holds the extracted rows and how many rows were skipped.
type Result struct {
	Materials []Material
	Skipped   int
}

// ParseMaterials reads every table body row of the page. A row missing any
// of the expected cells is logged and skipped; the rest are still returned.
func ParseMaterials(r io.Reader, log logrus.FieldLogger) (*Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	res := &Result{Materials: make([]Material, 0)}
	for i, tr := range bodyRows(doc) {
		m, err := extractRow(tr)
		if err != nil {
			res.Skipped++
			observability.RecordSkippedRow("harvest")
			log.WithError(err).WithField("row", i).Warn("Failed to read material row, skipping")
			continue
		}
		log.WithFields(logrus.Fields{"id": m.ID, "name": m.Name}).Debug("Collected material")
		res.Materials = append(res.Materials, m)
	}

	return res, nil
}

func extractRow(tr *html.Node) (Material, error) {
	cells := make(map[string]string)
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "td" {
			continue
		}
		for _, class := range strings.Fields(attr(c, "class")) {
			if _, seen := cells[class]; !seen {
				cells[class] = strings.TrimSpace(extractText(c))
			}
		}
	}

	var m Material
	for _, f := range fields {
		v, ok := cells[f.class]
		if !ok {
			return Material{}, fmt.Errorf("missing cell %q", f.class)
		}
		*f.get(&m) = v
	}
	return m, nil
}

// bodyRows collects the tr elements under every table's tbody, in document order.
func bodyRows(doc *html.Node) []*html.Node {
	var rows []*html.Node
	var walk func(n *html.Node, inBody bool)
	walk = func(n *html.Node, inBody bool) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "tbody":
				inBody = true
			case "tr":
				if inBody {
					rows = append(rows, n)
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inBody)
		}
	}
	walk(doc, false)
	return rows
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func extractText(n *html.Node) string {
	var sb strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return sb.String()
}

// WriteCSV writes materials with a header row.
func WriteCSV(w io.Writer, materials []Material) error {
	cw := csv.NewWriter(w)

	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.header
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(fields))
	for i := range materials {
		for j, f := range fields {
			record[j] = *f.get(&materials[i])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
