package engine

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"opsdash/internal/observability"
)

var ErrNoHeader = errors.New("csv has no header row")

// DefaultDateLayouts are tried in order when parsing temporal columns.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
}

// LoadOptions controls how raw CSV cells become Values.
type LoadOptions struct {
	// Columns are canonical names. A header equal to one of them after
	// trimming, lower-casing and dropping accents is renamed to it.
	Columns []string
	// Numeric columns are coerced to numbers; cells that fail become Missing.
	Numeric []string
	// Temporal columns are parsed with DateLayouts; failures become Missing.
	Temporal    []string
	DateLayouts []string
	Comma       rune
}

// LoadCSV reads a CSV file into a Dataset.
func LoadCSV(path string, opts LoadOptions, log logrus.FieldLogger) (*Dataset, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied data path
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	return ReadCSV(f, opts, log.WithField("path", path))
}

// ReadCSV parses CSV data into a Dataset. Malformed records are skipped,
// short records are padded with Missing and empty cells are Missing.
func ReadCSV(r io.Reader, opts LoadOptions, log logrus.FieldLogger) (*Dataset, error) {
	start := time.Now()
	log.Debug("Loading dataset")

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}

	// 1. Header
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	names := canonicalNames(header, opts.Columns)

	kinds := make([]columnKind, len(names))
	numeric := toSet(opts.Numeric)
	temporal := toSet(opts.Temporal)
	for i, n := range names {
		switch {
		case numeric[n]:
			kinds[i] = kindNumeric
		case temporal[n]:
			kinds[i] = kindTemporal
		}
	}

	layouts := opts.DateLayouts
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}

	// 2. Records
	cells := make([][]Value, len(names))
	skipped, coerced := 0, 0
	line := 1
	for {
		record, err := reader.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			skipped++
			log.WithError(err).WithField("line", line).Warn("Skipping malformed record")
			continue
		}

		for c := range names {
			raw := ""
			if c < len(record) {
				raw = strings.TrimSpace(record[c])
			}
			v, ok := convertCell(raw, kinds[c], layouts)
			if !ok {
				coerced++
				observability.RecordCoercionFailure(names[c])
			}
			cells[c] = append(cells[c], v)
		}
	}

	// 3. Assemble
	columns := make([]Column, len(names))
	for i, n := range names {
		columns[i] = Column{Name: n, Values: cells[i]}
	}
	ds, err := NewDataset(columns...)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"rows":      ds.Len(),
		"columns":   len(names),
		"skipped":   skipped,
		"coerced":   coerced,
		"dataset":   ds.ID,
		"load_time": time.Since(start),
	}).Info("Dataset loaded")

	return ds, nil
}

type columnKind uint8

const (
	kindText columnKind = iota
	kindNumeric
	kindTemporal
)

// convertCell turns a raw cell into a Value. ok is false when a non-empty
// cell failed coercion and was degraded to Missing.
func convertCell(raw string, kind columnKind, layouts []string) (Value, bool) {
	if raw == "" {
		return Missing(), true
	}

	switch kind {
	case kindNumeric:
		if f, ok := parseNumber(raw); ok {
			return Number(f), true
		}
		return Missing(), false

	case kindTemporal:
		for _, layout := range layouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return Time(t), true
			}
		}
		return Missing(), false
	}

	return Text(raw), true
}

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldName normalises a column name for matching: trimmed, lower case and
// without diacritics.
func FoldName(name string) string {
	folded, _, err := transform.String(accentFolder, strings.TrimSpace(name))
	if err != nil {
		folded = strings.TrimSpace(name)
	}
	return strings.ToLower(folded)
}

// canonicalNames renames headers to their canonical form and suffixes
// repeated names with .N, skipping any suffix that is already a header.
func canonicalNames(header, canonical []string) []string {
	byFold := make(map[string]string, len(canonical))
	for _, c := range canonical {
		byFold[FoldName(c)] = c
	}

	names := make([]string, len(header))
	taken := make(map[string]bool, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if c, ok := byFold[FoldName(name)]; ok {
			name = c
		}
		names[i] = name
		taken[name] = true
	}

	seen := make(map[string]bool, len(names))
	for i, name := range names {
		if !seen[name] {
			seen[name] = true
			continue
		}
		for n := 1; ; n++ {
			candidate := fmt.Sprintf("%s.%d", name, n)
			if !taken[candidate] {
				names[i] = candidate
				taken[candidate] = true
				seen[candidate] = true
				break
			}
		}
	}
	return names
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}
