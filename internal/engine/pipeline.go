package engine

import (
	"errors"

	"github.com/sirupsen/logrus"

	"opsdash/internal/models"
)

// DefaultTopN bounds the top-N charts.
const DefaultTopN = 10

// EmptyMessage is shown when no row survives the filters.
const EmptyMessage = "No data found for the selected filters."

// Columns names the semantic columns the dashboard is built from.
type Columns struct {
	Sector          string `yaml:"sector" default:"Setor"`
	Status          string `yaml:"status" default:"Status Atual"`
	Model           string `yaml:"model" default:"Modelo"`
	MaintenanceType string `yaml:"maintenance_type" default:"Tipo Manutenção"`
	Cost            string `yaml:"cost" default:"Custo Manutenção"`
	Downtime        string `yaml:"downtime" default:"Tempo Parado (dias)"`
	Date            string `yaml:"date" default:"Data Manutenção"`
}

// Names lists every configured column.
func (c Columns) Names() []string {
	return []string{c.Sector, c.Status, c.Model, c.MaintenanceType, c.Cost, c.Downtime, c.Date}
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithTopN(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.topN = n
		}
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(p *Pipeline) {
		p.log = log
	}
}

// Pipeline turns a Selection into dashboard metrics and chart datasets.
// Every call recomputes from the full dataset; nothing is shared between calls.
type Pipeline struct {
	dataset  *Dataset
	schema   Schema
	registry *Registry
	columns  Columns
	topN     int
	log      logrus.FieldLogger
}

// NewPipeline introspects ds once and binds it to the filter registry.
func NewPipeline(ds *Dataset, reg *Registry, cols Columns, opts ...Option) *Pipeline {
	p := &Pipeline{
		dataset:  ds,
		schema:   Introspect(ds),
		registry: reg,
		columns:  cols,
		topN:     DefaultTopN,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}

	_, skipped := reg.Resolve(p.schema)
	for _, s := range skipped {
		p.log.WithFields(logrus.Fields{
			"filter": s.ID,
			"column": s.Column,
		}).Debug("Filter column missing or not filterable, skipping")
	}

	return p
}

func (p *Pipeline) Dataset() *Dataset { return p.dataset }
func (p *Pipeline) Schema() Schema { return p.schema }
func (p *Pipeline) Registry() *Registry { return p.registry }
func (p *Pipeline) Columns() Columns { return p.columns }
func (p *Pipeline) TopN() int { return p.topN }

// NewSelectionStore returns a store initialised with this pipeline's defaults.
func (p *Pipeline) NewSelectionStore() *SelectionStore {
	return NewSelectionStore(p.registry, p.schema)
}

// Filter applies sel to the full dataset.
func (p *Pipeline) Filter(sel Selection) (View, error) {
	return Apply(p.dataset.All(), p.schema, p.registry, sel)
}

// Compute runs the whole pipeline for sel. When nothing matches it returns a
// Dashboard marked Empty together with ErrEmptyResult.
func (p *Pipeline) Compute(sel Selection) (*models.Dashboard, error) {
	view, err := p.Filter(sel)

	out := &models.Dashboard{
		DatasetID: p.dataset.ID,
		Rows:      view.Len(),
		TotalRows: p.dataset.Len(),
	}

	if errors.Is(err, ErrEmptyResult) {
		out.Empty = true
		out.Message = EmptyMessage
		return out, err
	}
	if err != nil {
		return nil, err
	}

	out.Overview = p.overview(view)
	out.Charts = p.charts(view)

	p.log.WithFields(logrus.Fields{
		"rows":    view.Len(),
		"enabled": sel.EnabledIDs(),
	}).Debug("Dashboard computed")

	return out, nil
}

func (p *Pipeline) overview(view View) *models.Overview {
	c := p.columns
	o := &models.Overview{
		TotalCost:      Sum(view, c.Cost),
		DistinctModels: CountDistinct(view, c.Model),
		SectorCosts:    toGroupSums(SumBy(view, c.Sector, c.Cost)),
	}
	if mean, ok := Mean(view, c.Downtime); ok {
		o.MeanDowntime = &mean
	}
	return o
}

func (p *Pipeline) charts(view View) *models.Charts {
	c := p.columns

	// 1. Status per sector
	statusBySector := CountBy2(view, c.Sector, c.Status)
	pairCounts := make([]models.PairCount, len(statusBySector))
	for i, g := range statusBySector {
		pairCounts[i] = models.PairCount{Group: g.A, Subgroup: g.B, Count: g.Count}
	}

	// 2. Maintenance type distribution, shares over rows that have a type
	freq := Frequency(view, c.MaintenanceType)
	typed := 0
	for _, g := range freq {
		typed += g.Count
	}
	frequencies := make([]models.Frequency, len(freq))
	for i, g := range freq {
		frequencies[i] = models.Frequency{
			Key:   g.Key,
			Count: g.Count,
			Share: float64(g.Count) / float64(typed),
		}
	}

	// 3. Cost per sector, sector order
	costBySector := SumByKnown(view, c.Sector, c.Cost)
	SortGroupsByKey(costBySector)

	// 4. Rows with the most downtime
	records := Records(TopRows(view, c.Downtime, p.topN))

	// 5. Top maintenance types by downtime, split by sector
	breakdown := TopNBreakdown(view, c.MaintenanceType, c.Sector, c.Downtime, p.topN)
	pairSums := make([]models.PairSum, len(breakdown))
	for i, g := range breakdown {
		pairSums[i] = models.PairSum{Group: g.A, Subgroup: g.B, Value: g.Value}
	}

	return &models.Charts{
		StatusBySector:     pairCounts,
		MaintenanceTypes:   frequencies,
		CostBySector:       toGroupSums(costBySector),
		TopDowntimeRecords: records,
		TopTypesBySector:   pairSums,
	}
}

func toGroupSums(groups []Group) []models.GroupSum {
	out := make([]models.GroupSum, len(groups))
	for i, g := range groups {
		out[i] = models.GroupSum{Key: g.Key, Value: g.Value}
	}
	return out
}

func recordRow(view View, i int) models.RecordRow {
	ds := view.Dataset()
	fields := make(map[string]any, len(ds.names))
	for _, name := range ds.names {
		fields[name] = plain(view.Value(i, name))
	}
	return models.RecordRow{Row: view.Row(i), Fields: fields}
}

// plain converts a Value to its JSON form.
func plain(v Value) any {
	switch v.Kind() {
	case KindNumber:
		f, _ := v.Float()
		return f
	case KindTime, KindText:
		return v.String()
	default:
		return nil
	}
}

// Records converts rows of a view to RecordRows.
func Records(view View) []models.RecordRow {
	out := make([]models.RecordRow, view.Len())
	for i := range out {
		out[i] = recordRow(view, i)
	}
	return out
}
