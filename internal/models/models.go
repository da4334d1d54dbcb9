package models

// Dashboard is everything the presentation layer needs for one selection.
// Empty is set when no row matched; Overview and Charts are then nil.
type Dashboard struct {
	DatasetID string    `json:"dataset_id"`
	Rows      int       `json:"rows"`
	TotalRows int       `json:"total_rows"`
	Empty     bool      `json:"empty"`
	Message   string    `json:"message,omitempty"`
	Overview  *Overview `json:"overview,omitempty"`
	Charts    *Charts   `json:"charts,omitempty"`
}

type Overview struct {
	TotalCost      float64    `json:"total_cost"`
	MeanDowntime   *float64   `json:"mean_downtime"`
	DistinctModels int        `json:"distinct_models"`
	SectorCosts    []GroupSum `json:"sector_costs"`
}

type Charts struct {
	StatusBySector     []PairCount `json:"status_by_sector"`
	MaintenanceTypes   []Frequency `json:"maintenance_types"`
	CostBySector       []GroupSum  `json:"cost_by_sector"`
	TopDowntimeRecords []RecordRow `json:"top_downtime_records"`
	TopTypesBySector   []PairSum   `json:"top_types_by_sector"`
}

type GroupSum struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

type PairCount struct {
	Group    string `json:"group"`
	Subgroup string `json:"subgroup"`
	Count    int    `json:"count"`
}

type PairSum struct {
	Group    string  `json:"group"`
	Subgroup string  `json:"subgroup"`
	Value    float64 `json:"value"`
}

type Frequency struct {
	Key   string  `json:"key"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}

// RecordRow is one source row; Fields holds every column, missing cells as null.
type RecordRow struct {
	Row    int            `json:"row"`
	Fields map[string]any `json:"fields"`
}
