package contracts

import "time"

// SectorStats is the percentile distribution of one metric within one
// sector, computed from the full sector sample on a given date.
type SectorStats struct {
	Sector       string    `json:"sector"`
	Metric       string    `json:"metric"`
	Min          float64   `json:"min"`
	P10          float64   `json:"p10"`
	P25          float64   `json:"p25"`
	P50          float64   `json:"p50"`
	P75          float64   `json:"p75"`
	P90          float64   `json:"p90"`
	Max          float64   `json:"max"`
	Mean         float64   `json:"mean"`
	StdDev       float64   `json:"std_dev"`
	SampleCount  int       `json:"sample_count"`
	CalculatedAt time.Time `json:"calculated_at"`
}
