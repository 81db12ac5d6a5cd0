package model

// Status classifies a window mean against a per-class optimal range.
type Status string

const (
	StatusOptimal Status = "optimal"
	StatusLow     Status = "low"
	StatusHigh    Status = "high"
	StatusNoData  Status = "no_data"
)

// StatReport is the aggregate computed over one class and one time window.
// StdDev is the sample standard deviation and is 0 (not NaN) for count <= 1,
// so report rendering never has to special-case small windows.
type StatReport struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"stddev"`
	Status Status  `json:"status"`
}
