package domain

// Alert is an informational exit signal emitted by the position tracker and
// consumed by an external executor; the tracker itself never places orders.
type Alert struct {
	Type               AlertType
	Symbol             string
	Message            string
	Recommendation     string
	CurrentPrice       float64
	PeakPrice          float64
	PerformancePct     float64
	PeakPerformancePct float64
	DropFromPeakPct    float64
	ThresholdPct       float64
}
