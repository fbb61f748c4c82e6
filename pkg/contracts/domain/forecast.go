package domain

// Field names one canonical column of a forecast series
type Field string

const (
	FieldDate         Field = "date"
	FieldActual       Field = "actual"
	FieldXGBoost      Field = "xgboost"
	FieldRandomForest Field = "randomForest"
	FieldLightGBM     Field = "lightGbm"
	FieldDNN          Field = "dnn"
	FieldConsensus    Field = "consensus"
)

// ModelFields lists the per-model prediction columns in export order
var ModelFields = []Field{FieldXGBoost, FieldRandomForest, FieldLightGBM, FieldDNN}

// SeriesFields lists every column of an exported series in order
var SeriesFields = []Field{
	FieldDate,
	FieldActual,
	FieldXGBoost,
	FieldRandomForest,
	FieldLightGBM,
	FieldDNN,
	FieldConsensus,
}

// ForecastPoint is one dated row of a series. A nil value means the field is
// absent, which is distinct from a zero observation or prediction.
type ForecastPoint struct {
	Date         string   `json:"date"`
	Actual       *float64 `json:"actual,omitempty"`
	XGBoost      *float64 `json:"xgboost,omitempty"`
	RandomForest *float64 `json:"randomForest,omitempty"`
	LightGBM     *float64 `json:"lightGbm,omitempty"`
	DNN          *float64 `json:"dnn,omitempty"`
	Consensus    *float64 `json:"consensus,omitempty"`
}

// Series is an ordered sequence of forecast points
type Series []ForecastPoint

// Float returns a pointer to v, for building points
func Float(v float64) *float64 {
	return &v
}

func (p *ForecastPoint) slot(f Field) **float64 {
	switch f {
	case FieldActual:
		return &p.Actual
	case FieldXGBoost:
		return &p.XGBoost
	case FieldRandomForest:
		return &p.RandomForest
	case FieldLightGBM:
		return &p.LightGBM
	case FieldDNN:
		return &p.DNN
	case FieldConsensus:
		return &p.Consensus
	}
	return nil
}

// Value returns the numeric value of f and whether it is present.
// FieldDate is not numeric and always reports false.
func (p ForecastPoint) Value(f Field) (float64, bool) {
	s := p.slot(f)
	if s == nil || *s == nil {
		return 0, false
	}
	return **s, true
}

// Set stores v into the numeric field f. Unknown fields are ignored.
func (p *ForecastPoint) Set(f Field, v float64) {
	if s := p.slot(f); s != nil {
		*s = Float(v)
	}
}

// Clone returns a deep copy, so callers can modify the copy freely
func (p ForecastPoint) Clone() ForecastPoint {
	out := ForecastPoint{Date: p.Date}
	for _, f := range SeriesFields[1:] {
		if v, ok := p.Value(f); ok {
			out.Set(f, v)
		}
	}
	return out
}

// Clone returns a deep copy of the series
func (s Series) Clone() Series {
	if s == nil {
		return nil
	}
	out := make(Series, len(s))
	for i, p := range s {
		out[i] = p.Clone()
	}
	return out
}
