// Package esg implements ESG tracking: per-source aggregation, the impact
// curve scorer, a linear impact regressor, the green balance optimizer and a
// stateless presentation map.
package esg

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/mimir-aip/microfinance-go/pkg/models"
)

// sourceMeans averages every source. Any empty source fails the whole call.
func sourceMeans(data map[string][]float64) (map[string]float64, error) {
	out := make(map[string]float64, len(data))
	for source, values := range data {
		if len(values) == 0 {
			return nil, errors.Wrapf(models.ErrEmptyInput, "esg source %q", source)
		}
		out[source] = stat.Mean(values, nil)
	}
	return out, nil
}

// DataAggregator keeps a cumulative per-source mean. Later blends overwrite
// the same source keys and leave the others in place.
type DataAggregator struct {
	data map[string]float64
}

// AggregatorState is the serializable cumulative map.
type AggregatorState struct {
	Data map[string]float64 `json:"data"`
}

func NewDataAggregator() *DataAggregator {
	return &DataAggregator{data: make(map[string]float64)}
}

// Blend merges the per-source means into the cumulative map and returns a
// copy of it.
func (a *DataAggregator) Blend(sources map[string][]float64) (map[string]float64, error) {
	means, err := sourceMeans(sources)
	if err != nil {
		return nil, err
	}
	for k, v := range means {
		a.data[k] = v
	}
	return a.Data(), nil
}

// Data returns a copy of the cumulative map.
func (a *DataAggregator) Data() map[string]float64 {
	out := make(map[string]float64, len(a.data))
	for k, v := range a.data {
		out[k] = v
	}
	return out
}

func (a *DataAggregator) Snapshot() AggregatorState {
	return AggregatorState{Data: a.Data()}
}

func (a *DataAggregator) Restore(state AggregatorState) error {
	data := make(map[string]float64, len(state.Data))
	for k, v := range state.Data {
		data[k] = v
	}
	a.data = data
	return nil
}

// Visualizer is the stateless presentation variant of the aggregator.
type Visualizer struct{}

// Map returns the per-source mean of data without retaining anything.
func (Visualizer) Map(data map[string][]float64) (map[string]float64, error) {
	return sourceMeans(data)
}
