package credit

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/mimir-aip/microfinance-go/pkg/models"
	"github.com/mimir-aip/microfinance-go/pkg/numeric"
)

// GraphNeuralNetwork scores social influence with one hop of propagation over
// a connection matrix.
type GraphNeuralNetwork struct {
	weights [][]float64
	bias    []float64
}

// GraphState is the serializable parameter set of a GraphNeuralNetwork.
type GraphState struct {
	Weights [][]float64 `json:"weights"`
	Bias    []float64   `json:"bias"`
}

// NewGraphNeuralNetwork creates a size×size network with random parameters.
func NewGraphNeuralNetwork(size int, rng *rand.Rand) *GraphNeuralNetwork {
	weights := make([][]float64, size)
	for i := range weights {
		weights[i] = numeric.RandomWeights(rng, size)
	}
	return &GraphNeuralNetwork{
		weights: weights,
		bias:    numeric.RandomWeights(rng, size),
	}
}

// Size returns the node count the network was built for.
func (g *GraphNeuralNetwork) Size() int {
	return len(g.bias)
}

func (g *GraphNeuralNetwork) validate(nodes []float64, connections [][]float64) error {
	n := len(g.bias)
	if err := numeric.CheckLen("graph nodes", n, nodes); err != nil {
		return err
	}
	if len(connections) != n {
		return errors.Wrapf(models.ErrDimensionMismatch, "graph connections: expected %d rows, got %d", n, len(connections))
	}
	return numeric.CheckRows("graph connections", n, connections)
}

// propagate returns the node outputs and the per-node influence scalars.
func (g *GraphNeuralNetwork) propagate(nodes []float64, connections [][]float64) ([]float64, []float64) {
	out := make([]float64, len(nodes))
	influence := make([]float64, len(nodes))
	for i := range nodes {
		influence[i] = numeric.Dot(nodes, connections[i])
		sum := g.bias[i]
		for _, w := range g.weights[i] {
			sum += w * influence[i]
		}
		out[i] = numeric.ReLU(sum)
	}
	return out, influence
}

// Predict returns one score per node.
func (g *GraphNeuralNetwork) Predict(nodes []float64, connections [][]float64) ([]float64, error) {
	if err := g.validate(nodes, connections); err != nil {
		return nil, err
	}
	out, _ := g.propagate(nodes, connections)
	return out, nil
}

// Train takes one simultaneous squared-error gradient step per epoch across
// all nodes, each computed from the latest propagation. The ReLU is treated
// as the identity on the backward pass so silent nodes still learn.
func (g *GraphNeuralNetwork) Train(nodes []float64, connections [][]float64, targets []float64, epochs int, lr float64) error {
	if err := g.validate(nodes, connections); err != nil {
		return err
	}
	if err := numeric.CheckLen("graph targets", len(g.bias), targets); err != nil {
		return err
	}

	for epoch := 0; epoch < epochs; epoch++ {
		out, influence := g.propagate(nodes, connections)
		for i := range g.weights {
			diff := out[i] - targets[i]
			g.bias[i] -= lr * diff
			for k := range g.weights[i] {
				g.weights[i][k] -= lr * diff * influence[i]
			}
		}
	}
	return nil
}

// Snapshot copies the current parameters.
func (g *GraphNeuralNetwork) Snapshot() GraphState {
	return GraphState{Weights: numeric.CloneMatrix(g.weights), Bias: numeric.Clone(g.bias)}
}

// Restore replaces the parameters; the matrix must be size×size.
func (g *GraphNeuralNetwork) Restore(state GraphState) error {
	n := len(g.bias)
	if err := numeric.CheckLen("graph bias", n, state.Bias); err != nil {
		return err
	}
	if len(state.Weights) != n {
		return errors.Wrapf(models.ErrDimensionMismatch, "graph weights: expected %d rows, got %d", n, len(state.Weights))
	}
	if err := numeric.CheckRows("graph weights", n, state.Weights); err != nil {
		return err
	}
	g.weights = numeric.CloneMatrix(state.Weights)
	g.bias = numeric.Clone(state.Bias)
	return nil
}
