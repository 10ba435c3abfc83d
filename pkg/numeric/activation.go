// Package numeric holds the activation functions and vector helpers shared by
// every model in the library.
package numeric

import "math"

// Sigmoid squashes x into (0, 1).
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// ReLU returns x when positive, else 0.
func ReLU(x float64) float64 {
	return math.Max(0, x)
}

// Tanh is the hyperbolic tangent activation.
func Tanh(x float64) float64 {
	return math.Tanh(x)
}
