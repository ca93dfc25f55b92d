// Package regression fits L2-regularized linear models on small dense
// design matrices. It knows nothing about tables or factors.
package regression

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrNoSamples is returned when the design matrix is empty
	ErrNoSamples = errors.New("regression: no samples")
	// ErrShape is returned when X and y disagree in length or width
	ErrShape = errors.New("regression: inconsistent shape")
)

// Model is a fitted ridge regression: y = Intercept + Coef . x
type Model struct {
	Intercept float64   `json:"intercept"`
	Coef      []float64 `json:"coef"`
	Alpha     float64   `json:"alpha"`
	Samples   int       `json:"samples"`
}

// FitRidge fits y ~ X with an unpenalized intercept and an L2 penalty
// alpha on the coefficients. X and y are centered, then
// (Xc'Xc + alpha I) w = Xc'yc is solved by Cholesky; intercept is
// mean(y) - mean(X) . w. The solution is unique for alpha > 0.
func FitRidge(x [][]float64, y []float64, alpha float64) (*Model, error) {
	n := len(x)
	if n == 0 {
		return nil, ErrNoSamples
	}
	if len(y) != n {
		return nil, fmt.Errorf("%w: %d rows, %d targets", ErrShape, n, len(y))
	}
	p := len(x[0])
	if p == 0 {
		return nil, fmt.Errorf("%w: zero features", ErrShape)
	}
	if alpha < 0 {
		return nil, fmt.Errorf("regression: negative alpha %v", alpha)
	}

	design := mat.NewDense(n, p, nil)
	for i, row := range x {
		if len(row) != p {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrShape, i, len(row), p)
		}
		design.SetRow(i, row)
	}

	xMean := make([]float64, p)
	col := make([]float64, n)
	for j := 0; j < p; j++ {
		mat.Col(col, j, design)
		xMean[j] = stat.Mean(col, nil)
	}
	yMean := stat.Mean(y, nil)

	centered := mat.NewDense(n, p, nil)
	centered.Apply(func(i, j int, v float64) float64 {
		return v - xMean[j]
	}, design)

	yc := make([]float64, n)
	copy(yc, y)
	floats.AddConst(-yMean, yc)
	target := mat.NewVecDense(n, yc)

	var gram mat.Dense
	gram.Mul(centered.T(), centered)
	normal := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			v := gram.At(i, j)
			if i == j {
				v += alpha
			}
			normal.SetSym(i, j, v)
		}
	}

	var rhs mat.VecDense
	rhs.MulVec(centered.T(), target)

	var w mat.VecDense
	var chol mat.Cholesky
	if chol.Factorize(normal) {
		if err := chol.SolveVecTo(&w, &rhs); err != nil {
			return nil, fmt.Errorf("regression: cholesky solve: %w", err)
		}
	} else {
		// alpha == 0 with a rank-deficient design falls back to least squares
		if err := w.SolveVec(normal, &rhs); err != nil {
			return nil, fmt.Errorf("regression: solve normal equations: %w", err)
		}
	}

	coef := make([]float64, p)
	for j := range coef {
		coef[j] = w.AtVec(j)
	}

	return &Model{
		Intercept: yMean - floats.Dot(xMean, coef),
		Coef:      coef,
		Alpha:     alpha,
		Samples:   n,
	}, nil
}

// Predict evaluates the model at a single feature vector
func (m *Model) Predict(x []float64) float64 {
	return m.Intercept + floats.Dot(m.Coef, x)
}

// PredictAll evaluates the model at every row of x
func (m *Model) PredictAll(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = m.Predict(row)
	}
	return out
}
