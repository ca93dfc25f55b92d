package regression

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitRidgeConstantTarget(t *testing.T) {
	x := make([][]float64, 50)
	y := make([]float64, 50)
	for i := range x {
		a := 2 * math.Pi * float64(i) / 50
		x[i] = []float64{math.Sin(a), math.Cos(a)}
		y[i] = 100
	}

	m, err := FitRidge(x, y, 0.1)
	require.NoError(t, err)

	assert.InDelta(t, 100.0, m.Intercept, 1e-9)
	for _, c := range m.Coef {
		assert.InDelta(t, 0.0, c, 1e-9)
	}
	assert.InDelta(t, 100.0, m.Predict([]float64{0.3, -0.2}), 1e-9)
}

func TestFitRidgeMatchesClosedForm(t *testing.T) {
	// one feature: w = Sxy / (Sxx + alpha)
	x := [][]float64{{0}, {1}, {2}, {3}, {4}}
	y := []float64{1, 3, 5, 7, 9}
	alpha := 0.5

	m, err := FitRidge(x, y, alpha)
	require.NoError(t, err)

	// xMean = 2, Sxx = 10, Sxy = 20
	wantCoef := 20.0 / (10.0 + alpha)
	assert.InDelta(t, wantCoef, m.Coef[0], 1e-12)
	assert.InDelta(t, 5.0-2.0*wantCoef, m.Intercept, 1e-12)
	assert.Equal(t, 5, m.Samples)
}

func TestFitRidgeRecoversHarmonic(t *testing.T) {
	n := 365
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		x[i] = []float64{math.Sin(a), math.Cos(a)}
		y[i] = 10 + 3*math.Sin(a) - 2*math.Cos(a)
	}

	m, err := FitRidge(x, y, 1e-6)
	require.NoError(t, err)

	assert.InDelta(t, 10.0, m.Intercept, 1e-4)
	assert.InDelta(t, 3.0, m.Coef[0], 1e-4)
	assert.InDelta(t, -2.0, m.Coef[1], 1e-4)

	pred := m.PredictAll(x)
	for i := range y {
		assert.InDelta(t, y[i], pred[i], 1e-3)
	}
}

func TestFitRidgeDeterministic(t *testing.T) {
	x := [][]float64{{1, 2}, {2, 1}, {3, 5}, {4, 4}}
	y := []float64{1, 2, 3, 5}

	a, err := FitRidge(x, y, 0.1)
	require.NoError(t, err)
	b, err := FitRidge(x, y, 0.1)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestFitRidgeErrors(t *testing.T) {
	tests := []struct {
		name  string
		x     [][]float64
		y     []float64
		alpha float64
	}{
		{"no samples", nil, nil, 0.1},
		{"length mismatch", [][]float64{{1}, {2}}, []float64{1}, 0.1},
		{"ragged rows", [][]float64{{1, 2}, {2}}, []float64{1, 2}, 0.1},
		{"negative alpha", [][]float64{{1}, {2}}, []float64{1, 2}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FitRidge(tt.x, tt.y, tt.alpha)
			assert.Error(t, err)
		})
	}

	_, err := FitRidge(nil, nil, 0.1)
	assert.ErrorIs(t, err, ErrNoSamples)
	_, err = FitRidge([][]float64{{1}, {2}}, []float64{1}, 0.1)
	assert.ErrorIs(t, err, ErrShape)
}
