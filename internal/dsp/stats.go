package dsp

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean of x, or 0 for empty input.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

// StdDev returns the population standard deviation of x.
func StdDev(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.PopStdDev(x, nil)
}

// MinMax returns the minimum and maximum of x, or (0, 0) for empty input.
func MinMax(x []float64) (min, max float64) {
	if len(x) == 0 {
		return 0, 0
	}
	min, max = x[0], x[0]
	for _, v := range x[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// Regression holds an ordinary least squares line fit.
type Regression struct {
	Slope     float64
	Intercept float64
	R2        float64
}

// LinearRegression fits y = intercept + slope*x and reports R-squared.
// Fewer than two points return a zero-valued fit; zero x variance
// returns a flat line at the mean of y with R-squared 0.
func LinearRegression(x, y []float64) Regression {
	if len(x) < 2 || len(x) != len(y) {
		return Regression{}
	}
	if stat.Variance(x, nil) == 0 {
		return Regression{Intercept: Mean(y)}
	}
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	r2 := stat.RSquared(x, y, nil, alpha, beta)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		r2 = 0
	}
	return Regression{Slope: beta, Intercept: alpha, R2: r2}
}

// Pearson returns the Pearson correlation of x and y, guarding against
// zero variance in either input.
func Pearson(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}
