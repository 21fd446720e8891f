package forecast

import (
	"errors"
	"math"
)

// Feature count including the intercept term.
const coefficientCount = 5

var errSingularMatrix = errors.New("design matrix is singular")

// fitLinear fits price ~ intercept + t + dow + lag1 + ma7 by solving the
// normal equations. alpha > 0 adds ridge regularization to the feature
// weights; the intercept is never penalized. alpha == 0 is ordinary least
// squares.
func fitLinear(rows []featureRow, alpha float64) ([]float64, error) {
	if len(rows) == 0 {
		return nil, errors.New("no rows to fit")
	}

	var xtx [coefficientCount][coefficientCount]float64
	var xty [coefficientCount]float64

	for _, row := range rows {
		x := designVector(row)
		for i := 0; i < coefficientCount; i++ {
			for j := 0; j < coefficientCount; j++ {
				xtx[i][j] += x[i] * x[j]
			}
			xty[i] += x[i] * row.Price
		}
	}

	for i := 1; i < coefficientCount; i++ {
		xtx[i][i] += alpha
	}

	return solve(xtx, xty)
}

func designVector(row featureRow) [coefficientCount]float64 {
	return [coefficientCount]float64{1, row.T, row.DOW, row.Lag1, row.MA7}
}

// predict evaluates a fitted model on one feature row.
func predict(coef []float64, row featureRow) float64 {
	x := designVector(row)
	var sum float64
	for i := 0; i < coefficientCount; i++ {
		sum += coef[i] * x[i]
	}
	return sum
}

// solve runs Gaussian elimination with partial pivoting on the 5x5 system.
func solve(a [coefficientCount][coefficientCount]float64, b [coefficientCount]float64) ([]float64, error) {
	const n = coefficientCount

	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, errSingularMatrix
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for row := col + 1; row < n; row++ {
			factor := a[row][col] / a[col][col]
			for k := col; k < n; k++ {
				a[row][k] -= factor * a[col][k]
			}
			b[row] -= factor * b[col]
		}
	}

	coef := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := b[row]
		for col := row + 1; col < n; col++ {
			sum -= a[row][col] * coef[col]
		}
		coef[row] = sum / a[row][row]
	}
	return coef, nil
}

func meanAbsoluteError(actual, predicted []float64) float64 {
	var sum float64
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual))
}

func rootMeanSquaredError(actual, predicted []float64) float64 {
	var sum float64
	for i := range actual {
		diff := actual[i] - predicted[i]
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(actual)))
}
