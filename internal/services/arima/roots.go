package arima

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// maxRootModulus returns the largest |lambda| over eigenvalues of the companion
// matrix of x^k - c1 x^(k-1) - ... - ck. A lag polynomial 1 - c1 B - ... - ck B^k
// has all roots outside the unit circle exactly when the result is below 1.
func maxRootModulus(c []float64) float64 {
	switch len(c) {
	case 0:
		return 0
	case 1:
		return math.Abs(c[0])
	}
	k := len(c)
	comp := mat.NewDense(k, k, nil)
	for j := 0; j < k; j++ {
		comp.Set(0, j, c[j])
	}
	for i := 1; i < k; i++ {
		comp.Set(i, i-1, 1)
	}
	var eig mat.Eigen
	if ok := eig.Factorize(comp, mat.EigenNone); !ok {
		return math.Inf(1)
	}
	var worst float64
	for _, v := range eig.Values(nil) {
		if m := cmplx.Abs(v); m > worst {
			worst = m
		}
	}
	return worst
}

// stationary reports whether 1 - sum(phi_i B^i) has no roots on or inside the unit circle.
func stationary(phi []float64) bool {
	return maxRootModulus(phi) < 1
}

// invertible reports the same for 1 + sum(theta_j B^j).
func invertible(theta []float64) bool {
	neg := make([]float64, len(theta))
	for i, v := range theta {
		neg[i] = -v
	}
	return maxRootModulus(neg) < 1
}

// multiplyLag multiplies two lag polynomials given constant term first.
func multiplyLag(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, x := range a {
		for j, y := range b {
			out[i+j] += x * y
		}
	}
	return out
}
