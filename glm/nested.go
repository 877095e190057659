package glm

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// LRTest is the likelihood-ratio test between two nested fits: statistic
// 2*(llfAlt - llfNull) against a chi-squared with the difference in model
// degrees of freedom. The statistic is non-negative whenever the null's
// regressors are a subset of the alternative's.
func LRTest(null, alt *Fit) (stat, p float64) {
	stat = 2 * (alt.LLF - null.LLF)
	dof := alt.DFModel - null.DFModel
	if dof <= 0 {
		return stat, math.NaN()
	}
	chi2 := distuv.ChiSquared{K: dof}
	return stat, chi2.Survival(stat)
}

// BinomialDeviance is the residual deviance of a logistic fit, twice the
// unnormalized log-loss of the observed classes against fitted
// probabilities.
func BinomialDeviance(y []float64, f *Fit) float64 {
	dev := 0.0
	for i, mu := range f.Mu {
		dev -= 2 * bernoulliLogLik(y[i], clamp01(mu))
	}
	return dev
}

// AnovaF is the ANOVA-style F test between two nested fits. The deviance is
// the residual sum of squares for linear models and the binomial residual
// deviance for logistic models; the statistic is the per-degree-of-freedom
// deviance drop scaled by the alternative model's dispersion.
func AnovaF(null, alt *Fit, y []float64) (stat, p float64) {
	var nullDev, altDev float64
	if alt.Family == Logit {
		nullDev = BinomialDeviance(y, null)
		altDev = BinomialDeviance(y, alt)
	} else {
		nullDev = null.SSR
		altDev = alt.SSR
	}

	dof := null.DFResid - alt.DFResid
	if dof <= 0 || alt.DFResid <= 0 {
		return math.NaN(), math.NaN()
	}

	stat = (nullDev - altDev) / dof / alt.Scale
	fdist := distuv.F{D1: dof, D2: alt.DFResid}
	return stat, fdist.Survival(stat)
}
