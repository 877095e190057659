// Package glm fits the per-variant regression models: ordinary least
// squares for continuous phenotypes and a binomial-family GLM (logistic,
// via iteratively reweighted least squares) for binary phenotypes. Fits
// expose the log-likelihood and degrees-of-freedom bookkeeping needed for
// nested-model comparison.
package glm

import (
	"math"
	"strings"

	"github.com/pkg/errors"
	"go.dedis.ch/onet/v3/log"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Family is the model family, chosen by the phenotype.
type Family int

const (
	Linear Family = iota
	Logit
)

func (f Family) String() string {
	if f == Logit {
		return "logit"
	}
	return "linear"
}

// ParseFamily maps the config string to a Family; "logit" selects the
// binomial GLM, "linear" ordinary least squares.
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(s) {
	case "logit":
		return Logit, nil
	case "linear":
		return Linear, nil
	}
	return 0, errors.Errorf("unrecognized model family %q (want linear or logit)", s)
}

const (
	irlsMaxIter = 100
	irlsTol     = 1e-8
	muClamp     = 1e-10
)

// Fit is a fitted model. Scale is the OLS residual variance estimate or 1
// for the binomial family; DFModel excludes the intercept.
type Fit struct {
	Family  Family
	Names   []string
	Coef    []float64
	SE      []float64
	LLF     float64
	SSR     float64
	Scale   float64
	DFModel float64
	DFResid float64
	Mu      []float64
}

// Regress fits y on the design matrix X (which must already include the
// intercept column). Column names identify coefficients for reporting.
// Singular designs and degenerate residual degrees of freedom are errors;
// callers treat them as a per-variant skip, not a fatal condition.
func Regress(family Family, X *mat.Dense, names []string, y []float64) (*Fit, error) {
	n, p := X.Dims()
	if len(y) != n {
		return nil, errors.Errorf("design has %d rows but %d responses", n, len(y))
	}
	if len(names) != p {
		return nil, errors.Errorf("design has %d columns but %d names", p, len(names))
	}
	if n <= p {
		return nil, errors.Errorf("underdetermined model: %d observations for %d parameters", n, p)
	}

	switch family {
	case Linear:
		return fitOLS(X, names, y)
	case Logit:
		return fitIRLS(X, names, y)
	}
	return nil, errors.Errorf("unrecognized model family %v", family)
}

func fitOLS(X *mat.Dense, names []string, y []float64) (*Fit, error) {
	n, p := X.Dims()

	var qr mat.QR
	qr.Factorize(X)
	var beta mat.Dense
	if err := qr.SolveTo(&beta, false, mat.NewDense(n, 1, y)); err != nil {
		return nil, errors.Wrap(err, "singular design matrix")
	}

	coef := make([]float64, p)
	for j := 0; j < p; j++ {
		coef[j] = beta.At(j, 0)
	}

	mu := make([]float64, n)
	ssr := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			mu[i] += X.At(i, j) * coef[j]
		}
		r := y[i] - mu[i]
		ssr += r * r
	}

	dfResid := float64(n - p)
	scale := ssr / dfResid
	// concentrated Gaussian log-likelihood at the MLE variance ssr/n
	llf := -float64(n) / 2 * (math.Log(2*math.Pi*ssr/float64(n)) + 1)

	se, err := coefStdErr(X, nil, scale)
	if err != nil {
		return nil, err
	}

	return &Fit{
		Family:  Linear,
		Names:   names,
		Coef:    coef,
		SE:      se,
		LLF:     llf,
		SSR:     ssr,
		Scale:   scale,
		DFModel: float64(p - 1),
		DFResid: dfResid,
		Mu:      mu,
	}, nil
}

func fitIRLS(X *mat.Dense, names []string, y []float64) (*Fit, error) {
	n, p := X.Dims()
	for _, v := range y {
		if v != 0 && v != 1 {
			return nil, errors.Errorf("binomial family needs a 0/1 phenotype, got %g", v)
		}
	}

	mu := make([]float64, n)
	eta := make([]float64, n)
	for i := range y {
		mu[i] = (y[i] + 0.5) / 2
		eta[i] = math.Log(mu[i] / (1 - mu[i]))
	}

	w := make([]float64, n)
	z := make([]float64, n)
	Xw := mat.NewDense(n, p, nil)
	zw := make([]float64, n)
	coef := make([]float64, p)

	dev := math.Inf(1)
	converged := false
	for iter := 0; iter < irlsMaxIter; iter++ {
		for i := 0; i < n; i++ {
			w[i] = math.Max(mu[i]*(1-mu[i]), muClamp)
			z[i] = eta[i] + (y[i]-mu[i])/w[i]
			sw := math.Sqrt(w[i])
			for j := 0; j < p; j++ {
				Xw.Set(i, j, X.At(i, j)*sw)
			}
			zw[i] = z[i] * sw
		}

		var qr mat.QR
		qr.Factorize(Xw)
		var beta mat.Dense
		if err := qr.SolveTo(&beta, false, mat.NewDense(n, 1, zw)); err != nil {
			return nil, errors.Wrap(err, "singular design matrix")
		}
		for j := 0; j < p; j++ {
			coef[j] = beta.At(j, 0)
		}

		newDev := 0.0
		for i := 0; i < n; i++ {
			eta[i] = 0
			for j := 0; j < p; j++ {
				eta[i] += X.At(i, j) * coef[j]
			}
			mu[i] = clamp01(1 / (1 + math.Exp(-eta[i])))
			newDev -= 2 * bernoulliLogLik(y[i], mu[i])
		}

		if math.Abs(newDev-dev) < irlsTol {
			converged = true
			dev = newDev
			break
		}
		dev = newDev
	}
	if !converged {
		log.Warn("IRLS did not converge after", irlsMaxIter, "iterations; results may be unstable")
	}

	llf := 0.0
	ssr := 0.0
	for i := 0; i < n; i++ {
		llf += bernoulliLogLik(y[i], mu[i])
		r := y[i] - mu[i]
		ssr += r * r
	}

	se, err := coefStdErr(X, w, 1)
	if err != nil {
		return nil, err
	}

	return &Fit{
		Family:  Logit,
		Names:   names,
		Coef:    coef,
		SE:      se,
		LLF:     llf,
		SSR:     ssr,
		Scale:   1,
		DFModel: float64(p - 1),
		DFResid: float64(n - p),
		Mu:      mu,
	}, nil
}

// coefStdErr computes sqrt(diag((X'WX)^-1) * scale); w nil means identity
// weights.
func coefStdErr(X *mat.Dense, w []float64, scale float64) ([]float64, error) {
	n, p := X.Dims()

	Xw := X
	if w != nil {
		Xw = mat.NewDense(n, p, nil)
		for i := 0; i < n; i++ {
			sw := math.Sqrt(w[i])
			for j := 0; j < p; j++ {
				Xw.Set(i, j, X.At(i, j)*sw)
			}
		}
	}

	var xtx mat.Dense
	xtx.Mul(Xw.T(), Xw)
	var inv mat.Dense
	if err := inv.Inverse(&xtx); err != nil {
		return nil, errors.Wrap(err, "singular information matrix")
	}

	se := make([]float64, p)
	for j := 0; j < p; j++ {
		se[j] = math.Sqrt(inv.At(j, j) * scale)
	}
	return se, nil
}

func clamp01(v float64) float64 {
	if v < muClamp {
		return muClamp
	}
	if v > 1-muClamp {
		return 1 - muClamp
	}
	return v
}

func bernoulliLogLik(y, mu float64) float64 {
	return y*math.Log(mu) + (1-y)*math.Log(1-mu)
}

func (f *Fit) index(name string) (int, error) {
	for j, n := range f.Names {
		if n == name {
			return j, nil
		}
	}
	return 0, errors.Errorf("no coefficient named %q", name)
}

// CoefByName returns the fitted coefficient for one design column.
func (f *Fit) CoefByName(name string) (float64, error) {
	j, err := f.index(name)
	if err != nil {
		return 0, err
	}
	return f.Coef[j], nil
}

// PValue is the two-sided per-coefficient test: a t test against the
// residual degrees of freedom for OLS, a z test for the binomial family.
func (f *Fit) PValue(name string) (float64, error) {
	j, err := f.index(name)
	if err != nil {
		return 0, err
	}
	stat := math.Abs(f.Coef[j] / f.SE[j])
	if f.Family == Logit {
		return 2 * distuv.UnitNormal.Survival(stat), nil
	}
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: f.DFResid}
	return 2 * t.Survival(stat), nil
}

// ConfInt returns the (1-alpha) confidence interval for one coefficient.
func (f *Fit) ConfInt(name string, alpha float64) (lo, hi float64, err error) {
	j, err := f.index(name)
	if err != nil {
		return 0, 0, err
	}
	var crit float64
	if f.Family == Logit {
		crit = distuv.UnitNormal.Quantile(1 - alpha/2)
	} else {
		t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: f.DFResid}
		crit = t.Quantile(1 - alpha/2)
	}
	return f.Coef[j] - crit*f.SE[j], f.Coef[j] + crit*f.SE[j], nil
}
