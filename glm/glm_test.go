package glm

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func designWithSlope(x []float64) (*mat.Dense, []string) {
	X := mat.NewDense(len(x), 2, nil)
	for i, v := range x {
		X.Set(i, 0, 1)
		X.Set(i, 1, v)
	}
	return X, []string{"Intercept", "x"}
}

func interceptOnly(n int) (*mat.Dense, []string) {
	X := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, 1)
	}
	return X, []string{"Intercept"}
}

func TestOLSSimpleRegression(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6}
	y := []float64{2.1, 3.9, 6.2, 7.8, 10.1, 11.9}

	X, names := designWithSlope(x)
	fit, err := Regress(Linear, X, names, y)
	if err != nil {
		t.Fatal(err)
	}

	wantSlope := 34.6 / 17.5
	wantIntercept := 7 - wantSlope*3.5
	if math.Abs(fit.Coef[1]-wantSlope) > 1e-9 {
		t.Errorf("slope = %v, want %v", fit.Coef[1], wantSlope)
	}
	if math.Abs(fit.Coef[0]-wantIntercept) > 1e-9 {
		t.Errorf("intercept = %v, want %v", fit.Coef[0], wantIntercept)
	}
	if fit.DFModel != 1 || fit.DFResid != 4 {
		t.Errorf("df = (%v, %v), want (1, 4)", fit.DFModel, fit.DFResid)
	}
	if math.Abs(fit.Scale-fit.SSR/4) > 1e-12 {
		t.Errorf("scale = %v, want ssr/dfResid = %v", fit.Scale, fit.SSR/4)
	}

	p, err := fit.PValue("x")
	if err != nil {
		t.Fatal(err)
	}
	if !(p > 0 && p < 0.001) {
		t.Errorf("slope p-value = %v, want strongly significant", p)
	}
	lo, hi, err := fit.ConfInt("x", 0.05)
	if err != nil {
		t.Fatal(err)
	}
	if !(lo < wantSlope && wantSlope < hi) {
		t.Errorf("CI (%v, %v) does not cover the slope %v", lo, hi, wantSlope)
	}
}

func TestOLSSingularDesign(t *testing.T) {
	// duplicated column
	X := mat.NewDense(5, 3, nil)
	for i := 0; i < 5; i++ {
		X.Set(i, 0, 1)
		X.Set(i, 1, float64(i))
		X.Set(i, 2, float64(i))
	}
	y := []float64{0, 1, 2, 3, 4}
	if _, err := Regress(Linear, X, []string{"Intercept", "a", "b"}, y); err == nil {
		t.Fatal("expected error for singular design")
	}
}

func TestOLSUnderdetermined(t *testing.T) {
	X, names := designWithSlope([]float64{1, 2})
	if _, err := Regress(Linear, X, names, []float64{1, 2}); err == nil {
		t.Fatal("expected error when observations do not exceed parameters")
	}
}

func TestLogitTwoByTwo(t *testing.T) {
	x := []float64{0, 0, 0, 0, 1, 1, 1, 1}
	y := []float64{0, 0, 0, 1, 0, 1, 1, 1}

	X, names := designWithSlope(x)
	fit, err := Regress(Logit, X, names, y)
	if err != nil {
		t.Fatal(err)
	}

	// odds ratio (3*3)/(1*1) = 9
	if math.Abs(fit.Coef[1]-math.Log(9)) > 1e-4 {
		t.Errorf("log odds ratio = %v, want %v", fit.Coef[1], math.Log(9))
	}
	if math.Abs(fit.Coef[0]-math.Log(1.0/3)) > 1e-4 {
		t.Errorf("intercept = %v, want %v", fit.Coef[0], math.Log(1.0/3))
	}
	if fit.Scale != 1 {
		t.Errorf("binomial scale = %v, want 1", fit.Scale)
	}
}

func TestLogitRejectsNonBinaryPhenotype(t *testing.T) {
	X, names := designWithSlope([]float64{1, 2, 3, 4})
	if _, err := Regress(Logit, X, names, []float64{0, 1, 2, 1}); err == nil {
		t.Fatal("expected error for non-binary phenotype")
	}
}

func TestLRTestNonNegative(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	y := []float64{1.2, 1.9, 3.4, 3.8, 5.3, 5.9, 7.1, 8.2}

	nullX, nullNames := interceptOnly(len(y))
	altX, altNames := designWithSlope(x)

	null, err := Regress(Linear, nullX, nullNames, y)
	if err != nil {
		t.Fatal(err)
	}
	alt, err := Regress(Linear, altX, altNames, y)
	if err != nil {
		t.Fatal(err)
	}

	stat, p := LRTest(null, alt)
	if stat < 0 {
		t.Errorf("LR statistic = %v, want non-negative", stat)
	}
	if !(p >= 0 && p <= 1) {
		t.Errorf("LR p-value = %v, want in [0,1]", p)
	}
}

func TestAnovaFLinear(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	y := []float64{1.2, 1.9, 3.4, 3.8, 5.3, 5.9, 7.1, 8.2}

	nullX, nullNames := interceptOnly(len(y))
	altX, altNames := designWithSlope(x)
	null, _ := Regress(Linear, nullX, nullNames, y)
	alt, _ := Regress(Linear, altX, altNames, y)

	stat, p := AnovaF(null, alt, y)
	if stat <= 0 {
		t.Errorf("F statistic = %v, want positive for a real effect", stat)
	}
	if !(p > 0 && p < 0.001) {
		t.Errorf("F p-value = %v, want strongly significant", p)
	}

	// with one added regressor the F test is the squared t test
	pv, err := alt.PValue("x")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(p-pv) > 1e-9 {
		t.Errorf("F p = %v and t p = %v should agree for a single regressor", p, pv)
	}
}

func TestBinomialDevianceMatchesLLF(t *testing.T) {
	x := []float64{0, 0, 0, 0, 1, 1, 1, 1}
	y := []float64{0, 0, 1, 1, 0, 1, 1, 1}

	X, names := designWithSlope(x)
	fit, err := Regress(Logit, X, names, y)
	if err != nil {
		t.Fatal(err)
	}
	dev := BinomialDeviance(y, fit)
	if math.Abs(dev-(-2*fit.LLF)) > 1e-9 {
		t.Errorf("deviance = %v, want -2*llf = %v", dev, -2*fit.LLF)
	}
}

func TestParseFamily(t *testing.T) {
	if f, err := ParseFamily("logit"); err != nil || f != Logit {
		t.Errorf("ParseFamily(logit) = %v, %v", f, err)
	}
	if f, err := ParseFamily("Linear"); err != nil || f != Linear {
		t.Errorf("ParseFamily(Linear) = %v, %v", f, err)
	}
	if _, err := ParseFamily("poisson"); err == nil {
		t.Error("expected error for unsupported family")
	}
}
