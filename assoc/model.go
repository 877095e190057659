package assoc

import (
	"math"

	"github.com/pkg/errors"

	"github.com/hlatools/hagwas/glm"
)

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// univariate fits the single-exposure model and reports the first exposure
// column's p-value, coefficient and 95% confidence interval.
func univariate(at *analysisTable, family glm.Family) (p, coef, ciLo, ciHi float64, err error) {
	if len(at.expNames) == 0 {
		return 0, 0, 0, 0, errors.New("no exposure columns to test")
	}
	X, names := at.design(at.allExposures())
	fit, err := glm.Regress(family, X, names, at.pheno)
	if err != nil {
		return 0, 0, 0, 0, err
	}

	target := at.expNames[0]
	if p, err = fit.PValue(target); err != nil {
		return 0, 0, 0, 0, err
	}
	if coef, err = fit.CoefByName(target); err != nil {
		return 0, 0, 0, 0, err
	}
	if ciLo, ciHi, err = fit.ConfInt(target, 0.05); err != nil {
		return 0, 0, 0, 0, err
	}
	return p, round3(coef), ciLo, ciHi, nil
}

// omnibus runs the joint test over the haplotype block: the alternative
// model carries every exposure column, the null keeps only conditioning
// covariates beyond the block (or sex alone). Reports the likelihood-ratio
// and ANOVA F p-values plus the per-haplotype coefficients.
func omnibus(at *analysisTable, haploCount int, family glm.Family) (lrp, anovap float64, coefs []float64, err error) {
	all := at.allExposures()
	altX, altNames := at.design(all)
	nullX, nullNames := at.design(all[haploCount:])

	alt, err := glm.Regress(family, altX, altNames, at.pheno)
	if err != nil {
		return 0, 0, nil, err
	}
	null, err := glm.Regress(family, nullX, nullNames, at.pheno)
	if err != nil {
		return 0, 0, nil, err
	}

	_, lrp = glm.LRTest(null, alt)
	_, anovap = glm.AnovaF(null, alt, at.pheno)

	coefs = make([]float64, haploCount)
	for i := 0; i < haploCount; i++ {
		c, err := alt.CoefByName(at.expNames[i])
		if err != nil {
			return 0, 0, nil, err
		}
		coefs[i] = round3(c)
	}
	return lrp, anovap, coefs, nil
}
