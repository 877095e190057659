package hla

import "gonum.org/v1/gonum/mat"

// michiganAT reports whether the input uses the Michigan HLA imputation
// convention, absence "A" / presence "T" with alleleA/alleleB in reverse
// order, which flips the dosage weighting.
func michiganAT(info []VariantInfo) bool {
	if len(info) == 0 {
		return false
	}
	return info[0].AlleleA == "A" && info[0].AlleleB == "T"
}

// probsToDosage collapses per-sample genotype probability triples (AA, AB,
// BB) to expected allele-A copy number: 2*AA + 1*AB + 0*BB, or the reverse
// weighting for Michigan-style A/T files.
func probsToDosage(info []VariantInfo, probs [][]float64, nSamples int) *mat.Dense {
	newAT := michiganAT(info)
	dose := mat.NewDense(len(probs), nSamples, nil)
	for r, row := range probs {
		for j := 0; j < nSamples; j++ {
			aa, ab, bb := row[3*j], row[3*j+1], row[3*j+2]
			if newAT {
				dose.Set(r, j, ab+2*bb)
			} else {
				dose.Set(r, j, 2*aa+ab)
			}
		}
	}
	return dose
}
