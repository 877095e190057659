package assoc

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/hlatools/hagwas/hla"
)

// famSet is the prepared covariate table: fam entries sorted by IID with
// the PLINK 1/2 phenotype rebased to 0/1. Entries with missing sex or
// phenotype stay for sample trimming but are excluded from model rows.
type famSet struct {
	ids     []string
	sex     []float64
	pheno   []float64
	missing []bool
}

func prepareFam(fam *hla.Fam) *famSet {
	sorted := fam.SortedByIID()
	fs := &famSet{}
	for _, e := range sorted.Entries {
		fs.ids = append(fs.ids, e.IID)
		fs.sex = append(fs.sex, e.Sex)
		fs.pheno = append(fs.pheno, e.Pheno-1)
		fs.missing = append(fs.missing, e.SexMissing || e.PhenoMissing)
	}
	return fs
}

// analysisTable is one variant's joined modeling input: exposure columns
// followed by sex and phenotype, one row per sample, index-aligned by
// explicit id lookup (never positional concatenation).
type analysisTable struct {
	expNames []string
	exp      *mat.Dense
	sex      []float64
	pheno    []float64
}

// assemble joins a haplotype matrix with the covariate table on sample id.
// Samples missing from either side, or with missing covariates, are left
// out; an empty join is an error.
func assemble(hm HaploMatrix, fs *famSet) (*analysisTable, error) {
	rowIx := make(map[string]int, len(hm.Samples))
	for i, s := range hm.Samples {
		rowIx[s] = i
	}

	var rows []int
	var sex, pheno []float64
	for i, id := range fs.ids {
		r, ok := rowIx[id]
		if !ok || fs.missing[i] {
			continue
		}
		rows = append(rows, r)
		sex = append(sex, fs.sex[i])
		pheno = append(pheno, fs.pheno[i])
	}
	if len(rows) == 0 {
		return nil, errors.New("no samples shared between genotype and covariate tables")
	}

	k := len(hm.Labels)
	var exp *mat.Dense
	if k > 0 {
		exp = mat.NewDense(len(rows), k, nil)
		for i, r := range rows {
			for j := 0; j < k; j++ {
				exp.Set(i, j, hm.M.At(r, j))
			}
		}
	}

	return &analysisTable{
		expNames: append([]string(nil), hm.Labels...),
		exp:      exp,
		sex:      sex,
		pheno:    pheno,
	}, nil
}

// design builds the regression design matrix [Intercept, sex dummies,
// selected exposure columns] with treatment coding for sex (lowest observed
// level is the baseline).
func (at *analysisTable) design(expCols []int) (*mat.Dense, []string) {
	levels := sexLevels(at.sex)
	dummies := levels[1:]

	n := len(at.pheno)
	p := 1 + len(dummies) + len(expCols)
	X := mat.NewDense(n, p, nil)
	names := make([]string, p)
	names[0] = "Intercept"
	for i := 0; i < n; i++ {
		X.Set(i, 0, 1)
	}
	for d, lv := range dummies {
		names[1+d] = fmt.Sprintf("SEX[T.%g]", lv)
		for i := 0; i < n; i++ {
			if at.sex[i] == lv {
				X.Set(i, 1+d, 1)
			}
		}
	}
	for c, j := range expCols {
		names[1+len(dummies)+c] = at.expNames[j]
		for i := 0; i < n; i++ {
			X.Set(i, 1+len(dummies)+c, at.exp.At(i, j))
		}
	}
	return X, names
}

// allExposures returns the index list of every exposure column.
func (at *analysisTable) allExposures() []int {
	cols := make([]int, len(at.expNames))
	for i := range cols {
		cols[i] = i
	}
	return cols
}

func sexLevels(sex []float64) []float64 {
	seen := make(map[float64]bool)
	var levels []float64
	for _, s := range sex {
		if !seen[s] {
			seen[s] = true
			levels = append(levels, s)
		}
	}
	sort.Float64s(levels)
	return levels
}
