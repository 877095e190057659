package assoc

import (
	"strconv"
	"strings"

	"github.com/exascience/pargo/parallel"
	"github.com/pkg/errors"
	"go.dedis.ch/onet/v3/log"

	"github.com/hlatools/hagwas/glm"
	"github.com/hlatools/hagwas/hla"
)

// NA is the rendered marker for statistics that were not computed. It is
// distinct from zero, which is a valid estimate.
const NA = "NA"

// NullFloat is a statistic that may be not-applicable: skipped test tiers
// and failed fits leave Valid false.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

func validFloat(v float64) NullFloat {
	return NullFloat{Float64: v, Valid: true}
}

func (nf NullFloat) String() string {
	if !nf.Valid {
		return NA
	}
	return strconv.FormatFloat(nf.Float64, 'g', -1, 64)
}

// AAResult is one amino-acid position's association output. Omnibus-tier
// variants fill LRp/AnovaP/MultiCoef, univariate-tier variants UniP/UniCoef;
// the untested tier stays not-applicable. LRpUniP coalesces whichever
// block-level p-value was computed.
type AAResult struct {
	Variant    string
	Gene       string
	AAPos      string
	LRp        NullFloat
	AnovaP     NullFloat
	MultiCoef  string
	UniP       NullFloat
	UniCoef    NullFloat
	AminoAcids string
	RefAA      string
	LRpUniP    NullFloat
}

// SNPResult is one SNP's univariate association output.
type SNPResult struct {
	Variant string
	Pos     string
	UniP    NullFloat
	UniCoef NullFloat
	CILo    NullFloat
	CIHi    NullFloat
}

// HLAResult is one classic HLA allele's univariate association output.
type HLAResult struct {
	Variant string
	Gene    string
	Pos     string
	UniP    NullFloat
	UniCoef NullFloat
	CILo    NullFloat
	CIHi    NullFloat
}

// prepareInput readies one variant class for analysis: covariates sorted by
// sample id with the phenotype rebased, and the genotype columns trimmed to
// the covariate sample set.
func prepareInput(sub *hla.SubData, fam *hla.Fam, ct hla.CallType) (*famSet, *hla.SubData, []string, error) {
	if ct != hla.HardCall && ct != hla.SoftCall {
		return nil, nil, nil, errors.Errorf("unrecognized call type %v", ct)
	}
	fs := prepareFam(fam)
	trimmed, err := sub.TrimToSamples(fs.ids, ct)
	if err != nil {
		return nil, nil, nil, err
	}
	return fs, trimmed, trimmed.VariantIDs(), nil
}

// AnalyseAA tests every amino-acid position: the omnibus tier (likelihood
// ratio + ANOVA F over the haplotype block) when more than two amino acids
// survive, the univariate tier at exactly two, and a not-applicable row
// otherwise. Variants run in parallel; each writes only its own result
// slot.
func AnalyseAA(data *hla.Data, fam *hla.Fam, family glm.Family) ([]AAResult, error) {
	fs, sub, variants, err := prepareInput(&data.AA, fam, data.Type)
	if err != nil {
		return nil, err
	}
	log.LLvl1("analysing", len(variants), "amino-acid positions")

	results := make([]AAResult, len(variants))
	parallel.Range(0, len(variants), 0, func(low, high int) {
		for i := low; i < high; i++ {
			results[i] = analyseAAVariant(variants[i], sub, fs, data.Type, family)
		}
	})

	for i := range results {
		switch {
		case results[i].LRp.Valid:
			results[i].LRpUniP = results[i].LRp
		case results[i].UniP.Valid:
			results[i].LRpUniP = results[i].UniP
		}
	}
	return results, nil
}

func analyseAAVariant(id string, sub *hla.SubData, fs *famSet, ct hla.CallType, family glm.Family) AAResult {
	rows := sub.RowsFor(id)
	inf := sub.Info[rows[0]]

	var blk Block
	if ct == hla.SoftCall {
		blk = SoftBlock(sub, rows)
	} else {
		blk = HardBlock(sub, rows)
	}

	res := AAResult{
		Variant:    id,
		Gene:       inf.Gene,
		AAPos:      inf.AAPos,
		MultiCoef:  NA,
		AminoAcids: joinDistinct(blk.Alleles),
		RefAA:      blk.RefAA,
	}

	switch {
	case blk.AACount > 2:
		at, err := assemble(blk.Haplo, fs)
		if err != nil {
			log.Error("skipping", id, ":", err)
			return res
		}
		lrp, anovap, coefs, err := omnibus(at, blk.HaploCount, family)
		if err != nil {
			log.Error("omnibus fit failed for", id, ":", err)
			return res
		}
		res.LRp = validFloat(lrp)
		res.AnovaP = validFloat(anovap)
		res.MultiCoef = joinCoefs(coefs)

	case blk.AACount == 2:
		at, err := assemble(blk.Haplo, fs)
		if err != nil {
			log.Error("skipping", id, ":", err)
			return res
		}
		p, coef, _, _, err := univariate(at, family)
		if err != nil {
			log.Error("univariate fit failed for", id, ":", err)
			return res
		}
		res.UniP = validFloat(p)
		res.UniCoef = validFloat(coef)

	default:
		// insufficient variation: nothing to test, no meaningful reference
		res.RefAA = NA
	}
	return res
}

// AnalyseSNP runs the univariate test for every SNP. Hard calls go through
// the haplotype builder (single-position path); dosages are used directly
// as the exposure.
func AnalyseSNP(data *hla.Data, fam *hla.Fam, family glm.Family) ([]SNPResult, error) {
	fs, sub, variants, err := prepareInput(&data.SNP, fam, data.Type)
	if err != nil {
		return nil, err
	}
	log.LLvl1("analysing", len(variants), "SNPs")

	results := make([]SNPResult, len(variants))
	parallel.Range(0, len(variants), 0, func(low, high int) {
		for i := low; i < high; i++ {
			results[i] = analyseSNPVariant(variants[i], sub, fs, data.Type, family)
		}
	})
	return results, nil
}

func analyseSNPVariant(id string, sub *hla.SubData, fs *famSet, ct hla.CallType, family glm.Family) SNPResult {
	rows := sub.RowsFor(id)
	inf := sub.Info[rows[0]]
	res := SNPResult{Variant: id, Pos: inf.Pos}

	var blk Block
	if ct == hla.SoftCall {
		labels := make([]string, len(rows))
		for i, r := range rows {
			labels[i] = sub.Info[r].Raw
		}
		hm := transposeDose(sub, rows, labels)
		blk = Block{Haplo: hm, AACount: 2, HaploCount: len(labels)}
	} else {
		blk = HardBlock(sub, rows)
	}

	if blk.AACount != 2 {
		return res
	}

	at, err := assemble(blk.Haplo, fs)
	if err != nil {
		log.Error("skipping", id, ":", err)
		return res
	}
	p, coef, ciLo, ciHi, err := univariate(at, family)
	if err != nil {
		log.Error("fit failed for", id, ":", err)
		return res
	}
	res.UniP = validFloat(p)
	res.UniCoef = validFloat(coef)
	res.CILo = validFloat(ciLo)
	res.CIHi = validFloat(ciHi)
	return res
}

// AnalyseHLA runs the univariate test for every classic 4-digit allele.
func AnalyseHLA(data *hla.Data, fam *hla.Fam, family glm.Family) ([]HLAResult, error) {
	fs, sub, variants, err := prepareInput(&data.HLA, fam, data.Type)
	if err != nil {
		return nil, err
	}
	log.LLvl1("analysing", len(variants), "HLA alleles")

	results := make([]HLAResult, len(variants))
	parallel.Range(0, len(variants), 0, func(low, high int) {
		for i := low; i < high; i++ {
			results[i] = analyseHLAVariant(variants[i], sub, fs, data.Type, family)
		}
	})
	return results, nil
}

func analyseHLAVariant(id string, sub *hla.SubData, fs *famSet, ct hla.CallType, family glm.Family) HLAResult {
	rows := sub.RowsFor(id)
	inf := sub.Info[rows[0]]
	res := HLAResult{Variant: id, Gene: inf.Gene, Pos: inf.Pos}

	var hm HaploMatrix
	if ct == hla.SoftCall {
		labels := make([]string, len(rows))
		for i, r := range rows {
			labels[i] = sub.Info[r].Raw
		}
		hm = transposeDose(sub, rows, labels)
	} else {
		hm = HardBlock(sub, rows).Haplo
	}

	at, err := assemble(hm, fs)
	if err != nil {
		log.Error("skipping", id, ":", err)
		return res
	}
	p, coef, ciLo, ciHi, err := univariate(at, family)
	if err != nil {
		log.Error("fit failed for", id, ":", err)
		return res
	}
	res.UniP = validFloat(p)
	res.UniCoef = validFloat(coef)
	res.CILo = validFloat(ciLo)
	res.CIHi = validFloat(ciHi)
	return res
}

// joinDistinct renders the allele list as a comma-separated set, first-seen
// order.
func joinDistinct(items []string) string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range items {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return strings.Join(out, ", ")
}

func joinCoefs(coefs []float64) string {
	parts := make([]string, len(coefs))
	for i, c := range coefs {
		parts[i] = strconv.FormatFloat(c, 'g', -1, 64)
	}
	return strings.Join(parts, ", ")
}
