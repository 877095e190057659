package assoc

import (
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/hlatools/hagwas/hla"
)

// haploFreqFloor drops haplotype columns whose frequency over 2N
// chromosomes is at or below 1%. Per-position allele frequency passed QC
// upstream, but the cross-position haplotype combination can still be too
// rare to model.
const haploFreqFloor = 0.01

// RefMissing is the sentinel reference label used when the all-absence
// haplotype is dropped: no real allele is being measured against.
const RefMissing = "missing"

// soloDoseLabel names the exposure column of a single-residue dosage
// variant.
const soloDoseLabel = "solo_amino_acid"

// HaploMatrix is a sample-by-haplotype matrix: per-sample label counts
// (0/1/2 for diploid hard calls) or continuous residue dosages.
type HaploMatrix struct {
	Samples []string
	Labels  []string
	M       *mat.Dense
}

// colSums returns per-label totals.
func (h *HaploMatrix) colSums() []float64 {
	sums := make([]float64, len(h.Labels))
	for j := range h.Labels {
		for i := range h.Samples {
			sums[j] += h.M.At(i, j)
		}
	}
	return sums
}

// argmaxCol returns the index of the highest-total column, ties broken by
// column order.
func (h *HaploMatrix) argmaxCol() int {
	sums := h.colSums()
	best := 0
	for j, s := range sums {
		if s > sums[best] {
			best = j
		}
	}
	return best
}

// dropCol removes one label column.
func (h *HaploMatrix) dropCol(j int) {
	labels := make([]string, 0, len(h.Labels)-1)
	labels = append(labels, h.Labels[:j]...)
	labels = append(labels, h.Labels[j+1:]...)

	if len(labels) == 0 {
		h.Labels = labels
		h.M = &mat.Dense{}
		return
	}
	m := mat.NewDense(len(h.Samples), len(labels), nil)
	for i := range h.Samples {
		for k := range labels {
			src := k
			if k >= j {
				src = k + 1
			}
			m.Set(i, k, h.M.At(i, src))
		}
	}
	h.Labels = labels
	h.M = m
}

func (h *HaploMatrix) labelIndex(label string) int {
	for j, l := range h.Labels {
		if l == label {
			return j
		}
	}
	return -1
}

// Block is the haplotype construction result for one variant: the exposure
// matrix with the reference column already removed, plus the counts that
// drive test-tier selection. AACount > 2 selects the omnibus tier, exactly
// 2 the univariate tier, anything lower skips modeling. HaploCount is the
// number of exposure columns belonging to the haplotype block.
type Block struct {
	Haplo      HaploMatrix
	AACount    int
	RefAA      string
	Alleles    []string
	HaploCount int
}

// buildHaploCounts turns per-copy call rows into the sample-by-label count
// matrix: concatenate calls across rows per haplotype copy, group the two
// copies of each sample by base id, count labels, then apply the haplotype
// frequency floor.
func buildHaploCounts(cells [][]string, copies []string) HaploMatrix {
	labels := make([]string, len(copies))
	for c := range copies {
		var b strings.Builder
		for r := range cells {
			b.WriteString(cells[r][c])
		}
		labels[c] = b.String()
	}

	counts := make(map[string]map[string]float64)
	var sampleOrder []string
	labelSet := make(map[string]bool)
	for c, copyID := range copies {
		base := strings.SplitN(copyID, ".", 2)[0]
		if counts[base] == nil {
			counts[base] = make(map[string]float64)
			sampleOrder = append(sampleOrder, base)
		}
		counts[base][labels[c]]++
		labelSet[labels[c]] = true
	}
	sort.Strings(sampleOrder)

	allLabels := make([]string, 0, len(labelSet))
	for l := range labelSet {
		allLabels = append(allLabels, l)
	}
	sort.Strings(allLabels)

	// frequency floor over 2N chromosomes
	n := float64(len(sampleOrder))
	var keep []string
	for _, l := range allLabels {
		total := 0.0
		for _, s := range sampleOrder {
			total += counts[s][l]
		}
		if total/2/n > haploFreqFloor {
			keep = append(keep, l)
		}
	}

	if len(keep) == 0 {
		return HaploMatrix{Samples: sampleOrder, M: &mat.Dense{}}
	}
	m := mat.NewDense(len(sampleOrder), len(keep), nil)
	for i, s := range sampleOrder {
		for j, l := range keep {
			m.Set(i, j, counts[s][l])
		}
	}
	return HaploMatrix{Samples: sampleOrder, Labels: keep, M: m}
}

// HardBlock builds the haplotype exposure matrix for one variant of a
// phased hard-call table.
//
// Multi-row variants form multi-position haplotype labels; if the
// all-absence label survives the frequency floor it is dropped first and
// the reference reported as "missing", otherwise the majority haplotype is
// dropped and its residue resolved for reporting. Single-row variants use
// the calls themselves as labels; with two or more surviving labels the
// majority is dropped (amino-acid count forced to 2 for tier selection),
// with fewer the variant carries no usable variation (count 0).
func HardBlock(sub *hla.SubData, rows []int) Block {
	rawIDs := make([]string, len(rows))
	cells := make([][]string, len(rows))
	for i, r := range rows {
		rawIDs[i] = sub.Info[r].Raw
		cells[i] = sub.Hard[r]
	}

	hm := buildHaploCounts(cells, sub.Samples)

	if len(rows) > 1 {
		alleles := resolveHaplotypes(rawIDs, hm.Labels)
		aaCount := len(hm.Labels)

		missing := strings.Repeat("A", len(rows))
		missing2 := strings.Repeat("a", len(rows))
		if j := hm.labelIndex(missing); j >= 0 {
			hm.dropCol(j)
			return Block{Haplo: hm, AACount: aaCount, RefAA: RefMissing, Alleles: alleles, HaploCount: len(hm.Labels)}
		}
		if j := hm.labelIndex(missing2); j >= 0 {
			hm.dropCol(j)
			return Block{Haplo: hm, AACount: aaCount, RefAA: RefMissing, Alleles: alleles, HaploCount: len(hm.Labels)}
		}
		if len(hm.Labels) == 0 {
			return Block{Haplo: hm, AACount: 0, Alleles: alleles}
		}

		ref := hm.argmaxCol()
		refLabel := hm.Labels[ref]
		hm.dropCol(ref)
		return Block{
			Haplo:      hm,
			AACount:    aaCount,
			RefAA:      refResidue(refLabel, rawIDs),
			Alleles:    alleles,
			HaploCount: len(hm.Labels),
		}
	}

	// single-position variant: labels are the observed calls themselves
	alleles := append([]string(nil), hm.Labels...)

	if len(alleles) > 1 {
		ref := hm.argmaxCol()
		refLabel := hm.Labels[ref]
		hm.dropCol(ref)
		return Block{Haplo: hm, AACount: 2, RefAA: refLabel, Alleles: alleles, HaploCount: len(hm.Labels)}
	}

	alleles = append(alleles, RefMissing)
	return Block{Haplo: hm, AACount: 0, RefAA: alleles[0], Alleles: alleles, HaploCount: len(hm.Labels)}
}

// SoftBlock builds the residue dosage exposure matrix for one variant of a
// dosage table.
//
// Multi-row variants keep only unambiguous single-letter residue rows and
// drop the highest-dosage residue as reference. A single-row variant is
// already the exposure; its reference identity comes from the marker-id
// suffix when that names a single residue, otherwise from the info table's
// allele columns.
func SoftBlock(sub *hla.SubData, rows []int) Block {
	if len(rows) > 1 {
		var residues []string
		var keep []int
		for _, r := range rows {
			res := residueOf(sub.Info[r].Raw)
			if len(res) == 1 {
				residues = append(residues, res)
				keep = append(keep, r)
			}
		}

		hm := transposeDose(sub, keep, residues)
		applyDoseFloor(&hm)

		alleles := append([]string(nil), hm.Labels...)
		aaCount := len(hm.Labels)
		if aaCount == 0 {
			return Block{Haplo: hm, AACount: 0, Alleles: alleles}
		}

		ref := hm.argmaxCol()
		refLabel := hm.Labels[ref]
		hm.dropCol(ref)
		return Block{Haplo: hm, AACount: aaCount, RefAA: refLabel, Alleles: alleles, HaploCount: len(hm.Labels)}
	}

	r := rows[0]
	hm := transposeDose(sub, rows, []string{soloDoseLabel})

	var refAA string
	var alleles []string
	if suffix := residueOf(sub.Info[r].Raw); len(suffix) == 1 {
		refAA = suffix
		alleles = []string{suffix, RefMissing}
	} else {
		refAA = sub.Info[r].AlleleA
		alleles = []string{sub.Info[r].AlleleA, sub.Info[r].AlleleB}
	}
	return Block{Haplo: hm, AACount: 2, RefAA: refAA, Alleles: alleles, HaploCount: len(hm.Labels)}
}

// transposeDose slices the given dosage rows and transposes them to a
// sample-by-residue matrix, samples sorted by id.
func transposeDose(sub *hla.SubData, rows []int, labels []string) HaploMatrix {
	order := make([]int, len(sub.Samples))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return sub.Samples[order[a]] < sub.Samples[order[b]]
	})

	samples := make([]string, len(order))
	for i, c := range order {
		samples[i] = sub.Samples[c]
	}
	if len(rows) == 0 {
		return HaploMatrix{Samples: samples, M: &mat.Dense{}}
	}
	m := mat.NewDense(len(order), len(rows), nil)
	for i, c := range order {
		for j, r := range rows {
			m.Set(i, j, sub.Dose.At(r, c))
		}
	}
	return HaploMatrix{Samples: samples, Labels: labels, M: m}
}

// applyDoseFloor drops residue columns with total dosage frequency at or
// below the floor.
func applyDoseFloor(hm *HaploMatrix) {
	n := float64(len(hm.Samples))
	sums := hm.colSums()
	for j := len(hm.Labels) - 1; j >= 0; j-- {
		if sums[j]/(2*n) <= haploFreqFloor {
			hm.dropCol(j)
			sums = append(sums[:j], sums[j+1:]...)
		}
	}
}
