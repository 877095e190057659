package hla

import (
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.dedis.ch/onet/v3/log"
	"gonum.org/v1/gonum/mat"
)

// QualityControl drops variants whose allele frequency across samples falls
// below alleleFilter (default 0.01). The checks differ per variant class and
// call type; haplotype-level frequency is re-checked later during haplotype
// construction, since a common per-position allele can still form a rare
// cross-position haplotype.
func (d *Data) QualityControl(alleleFilter float64) error {
	switch d.Type {
	case HardCall:
		qcSNPHard(&d.SNP, alleleFilter)
		qcHLAHard(&d.HLA, alleleFilter)
		qcAAHard(&d.AA, alleleFilter)
	case SoftCall:
		qcDose(&d.SNP, alleleFilter)
		qcDose(&d.HLA, alleleFilter)
		qcDose(&d.AA, alleleFilter)
	default:
		return errors.Errorf("unrecognized call type %v", d.Type)
	}
	log.LLvl1("QC done:", d.HLA.NumVariants(), "HLA,", d.SNP.NumVariants(), "SNP,",
		d.AA.NumVariants(), "AA rows kept")
	return nil
}

// qcSNPHard keeps SNP rows whose minor allele frequency exceeds the filter.
func qcSNPHard(s *SubData, filter float64) {
	var keep []int
	for i, row := range s.Hard {
		counts := cellCounts(row)
		min := 1.0
		for _, c := range counts {
			f := float64(c) / float64(len(row))
			if f < min {
				min = f
			}
		}
		if min > filter {
			keep = append(keep, i)
		}
	}
	s.selectRows(keep)
}

// qcHLAHard normalizes legacy presence markers (P) to T, then keeps alleles
// whose presence frequency exceeds the filter.
func qcHLAHard(s *SubData, filter float64) {
	var keep []int
	for i, row := range s.Hard {
		present := 0
		for j, cell := range row {
			if cell == "P" {
				row[j] = "T"
			}
			if row[j] == "T" {
				present++
			}
		}
		if float64(present)/float64(len(row)) > filter {
			keep = append(keep, i)
		}
	}
	s.selectRows(keep)
}

// qcAAHard applies the per-row amino-acid allele filter.
func qcAAHard(s *SubData, filter float64) {
	var keep []int
	for i, row := range s.Hard {
		if keepAAAllele(s.Info[i].ID, row, filter) {
			keep = append(keep, i)
		}
	}
	s.selectRows(keep)
}

// keepAAAllele decides whether one amino-acid genotype row survives QC.
// A row that is pure absence carries no information; an absence/presence
// row is dropped when absence dominates beyond 1-filter; rows with other
// residue codes are dropped when the rarest code falls under the filter.
func keepAAAllele(id string, row []string, filter float64) bool {
	counts := cellCounts(row)
	n := float64(len(row))

	switch len(counts) {
	case 1:
		for cell := range counts {
			if cell == "A" {
				return false
			}
		}
		return true
	case 2:
		_, hasA := counts["A"]
		_, hasP := counts["P"]
		_, hasT := counts["T"]
		if hasA && (hasP || hasT) {
			return float64(counts["A"])/n <= 1-filter
		}
		min := n
		for _, c := range counts {
			if float64(c) < min {
				min = float64(c)
			}
		}
		return min/n >= filter
	default:
		// more than two codes on an absence/presence row is unexpected;
		// keep the row but flag it for inspection
		log.Error("unexpected allele codes on row", id, "- keeping")
		return true
	}
}

// qcDose keeps dosage rows whose total dosage over 2N chromosomes exceeds
// the filter.
func qcDose(s *SubData, filter float64) {
	if s.Dose == nil {
		return
	}
	_, cols := s.Dose.Dims()
	var keep []int
	for i := range s.Info {
		sum, _ := stats.Sum(mat.Row(nil, i, s.Dose))
		if sum/(2*float64(cols)) > filter {
			keep = append(keep, i)
		}
	}
	s.selectRows(keep)
}

func cellCounts(row []string) map[string]int {
	counts := make(map[string]int)
	for _, cell := range row {
		counts[cell]++
	}
	return counts
}
