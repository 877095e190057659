// Package hla holds the genotype data model for HLA association analysis:
// the three variant classes (classic HLA alleles, SNPs, amino-acid
// positions), their info records, the fam-file covariate table, and the
// allele-frequency quality control applied before modeling.
package hla

import (
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// CallType says whether the genotype matrices carry phased hard calls or
// imputed dosages. The two paths build haplotype matrices differently.
type CallType int

const (
	HardCall CallType = iota
	SoftCall
)

func (t CallType) String() string {
	switch t {
	case HardCall:
		return "hardcall"
	case SoftCall:
		return "softcall"
	}
	return "unknown"
}

// ParseCallType maps the config string to a CallType. Anything other than
// "hardcall" or "softcall" is an error, not a silent fallback.
func ParseCallType(s string) (CallType, error) {
	switch strings.ToLower(s) {
	case "hardcall":
		return HardCall, nil
	case "softcall":
		return SoftCall, nil
	}
	return 0, errors.Errorf("unrecognized call type %q (want hardcall or softcall)", s)
}

// VariantInfo is the decomposed variant identifier: AA_A_19_29910588_F
// becomes ID=AA_A_19_29910588, Type=AA, Gene=A, AAPos=19, Pos=29910588.
// Raw keeps the full marker id, whose trailing token names the residue.
// AlleleA/AlleleB are only set for dosage inputs that carry allele columns.
type VariantInfo struct {
	Raw     string
	ID      string
	Type    string
	Gene    string
	AAPos   string
	Pos     string
	AlleleA string
	AlleleB string
}

// SubData is one variant class: one VariantInfo per row, aligned with the
// genotype cells. Hard holds single-character calls per sample copy; Dose
// holds row-by-sample dosages. Exactly one of the two is non-nil.
type SubData struct {
	Info    []VariantInfo
	Samples []string
	Hard    [][]string
	Dose    *mat.Dense
}

// NumVariants returns the number of genotype rows.
func (s *SubData) NumVariants() int { return len(s.Info) }

// VariantIDs returns the distinct AA_IDs in first-seen row order.
func (s *SubData) VariantIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, inf := range s.Info {
		if !seen[inf.ID] {
			seen[inf.ID] = true
			ids = append(ids, inf.ID)
		}
	}
	return ids
}

// RowsFor returns the row indices belonging to one AA_ID, in row order.
func (s *SubData) RowsFor(id string) []int {
	var rows []int
	for i, inf := range s.Info {
		if inf.ID == id {
			rows = append(rows, i)
		}
	}
	return rows
}

// selectRows keeps the given rows (in order) of both info and genotype.
func (s *SubData) selectRows(keep []int) {
	info := make([]VariantInfo, len(keep))
	for i, r := range keep {
		info[i] = s.Info[r]
	}
	s.Info = info

	if s.Hard != nil {
		hard := make([][]string, len(keep))
		for i, r := range keep {
			hard[i] = s.Hard[r]
		}
		s.Hard = hard
		return
	}
	if s.Dose != nil {
		_, c := s.Dose.Dims()
		d := mat.NewDense(len(keep), c, nil)
		for i, r := range keep {
			d.SetRow(i, mat.Row(nil, r, s.Dose))
		}
		s.Dose = d
	}
}

// TrimToSamples restricts the genotype columns to the given sample set,
// typically the fam-file samples when imputation emitted a superset. For
// hard calls each sample expands to its two haplotype copies (id, id+".1").
// Samples absent from the genotype are dropped from the result; an empty
// intersection is an error.
func (s *SubData) TrimToSamples(ids []string, ct CallType) (*SubData, error) {
	colIx := make(map[string]int, len(s.Samples))
	for i, c := range s.Samples {
		colIx[c] = i
	}

	var cols []int
	var names []string
	for _, id := range ids {
		want := []string{id}
		if ct == HardCall {
			want = []string{id, id + ".1"}
		}
		ok := true
		for _, w := range want {
			if _, found := colIx[w]; !found {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		for _, w := range want {
			cols = append(cols, colIx[w])
			names = append(names, w)
		}
	}
	if len(cols) == 0 {
		return nil, errors.New("no overlap between fam samples and genotype samples")
	}

	out := &SubData{Info: s.Info, Samples: names}
	if s.Hard != nil {
		out.Hard = make([][]string, len(s.Hard))
		for r, row := range s.Hard {
			cells := make([]string, len(cols))
			for i, c := range cols {
				cells[i] = row[c]
			}
			out.Hard[r] = cells
		}
	}
	if s.Dose != nil {
		r, _ := s.Dose.Dims()
		d := mat.NewDense(r, len(cols), nil)
		for i := 0; i < r; i++ {
			for j, c := range cols {
				d.Set(i, j, s.Dose.At(i, c))
			}
		}
		out.Dose = d
	}
	return out, nil
}

// Data is the full HLA genotype container: the three variant classes plus
// the call type governing which analysis path applies.
type Data struct {
	HLA  SubData
	SNP  SubData
	AA   SubData
	Type CallType
}

// hypothetical upper bound on amino-acid positions; genomic coordinates in
// the extended MHC are far larger. Used to detect legacy imputation outputs
// with AA_POS and POS swapped on SNP rows.
const maxAAPos = 33333

// partition splits parsed rows into the three variant classes, applying the
// container-level fixups: SNP position-column swap for legacy inputs, and
// restriction of the AA class to multi-position blocks (single-position
// amino acids carry no haplotype information beyond the SNP class).
func partition(info []VariantInfo, samples []string, hard [][]string, dose *mat.Dense, ct CallType) *Data {
	d := &Data{Type: ct}

	pick := func(typ string) SubData {
		var keep []int
		for i, inf := range info {
			if inf.Type == typ {
				keep = append(keep, i)
			}
		}
		sub := SubData{Info: info, Samples: samples, Hard: hard, Dose: dose}
		sub.selectRows(keep)
		return sub
	}

	d.HLA = pick("HLA")
	d.SNP = pick("SNP")
	d.AA = pick("AA")

	fixSNPPositions(&d.SNP)
	restrictAAToBlocks(&d.AA)

	return d
}

// fixSNPPositions swaps AA_POS and POS on all SNP rows when any AA_POS
// exceeds the plausible amino-acid range, which marks an older imputation
// output with the two columns reversed.
func fixSNPPositions(s *SubData) {
	swap := false
	for _, inf := range s.Info {
		if n := atoiSafe(inf.AAPos); n > maxAAPos {
			swap = true
			break
		}
	}
	if !swap {
		return
	}
	for i := range s.Info {
		s.Info[i].AAPos, s.Info[i].Pos = s.Info[i].Pos, s.Info[i].AAPos
	}
}

// restrictAAToBlocks keeps only AA_IDs spanning more than one genotype row.
func restrictAAToBlocks(s *SubData) {
	count := make(map[string]int)
	for _, inf := range s.Info {
		count[inf.ID]++
	}
	var keep []int
	for i, inf := range s.Info {
		if count[inf.ID] > 1 {
			keep = append(keep, i)
		}
	}
	s.selectRows(keep)
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
