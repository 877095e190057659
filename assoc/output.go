package assoc

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// writeTSV writes a header plus one row per record.
func writeTSV(w io.Writer, header []string, rows [][]string) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(header, "\t") + "\n"); err != nil {
		return errors.Wrap(err, "write header")
	}
	for _, row := range rows {
		if _, err := bw.WriteString(strings.Join(row, "\t") + "\n"); err != nil {
			return errors.Wrap(err, "write row")
		}
	}
	return errors.Wrap(bw.Flush(), "flush output")
}

// WriteAAResults writes the amino-acid association table as TSV.
func WriteAAResults(w io.Writer, results []AAResult) error {
	header := []string{"VARIANT", "GENE", "AA_POS", "LR_p", "Anova_p", "multi_Coef",
		"Uni_p", "Uni_Coef", "Amino_Acids", "Ref_AA", "LRp_Unip"}
	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = []string{r.Variant, r.Gene, r.AAPos, r.LRp.String(), r.AnovaP.String(),
			r.MultiCoef, r.UniP.String(), r.UniCoef.String(), r.AminoAcids, r.RefAA,
			r.LRpUniP.String()}
	}
	return writeTSV(w, header, rows)
}

// WriteSNPResults writes the SNP association table as TSV.
func WriteSNPResults(w io.Writer, results []SNPResult) error {
	header := []string{"VARIANT", "POS", "Uni_p", "Uni_Coef", "CI_0.025", "CI_0.975"}
	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = []string{r.Variant, r.Pos, r.UniP.String(), r.UniCoef.String(),
			r.CILo.String(), r.CIHi.String()}
	}
	return writeTSV(w, header, rows)
}

// WriteHLAResults writes the classic-allele association table as TSV.
func WriteHLAResults(w io.Writer, results []HLAResult) error {
	header := []string{"VARIANT", "GENE", "POS", "Uni_p", "Uni_Coef", "CI_0.025", "CI_0.975"}
	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = []string{r.Variant, r.Gene, r.Pos, r.UniP.String(), r.UniCoef.String(),
			r.CILo.String(), r.CIHi.String()}
	}
	return writeTSV(w, header, rows)
}
