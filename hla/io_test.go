package hla

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseVariantID(t *testing.T) {
	tests := []struct {
		raw  string
		want VariantInfo
	}{
		{
			"AA_A_19_29910588_F",
			VariantInfo{Raw: "AA_A_19_29910588_F", ID: "AA_A_19_29910588", Type: "AA", Gene: "A", AAPos: "19", Pos: "29910588"},
		},
		{
			"HLA_A_0101",
			VariantInfo{Raw: "HLA_A_0101", ID: "HLA_A_0101", Type: "HLA", Gene: "A", AAPos: "0101"},
		},
		{
			"SNP_A_9479_30018316",
			VariantInfo{Raw: "SNP_A_9479_30018316", ID: "SNP_A_9479_30018316", Type: "SNP", Gene: "A", AAPos: "9479", Pos: "30018316"},
		},
		{
			"rs9271366",
			VariantInfo{Raw: "rs9271366", ID: "rs9271366", Type: "SNPS"},
		},
	}
	for _, tc := range tests {
		if got := ParseVariantID(tc.raw); got != tc.want {
			t.Errorf("ParseVariantID(%q) = %+v, want %+v", tc.raw, got, tc.want)
		}
	}
}

func TestMangleDuplicates(t *testing.T) {
	got := mangleDuplicates([]string{"S1", "S1", "S2", "S2", "S1"})
	want := []string{"S1", "S1.1", "S2", "S2.1", "S1.2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mangleDuplicates = %v, want %v", got, want)
		}
	}
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadFam(t *testing.T) {
	path := writeTemp(t, "test.fam",
		"F1 S1 0 0 1 2\nF2 S2 0 0 2 1\nF3 S3 0 0 1 -9\n")

	fam, err := ReadFam(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(fam.Entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(fam.Entries))
	}
	if fam.Entries[0].IID != "S1" || fam.Entries[0].Pheno != 2 {
		t.Errorf("entry 0 = %+v", fam.Entries[0])
	}
	if !fam.Entries[2].PhenoMissing {
		t.Error("-9 phenotype must be flagged missing")
	}
	if fam.Entries[2].SexMissing {
		t.Error("sex 1 must not be flagged missing")
	}
}

func TestReadBeagle(t *testing.T) {
	content := "I id S1 S1 S2 S2\n" +
		"P pheno 1 1 2 2\n" +
		"M HLA_A_0101 T A A A\n" +
		"M AA_B_45_31324205_F T T A T\n" +
		"M AA_B_45_31324205_Y A A T A\n" +
		"M AA_C_10_31238000_S T A T A\n" + // single-position block, dropped
		"M rs9271366 A G A A\n"

	path := writeTemp(t, "test.bgl.phased", content)
	data, err := ReadBeagle(path)
	if err != nil {
		t.Fatal(err)
	}

	if data.Type != HardCall {
		t.Errorf("Type = %v, want HardCall", data.Type)
	}
	if got := data.HLA.NumVariants(); got != 1 {
		t.Errorf("HLA rows = %d, want 1", got)
	}
	if got := data.AA.NumVariants(); got != 2 {
		t.Errorf("AA rows = %d, want 2: single-position blocks are excluded", got)
	}
	if got := data.SNP.NumVariants(); got != 0 {
		t.Errorf("SNP rows = %d, want 0: rs ids are not SNP2HLA SNP markers", got)
	}

	wantSamples := []string{"S1", "S1.1", "S2", "S2.1"}
	for i, s := range data.AA.Samples {
		if s != wantSamples[i] {
			t.Fatalf("samples = %v, want %v", data.AA.Samples, wantSamples)
		}
	}
	if data.AA.Hard[0][0] != "T" || data.AA.Hard[1][2] != "T" {
		t.Errorf("AA cells misaligned: %v", data.AA.Hard)
	}
}

func TestReadGProbsDosage(t *testing.T) {
	content := "marker alleleA alleleB S1 S1 S1 S2 S2 S2\n" +
		"SNP_A_9479_30018316 G C 1 0 0 0.25 0.5 0.25\n"

	path := writeTemp(t, "test.gprobs", content)
	data, err := ReadGProbs(path)
	if err != nil {
		t.Fatal(err)
	}
	if data.Type != SoftCall {
		t.Errorf("Type = %v, want SoftCall", data.Type)
	}
	if got := data.SNP.NumVariants(); got != 1 {
		t.Fatalf("SNP rows = %d, want 1", got)
	}
	// standard order: dose = 2*P(AA) + P(AB)
	if got := data.SNP.Dose.At(0, 0); got != 2 {
		t.Errorf("dose(S1) = %v, want 2", got)
	}
	if got := data.SNP.Dose.At(0, 1); got != 1 {
		t.Errorf("dose(S2) = %v, want 1", got)
	}
	if data.SNP.Info[0].AlleleA != "G" || data.SNP.Info[0].AlleleB != "C" {
		t.Errorf("alleles = %+v", data.SNP.Info[0])
	}
}

func TestReadGProbsMichiganOrder(t *testing.T) {
	// Michigan imputation absence/presence coding reverses the weighting
	content := "marker alleleA alleleB S1 S1 S1\n" +
		"AA_A_19_29910588_F A T 0 0 1\n" +
		"AA_A_19_29910588_Y A T 1 0 0\n"

	path := writeTemp(t, "test.gprobs", content)
	data, err := ReadGProbs(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := data.AA.Dose.At(0, 0); got != 2 {
		t.Errorf("dose = %v, want 2 under A/T ordering", got)
	}
	if got := data.AA.Dose.At(1, 0); got != 0 {
		t.Errorf("dose = %v, want 0 under A/T ordering", got)
	}
}

func TestReadDosage(t *testing.T) {
	content := "HLA_DRB1_0301 P A 1.92 0.05\nHLA_DRB1_1501 P A 0.11 1.04\n"
	path := writeTemp(t, "test.dosage", content)

	data, err := ReadDosage(path, []string{"S1", "S2"})
	if err != nil {
		t.Fatal(err)
	}
	if got := data.HLA.NumVariants(); got != 2 {
		t.Fatalf("HLA rows = %d, want 2", got)
	}
	if got := data.HLA.Dose.At(1, 1); got != 1.04 {
		t.Errorf("dose = %v, want 1.04", got)
	}
}

func TestTrimToSamplesHard(t *testing.T) {
	sub := &SubData{
		Info:    []VariantInfo{ParseVariantID("HLA_A_0101")},
		Samples: []string{"S1", "S1.1", "S2", "S2.1", "S3", "S3.1"},
		Hard:    [][]string{{"T", "A", "A", "A", "T", "T"}},
	}
	trimmed, err := sub.TrimToSamples([]string{"S3", "S1"}, HardCall)
	if err != nil {
		t.Fatal(err)
	}
	wantSamples := []string{"S3", "S3.1", "S1", "S1.1"}
	for i, s := range trimmed.Samples {
		if s != wantSamples[i] {
			t.Fatalf("samples = %v, want %v", trimmed.Samples, wantSamples)
		}
	}
	wantCells := []string{"T", "T", "T", "A"}
	for i, c := range trimmed.Hard[0] {
		if c != wantCells[i] {
			t.Fatalf("cells = %v, want %v", trimmed.Hard[0], wantCells)
		}
	}
}

func TestTrimToSamplesEmptyOverlap(t *testing.T) {
	sub := &SubData{
		Info:    []VariantInfo{ParseVariantID("HLA_A_0101")},
		Samples: []string{"S1", "S1.1"},
		Hard:    [][]string{{"T", "A"}},
	}
	if _, err := sub.TrimToSamples([]string{"S9"}, HardCall); err == nil {
		t.Fatal("expected error for empty sample overlap")
	}
}
