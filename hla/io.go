package hla

import (
	"bufio"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.dedis.ch/onet/v3/log"
	"gonum.org/v1/gonum/mat"
)

// ParseVariantID decomposes a genotype marker id into its parts.
// SNP2HLA/Beagle ids look like TYPE_GENE_AAPOS_POS[_SUFFIX]; plain rs ids
// are classified as "SNPS" and left otherwise empty.
func ParseVariantID(id string) VariantInfo {
	tokens := strings.Split(id, "_")
	if len(tokens) > 1 {
		n := len(tokens)
		if n > 4 {
			n = 4
		}
		inf := VariantInfo{
			Raw:  id,
			ID:   strings.Join(tokens[:n], "_"),
			Type: tokens[0],
		}
		if len(tokens) > 1 {
			inf.Gene = tokens[1]
		}
		if len(tokens) > 2 {
			inf.AAPos = tokens[2]
		}
		if len(tokens) > 3 {
			inf.Pos = tokens[3]
		}
		return inf
	}
	inf := VariantInfo{Raw: id, ID: id, Type: id}
	if strings.HasPrefix(id, "rs") {
		inf.Type = "SNPS"
	}
	return inf
}

// FamEntry is one sample of the PLINK fam file. PLINK codes missing sex and
// phenotype as -9; those fields are flagged rather than zeroed.
type FamEntry struct {
	FID          string
	IID          string
	Sex          float64
	Pheno        float64
	SexMissing   bool
	PhenoMissing bool
}

// Fam is the sample covariate table keyed by IID.
type Fam struct {
	Entries []FamEntry
}

// SortedByIID returns a copy with entries ordered by sample id, the order
// the analysis tables are assembled in.
func (f *Fam) SortedByIID() *Fam {
	out := &Fam{Entries: make([]FamEntry, len(f.Entries))}
	copy(out.Entries, f.Entries)
	sort.Slice(out.Entries, func(i, j int) bool {
		return out.Entries[i].IID < out.Entries[j].IID
	})
	return out
}

// IIDs returns the sample ids in entry order.
func (f *Fam) IIDs() []string {
	ids := make([]string, len(f.Entries))
	for i, e := range f.Entries {
		ids[i] = e.IID
	}
	return ids
}

// ReadFam reads a whitespace-separated PLINK fam file:
// FID IID FAT MOT SEX PHENO.
func ReadFam(path string) (*Fam, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open fam file %s", path)
	}
	defer file.Close()

	fam := &Fam{}
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 6 {
			return nil, errors.Errorf("fam file %s line %d: want 6 columns, got %d", path, line, len(fields))
		}
		e := FamEntry{FID: fields[0], IID: fields[1]}
		e.Sex, e.SexMissing = parseFamValue(fields[4])
		e.Pheno, e.PhenoMissing = parseFamValue(fields[5])
		fam.Entries = append(fam.Entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read fam file %s", path)
	}
	return fam, nil
}

func parseFamValue(s string) (float64, bool) {
	if s == "-9" {
		return 0, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, true
	}
	return v, v == -9
}

// ReadBeagle reads a phased Beagle file into a hard-call Data container.
// The header row is "I id S1 S1 S2 S2 ..." with every sample named twice,
// once per haplotype copy; the second copy gets a ".1" suffix so columns
// stay unique. Only marker rows (first column "M") are kept.
func ReadBeagle(path string) (*Data, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open beagle file %s", path)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), 64*1024*1024)

	if !scanner.Scan() {
		return nil, errors.Errorf("beagle file %s: empty", path)
	}
	header := strings.Fields(scanner.Text())
	if len(header) < 3 {
		return nil, errors.Errorf("beagle file %s: header too short", path)
	}
	samples := mangleDuplicates(header[2:])

	var info []VariantInfo
	var hard [][]string
	line := 1
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] != "M" {
			continue
		}
		if len(fields) != len(samples)+2 {
			return nil, errors.Errorf("beagle file %s line %d: want %d columns, got %d",
				path, line, len(samples)+2, len(fields))
		}
		info = append(info, ParseVariantID(fields[1]))
		hard = append(hard, fields[2:])
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read beagle file %s", path)
	}

	log.LLvl1("loaded", len(info), "markers x", len(samples), "haplotype copies from", path)
	return partition(info, samples, hard, nil, HardCall), nil
}

// mangleDuplicates disambiguates repeated column names by suffixing ".1",
// ".2", ... to the second and later occurrences.
func mangleDuplicates(names []string) []string {
	seen := make(map[string]int, len(names))
	out := make([]string, len(names))
	for i, n := range names {
		k := seen[n]
		seen[n] = k + 1
		if k == 0 {
			out[i] = n
		} else {
			out[i] = n + "." + strconv.Itoa(k)
		}
	}
	return out
}

// ReadGProbs reads a Beagle genotype probability file (three columns per
// sample: P(AA), P(AB), P(BB)) and converts it to expected allele dosage.
// The header is "marker alleleA alleleB S1 S1 S1 S2 S2 S2 ...".
func ReadGProbs(path string) (*Data, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open gprobs file %s", path)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), 64*1024*1024)

	if !scanner.Scan() {
		return nil, errors.Errorf("gprobs file %s: empty", path)
	}
	header := strings.Fields(scanner.Text())
	if len(header) < 6 || (len(header)-3)%3 != 0 {
		return nil, errors.Errorf("gprobs file %s: header must carry three columns per sample", path)
	}
	samples := make([]string, 0, (len(header)-3)/3)
	for i := 3; i < len(header); i += 3 {
		samples = append(samples, header[i])
	}

	var info []VariantInfo
	var probs [][]float64
	line := 1
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 3+3*len(samples) {
			return nil, errors.Errorf("gprobs file %s line %d: want %d columns, got %d",
				path, line, 3+3*len(samples), len(fields))
		}
		inf := ParseVariantID(fields[0])
		inf.AlleleA, inf.AlleleB = fields[1], fields[2]
		row := make([]float64, 3*len(samples))
		for i := range row {
			v, err := strconv.ParseFloat(fields[3+i], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "gprobs file %s line %d", path, line)
			}
			row[i] = v
		}
		info = append(info, inf)
		probs = append(probs, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read gprobs file %s", path)
	}
	if len(info) == 0 {
		return nil, errors.Errorf("gprobs file %s: no marker rows", path)
	}

	dose := probsToDosage(info, probs, len(samples))
	log.LLvl1("loaded", len(info), "markers x", len(samples), "samples (dosage) from", path)
	return partition(info, samples, nil, dose, SoftCall), nil
}

// ReadDosage reads a SNP2HLA dosage file (marker, alleleA, alleleB, one
// dosage per sample, no header); sample ids come from the fam file.
func ReadDosage(path string, samples []string) (*Data, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open dosage file %s", path)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), 64*1024*1024)

	var info []VariantInfo
	var rows [][]float64
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 3+len(samples) {
			return nil, errors.Errorf("dosage file %s line %d: want %d columns, got %d",
				path, line, 3+len(samples), len(fields))
		}
		inf := ParseVariantID(fields[0])
		inf.AlleleA, inf.AlleleB = fields[1], fields[2]
		row := make([]float64, len(samples))
		for i := range row {
			v, err := strconv.ParseFloat(fields[3+i], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "dosage file %s line %d", path, line)
			}
			row[i] = v
		}
		info = append(info, inf)
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read dosage file %s", path)
	}
	if len(info) == 0 {
		return nil, errors.Errorf("dosage file %s: no rows", path)
	}

	dose := mat.NewDense(len(rows), len(samples), nil)
	for i, r := range rows {
		dose.SetRow(i, r)
	}
	log.LLvl1("loaded", len(info), "markers x", len(samples), "samples (dosage) from", path)
	return partition(info, samples, nil, dose, SoftCall), nil
}
