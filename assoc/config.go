package assoc

import (
	"github.com/pkg/errors"

	"github.com/hlatools/hagwas/glm"
	"github.com/hlatools/hagwas/hla"
)

// Config is the toml-decoded run configuration.
type Config struct {
	GenoFile  string `toml:"geno_file"`
	FamFile   string `toml:"fam_file"`
	CallType  string `toml:"call_type"`  // hardcall or softcall
	ModelType string `toml:"model_type"` // linear or logit

	// GenoFormat picks the parser: "beagle" (phased hard calls), "gprobs"
	// (genotype probabilities, converted to dosage) or "dosage".
	GenoFormat string `toml:"geno_format"`

	AlleleFilter float64  `toml:"allele_filter"`
	Analyses     []string `toml:"analyses"` // subset of aa, snp, hla
	OutPrefix    string   `toml:"out_prefix"`
	NumThreads   int      `toml:"num_threads"`

	MemoryLimit uint64 `toml:"memory_limit"`
}

// Validate resolves the string-typed fields to their closed enumerations.
func (c *Config) Validate() (hla.CallType, glm.Family, error) {
	ct, err := hla.ParseCallType(c.CallType)
	if err != nil {
		return 0, 0, err
	}
	family, err := glm.ParseFamily(c.ModelType)
	if err != nil {
		return 0, 0, err
	}
	switch c.GenoFormat {
	case "beagle", "gprobs", "dosage":
	default:
		return 0, 0, errors.Errorf("unrecognized geno_format %q (want beagle, gprobs or dosage)", c.GenoFormat)
	}
	if c.GenoFormat == "beagle" && ct != hla.HardCall {
		return 0, 0, errors.New("beagle input is hard-call; set call_type = \"hardcall\"")
	}
	if c.GenoFormat != "beagle" && ct != hla.SoftCall {
		return 0, 0, errors.Errorf("%s input is dosage; set call_type = \"softcall\"", c.GenoFormat)
	}
	if c.AlleleFilter == 0 {
		c.AlleleFilter = 0.01
	}
	if len(c.Analyses) == 0 {
		c.Analyses = []string{"aa", "snp", "hla"}
	}
	for _, a := range c.Analyses {
		switch a {
		case "aa", "snp", "hla":
		default:
			return 0, 0, errors.Errorf("unrecognized analysis %q (want aa, snp or hla)", a)
		}
	}
	return ct, family, nil
}
