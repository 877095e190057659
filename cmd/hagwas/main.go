// hagwas runs HLA association analyses: omnibus and univariate tests of
// amino-acid positions, SNPs and classic HLA alleles against a phenotype.
package main

import (
	"flag"
	"os"
	"runtime"

	"github.com/BurntSushi/toml"
	"github.com/raulk/go-watchdog"
	"go.dedis.ch/onet/v3/log"

	"github.com/hlatools/hagwas/assoc"
	"github.com/hlatools/hagwas/glm"
	"github.com/hlatools/hagwas/hla"
)

func main() {
	configPath := flag.String("config", "config.toml", "run configuration (toml)")
	flag.Parse()

	config := new(assoc.Config)
	if _, err := toml.DecodeFile(*configPath, config); err != nil {
		log.Fatal(err)
	}
	ct, family, err := config.Validate()
	if err != nil {
		log.Fatal(err)
	}

	if config.NumThreads > 0 {
		runtime.GOMAXPROCS(config.NumThreads)
	}
	if config.MemoryLimit > 0 {
		err, stopFn := watchdog.HeapDriven(config.MemoryLimit, 40, watchdog.NewAdaptivePolicy(0.5))
		if err != nil {
			log.Fatal(err)
		}
		defer stopFn()
	}

	fam, err := hla.ReadFam(config.FamFile)
	if err != nil {
		log.Fatal(err)
	}

	data, err := loadGenotypes(config, fam)
	if err != nil {
		log.Fatal(err)
	}
	if ct != data.Type {
		log.Fatal("call type mismatch between config and input")
	}
	if err := data.QualityControl(config.AlleleFilter); err != nil {
		log.Fatal(err)
	}

	for _, analysis := range config.Analyses {
		if err := runAnalysis(analysis, data, fam, family, config.OutPrefix); err != nil {
			log.Fatal(err)
		}
	}
}

func loadGenotypes(config *assoc.Config, fam *hla.Fam) (*hla.Data, error) {
	switch config.GenoFormat {
	case "beagle":
		return hla.ReadBeagle(config.GenoFile)
	case "gprobs":
		return hla.ReadGProbs(config.GenoFile)
	default:
		return hla.ReadDosage(config.GenoFile, fam.IIDs())
	}
}

func runAnalysis(analysis string, data *hla.Data, fam *hla.Fam, family glm.Family, outPrefix string) error {
	outPath := outPrefix + "." + analysis + ".tsv"
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	switch analysis {
	case "aa":
		results, err := assoc.AnalyseAA(data, fam, family)
		if err != nil {
			return err
		}
		if err := assoc.WriteAAResults(out, results); err != nil {
			return err
		}
	case "snp":
		results, err := assoc.AnalyseSNP(data, fam, family)
		if err != nil {
			return err
		}
		if err := assoc.WriteSNPResults(out, results); err != nil {
			return err
		}
	case "hla":
		results, err := assoc.AnalyseHLA(data, fam, family)
		if err != nil {
			return err
		}
		if err := assoc.WriteHLAResults(out, results); err != nil {
			return err
		}
	}
	log.LLvl1("wrote", outPath)
	return nil
}
