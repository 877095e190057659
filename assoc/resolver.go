// Package assoc runs the per-variant association analyses: haplotype
// matrix construction from phased or dosage genotypes, reference-allele
// selection, analysis table assembly, and the univariate/omnibus test
// tiers over all variants of a class.
package assoc

import (
	"sort"
	"strings"
)

// CheckAABlock resolves the residue letters observed at the presence
// positions of one haplotype label to a single representative amino acid.
// A strict majority letter wins (FY, FS, FK resolve to F); a tie keeps the
// block as an ambiguous composite label; an empty block resolves to "".
func CheckAABlock(block []string) string {
	var letters []rune
	for _, s := range block {
		letters = append(letters, []rune(s)...)
	}
	if len(letters) == 0 {
		return ""
	}

	counts := make(map[rune]int)
	var order []rune
	for _, r := range letters {
		if counts[r] == 0 {
			order = append(order, r)
		}
		counts[r]++
	}
	if len(order) == 1 {
		return block[0]
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if counts[order[0]] != counts[order[1]] {
		return string(order[0])
	}
	return strings.Join(block, "")
}

// presencePositions lists the indices of a haplotype label carrying a
// presence marker. P is the legacy marker, T the current one, lowercase p
// appears in HATK-formatted files.
func presencePositions(label string) []int {
	var pos []int
	for i, r := range label {
		if r == 'P' || r == 'T' || r == 'p' {
			pos = append(pos, i)
		}
	}
	return pos
}

// residueOf extracts the residue letter from a full marker id, its trailing
// underscore-separated token.
func residueOf(rawID string) string {
	tokens := strings.Split(rawID, "_")
	return tokens[len(tokens)-1]
}

// resolveHaplotypes maps each surviving haplotype label back to the amino
// acid it represents: the presence positions within the label select rows
// of the block, whose residue letters are resolved by CheckAABlock.
// Unresolvable labels (no presence markers) contribute nothing.
func resolveHaplotypes(rawIDs []string, labels []string) []string {
	residues := make([]string, len(rawIDs))
	for i, id := range rawIDs {
		residues[i] = residueOf(id)
	}

	var out []string
	for _, label := range labels {
		var block []string
		for _, p := range presencePositions(label) {
			if p < len(residues) {
				block = append(block, residues[p])
			}
		}
		if resolved := CheckAABlock(block); resolved != "" {
			out = append(out, resolved)
		}
	}
	return out
}

// refResidue resolves the amino acid represented by the dropped reference
// haplotype, for reporting.
func refResidue(label string, rawIDs []string) string {
	var block []string
	for _, p := range presencePositions(label) {
		if p < len(rawIDs) {
			block = append(block, residueOf(rawIDs[p]))
		}
	}
	return CheckAABlock(block)
}
