// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

package evidence

// Candidate is one entry of the candidate gene list emitted by the omics
// stage and consumed by the literature and pathway stages. Symbol is empty
// when gene ID mapping is disabled or found no match.
type Candidate struct {
	Gene   string
	Symbol string
}

// CandidatesFile is the default candidate list file name.
const CandidatesFile = "candidates.csv"

var (
	candidatesHeader       = []string{"gene"}
	candidatesSymbolHeader = []string{"gene", "gene_symbol"}
)

// WriteCandidates writes the candidate list. The gene_symbol column is only
// emitted when at least one candidate carries a symbol.
func WriteCandidates(path string, candidates []Candidate) error {
	withSymbols := false
	for _, c := range candidates {
		if c.Symbol != "" {
			withSymbols = true
			break
		}
	}

	records := make([][]string, 0, len(candidates))
	for _, c := range candidates {
		if withSymbols {
			records = append(records, []string{c.Gene, c.Symbol})
		} else {
			records = append(records, []string{c.Gene})
		}
	}

	if withSymbols {
		return writeCSV(path, candidatesSymbolHeader, records)
	}
	return writeCSV(path, candidatesHeader, records)
}

// ReadCandidates reads a candidate list, tolerating the presence or absence
// of the gene_symbol column.
func ReadCandidates(path string) ([]Candidate, error) {
	records, idx, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, rec := range records {
		c := Candidate{
			Gene:   field(rec, idx, "gene"),
			Symbol: field(rec, idx, "gene_symbol"),
		}
		if c.Gene == "" {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}
