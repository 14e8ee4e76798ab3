// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

package evidence

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// WriteOmics writes the omics evidence table. The header is written even
// when rows is empty. hasDE selects the full schema with log2fc/fdr columns;
// without it the legacy mean-expression schema is written so readers do not
// mistake zero-filled columns for real differential-expression statistics.
func WriteOmics(path string, rows []OmicsRow, hasDE bool) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		if hasDE {
			records = append(records, []string{
				r.Gene,
				r.Symbol,
				formatFloat(r.Log2FC),
				formatFloat(r.FDR),
				r.Direction,
				formatFloat(r.MeanExpr),
				formatFloat(r.VarExpr),
				r.Dataset,
			})
		} else {
			records = append(records, []string{
				r.Gene,
				formatFloat(r.MeanExpr),
				formatFloat(r.VarExpr),
				r.Dataset,
			})
		}
	}
	if hasDE {
		return writeCSV(path, OmicsHeader, records)
	}
	return writeCSV(path, OmicsLegacyHeader, records)
}

// WriteLiterature writes the literature evidence table.
func WriteLiterature(path string, rows []LiteratureRow) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		year := ""
		if r.Year != 0 {
			year = strconv.Itoa(r.Year)
		}
		records = append(records, []string{
			r.Gene, r.PMID, year, r.StudyType, r.Role, r.SampleType, r.Directionality, r.Snippet,
		})
	}
	return writeCSV(path, LiteratureHeader, records)
}

// WritePathway writes the pathway evidence table.
func WritePathway(path string, rows []PathwayRow) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.Gene, strconv.Itoa(r.PathwayCount), r.TopPathways,
		})
	}
	return writeCSV(path, PathwayHeader, records)
}

// WriteRanked writes the final ranked candidate table.
func WriteRanked(path string, rows []RankedRow) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.Gene,
			formatFloat(r.FinalScore),
			formatFloat(r.OmicsScore),
			formatFloat(r.LiteratureScore),
			formatFloat(r.PathwayScore),
		})
	}
	return writeCSV(path, RankedHeader, records)
}

// ReadOmics reads an omics evidence table. hasDE reports whether the file
// carries log2fc and fdr columns; legacy tables with only mean_expr are
// accepted and scored from expression summaries instead.
func ReadOmics(path string) (rows []OmicsRow, hasDE bool, err error) {
	records, idx, err := readCSV(path)
	if err != nil {
		return nil, false, err
	}

	_, hasLog2FC := idx["log2fc"]
	_, hasFDR := idx["fdr"]
	hasDE = hasLog2FC && hasFDR

	for i, rec := range records {
		row := OmicsRow{
			Gene:      field(rec, idx, "gene"),
			Symbol:    field(rec, idx, "gene_symbol"),
			Direction: field(rec, idx, "direction"),
			Dataset:   field(rec, idx, "dataset"),
		}
		if row.Gene == "" {
			continue
		}
		if row.Log2FC, err = floatField(rec, idx, "log2fc"); err != nil {
			return nil, false, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		if row.FDR, err = floatField(rec, idx, "fdr"); err != nil {
			return nil, false, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		if row.MeanExpr, err = floatField(rec, idx, "mean_expr"); err != nil {
			return nil, false, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		if row.VarExpr, err = floatField(rec, idx, "var_expr"); err != nil {
			return nil, false, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, hasDE, nil
}

// ReadLiterature reads a literature evidence table.
func ReadLiterature(path string) ([]LiteratureRow, error) {
	records, idx, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	var rows []LiteratureRow
	for _, rec := range records {
		row := LiteratureRow{
			Gene:           field(rec, idx, "gene"),
			PMID:           field(rec, idx, "pmid"),
			StudyType:      field(rec, idx, "study_type"),
			Role:           field(rec, idx, "role"),
			SampleType:     field(rec, idx, "sample_type"),
			Directionality: field(rec, idx, "directionality"),
			Snippet:        field(rec, idx, "snippet"),
		}
		if row.Gene == "" {
			continue
		}
		if y := field(rec, idx, "year"); y != "" {
			// Tolerate unparseable years rather than failing the table
			if year, err := strconv.Atoi(strings.TrimSpace(y)); err == nil {
				row.Year = year
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadPathway reads a pathway evidence table.
func ReadPathway(path string) ([]PathwayRow, error) {
	records, idx, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	var rows []PathwayRow
	for i, rec := range records {
		row := PathwayRow{
			Gene:        field(rec, idx, "gene"),
			TopPathways: field(rec, idx, "top_pathways"),
		}
		if row.Gene == "" {
			continue
		}
		if c := field(rec, idx, "pathway_count"); c != "" {
			count, err := strconv.Atoi(strings.TrimSpace(c))
			if err != nil {
				return nil, fmt.Errorf("%s row %d: invalid pathway_count %q", path, i+2, c)
			}
			row.PathwayCount = count
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadRanked reads a ranked candidate table.
func ReadRanked(path string) ([]RankedRow, error) {
	records, idx, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	var rows []RankedRow
	for i, rec := range records {
		row := RankedRow{Gene: field(rec, idx, "gene")}
		if row.Gene == "" {
			continue
		}
		if row.FinalScore, err = floatField(rec, idx, "final_score"); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		if row.OmicsScore, err = floatField(rec, idx, "omics_score"); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		if row.LiteratureScore, err = floatField(rec, idx, "literature_score"); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		if row.PathwayScore, err = floatField(rec, idx, "pathway_score"); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// writeCSV writes header plus records to a temp file in the target
// directory, then renames it into place. Readers never observe a partially
// written table.
func writeCSV(path string, header []string, records [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := w.WriteAll(records); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write records: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to rename into place: %w", err)
	}
	return nil
}

// readCSV reads all records from a CSV file and returns the data rows plus
// a lowercase header name to column index mapping.
func readCSV(path string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // Some hand-edited tables have ragged rows

	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("%s: missing header row", path)
	}

	idx := make(map[string]int, len(all[0]))
	for i, name := range all[0] {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return all[1:], idx, nil
}

func field(rec []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func floatField(rec []string, idx map[string]int, name string) (float64, error) {
	s := strings.TrimSpace(field(rec, idx, name))
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q", name, s)
	}
	return v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
