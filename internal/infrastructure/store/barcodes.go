package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// BarcodeRow is one resolved result carrying a barcode worth enriching
type BarcodeRow struct {
	UID     string
	Barcode string
}

// LoadBarcodes reads the resolution output and returns the rows that
// matched to a barcode. The "uid" and "barcode" columns are located by
// header name; rows without a barcode are skipped.
func LoadBarcodes(path string) ([]BarcodeRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open results: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("results file %s is empty", path)
	}

	uidCol, barcodeCol := -1, -1
	for i, header := range records[0] {
		switch strings.ToLower(strings.TrimSpace(header)) {
		case "uid":
			uidCol = i
		case "barcode":
			barcodeCol = i
		}
	}
	if uidCol < 0 || barcodeCol < 0 {
		return nil, fmt.Errorf("results file %s is missing uid/barcode columns", path)
	}

	var rows []BarcodeRow
	for _, record := range records[1:] {
		if uidCol >= len(record) || barcodeCol >= len(record) {
			continue
		}
		barcode := strings.TrimSpace(record[barcodeCol])
		if barcode == "" {
			continue
		}
		rows = append(rows, BarcodeRow{UID: record[uidCol], Barcode: barcode})
	}

	return rows, nil
}

// LoadColumn reads one named column from a headed CSV, skipping blank
// values. Row order is preserved; duplicates are kept.
func LoadColumn(path, column string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("file %s is empty", path)
	}

	col := -1
	for i, header := range records[0] {
		if strings.EqualFold(strings.TrimSpace(header), column) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("file %s has no %q column", path, column)
	}

	var values []string
	for _, record := range records[1:] {
		if col >= len(record) {
			continue
		}
		value := strings.TrimSpace(record[col])
		if value == "" {
			continue
		}
		values = append(values, value)
	}

	return values, nil
}
