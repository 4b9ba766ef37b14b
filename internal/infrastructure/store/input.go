package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/trolleywise/backend/internal/domain"
)

// LoadQueries reads the loyalty-export item table: a CSV with "UID" and
// "product name" columns in either order. Rows without a UID are assigned
// one derived from the row position and name, so re-reading the same file
// yields the same keys and checkpoint resume still skips completed rows.
// Input order is preserved.
func LoadQueries(path string) ([]domain.ProductQuery, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("input file %s is empty", path)
	}

	uidCol, nameCol := -1, -1
	for i, header := range records[0] {
		switch strings.ToLower(strings.TrimSpace(header)) {
		case "uid":
			uidCol = i
		case "product name", "name":
			nameCol = i
		}
	}
	if nameCol < 0 {
		return nil, fmt.Errorf("input file %s has no 'product name' column", path)
	}

	queries := make([]domain.ProductQuery, 0, len(records)-1)
	for row, record := range records[1:] {
		if nameCol >= len(record) {
			continue
		}
		name := strings.TrimSpace(record[nameCol])
		if name == "" {
			continue
		}

		uid := ""
		if uidCol >= 0 && uidCol < len(record) {
			uid = strings.TrimSpace(record[uidCol])
		}
		if uid == "" {
			uid = uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%d:%s", row, name))).String()
		}

		queries = append(queries, domain.ProductQuery{UID: uid, Name: name})
	}

	return queries, nil
}
