package loaders

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReviewRecord is one review row read from a preprocessed CSV file.
type ReviewRecord struct {
	ReviewID     int64
	AppName      string
	Category     string
	Rating       int
	Date         string
	HelpfulCount int64
	Text         string // Raw text column value, preamble not yet stripped
}

// MissingColumnsError reports required columns absent from a CSV header.
// It is raised before any row is read, so a malformed file never reaches
// the vector store.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
}

// CSVLoader reads review records from preprocessed CSV files.
type CSVLoader struct {
	TextColumn string // Column holding the review text (default "enriched_text")
	IDColumn   string // Column holding the review id (default "review_id")
}

// NewCSVLoader creates a CSVLoader with default column names.
func NewCSVLoader() *CSVLoader {
	return &CSVLoader{TextColumn: "enriched_text", IDColumn: "review_id"}
}

// Load reads the CSV at path and returns review records ready for
// ingestion. Rows with an empty text value are dropped; limit (when > 0)
// caps the surviving rows while preserving file order.
func (l *CSVLoader) Load(path string, limit int) ([]ReviewRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	required := []string{
		l.TextColumn, l.IDColumn,
		"app_name", "category", "rating", "review_date", "helpful_count",
	}
	var missing []string
	for _, col := range required {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	var records []ReviewRecord
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", line+1, err)
		}
		line++

		field := func(name string) string {
			i := index[name]
			if i >= len(row) {
				return ""
			}
			return row[i]
		}

		text := field(l.TextColumn)
		if strings.TrimSpace(text) == "" {
			continue // drop rows with a null/missing text value
		}

		appName := field("app_name")
		date := field("review_date")

		rating, err := strconv.Atoi(strings.TrimSpace(field("rating")))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid rating %q", line, field("rating"))
		}
		helpful, err := strconv.ParseInt(strings.TrimSpace(field("helpful_count")), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid helpful_count %q", line, field("helpful_count"))
		}

		reviewID, err := strconv.ParseInt(strings.TrimSpace(field(l.IDColumn)), 10, 64)
		if err != nil {
			// Some exports carry hashed or empty review ids; derive a
			// stable one from the row contents instead of failing.
			reviewID = deriveReviewID(appName, date, text)
		}

		records = append(records, ReviewRecord{
			ReviewID:     reviewID,
			AppName:      appName,
			Category:     field("category"),
			Rating:       rating,
			Date:         date,
			HelpfulCount: helpful,
			Text:         text,
		})

		if limit > 0 && len(records) >= limit {
			break
		}
	}

	return records, nil
}

// deriveReviewID hashes the identifying row fields into a stable positive
// id, mirroring how the upstream ETL derives review ids.
func deriveReviewID(appName, date, text string) int64 {
	sum := sha256.Sum256([]byte(appName + "|" + date + "|" + text))
	id := int64(binary.BigEndian.Uint64(sum[:8]) >> 1)
	return id
}
