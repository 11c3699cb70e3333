package edgar

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tvandenberg/thirteenf/internal/model"
)

const archivesBaseURL = "https://www.sec.gov/Archives/"

// indexColumns are the form.idx header labels, in order. Column boundaries
// are read off the header line because the widths drift between quarters.
var indexColumns = []string{"Form Type", "Company Name", "CIK", "Date Filed", "File Name"}

// QuarterIndex fetches the quarter's form index and returns its 13F-HR rows,
// amendments included.
func (c *HTTPClient) QuarterIndex(ctx context.Context, quarter model.Quarter) ([]IndexEntry, error) {
	url := fmt.Sprintf("https://www.sec.gov/Archives/edgar/full-index/%d/QTR%d/form.idx", quarter.Year, quarter.Q)
	data, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch form index for %s: %w", quarter, err)
	}

	entries, err := parseFormIndex(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse form index for %s: %w", quarter, err)
	}
	return entries, nil
}

// Document fetches one raw filing document by its archive-relative path.
func (c *HTTPClient) Document(ctx context.Context, edgarPath string) ([]byte, error) {
	data, err := c.get(ctx, archivesBaseURL+edgarPath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document %s: %w", edgarPath, err)
	}
	return data, nil
}

// parseFormIndex extracts 13F-HR and 13F-HR/A rows from a form.idx listing.
// The file is fixed-width text; boundaries come from the header line.
func parseFormIndex(data []byte) ([]IndexEntry, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	var offsets []int
	entries := []IndexEntry{}

	for scanner.Scan() {
		line := scanner.Text()

		if offsets == nil {
			if strings.HasPrefix(line, indexColumns[0]) {
				var err error
				if offsets, err = columnOffsets(line); err != nil {
					return nil, err
				}
			}
			continue
		}
		if strings.HasPrefix(line, "---") || strings.TrimSpace(line) == "" {
			continue
		}

		formType := sliceColumn(line, offsets, 0)
		if formType != "13F-HR" && formType != "13F-HR/A" {
			continue
		}

		dateFiled, err := time.Parse("2006-01-02", sliceColumn(line, offsets, 3))
		if err != nil {
			// Rows with unparseable dates are dropped rather than
			// failing the whole index.
			continue
		}

		entries = append(entries, IndexEntry{
			FormType:    formType,
			CompanyName: sliceColumn(line, offsets, 1),
			CIK:         sliceColumn(line, offsets, 2),
			DateFiled:   dateFiled.UTC(),
			FileName:    sliceColumn(line, offsets, 4),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan form index: %w", err)
	}
	if offsets == nil {
		return nil, fmt.Errorf("form index header row not found")
	}
	return entries, nil
}

// columnOffsets locates each header label's start position.
func columnOffsets(header string) ([]int, error) {
	offsets := make([]int, len(indexColumns))
	for i, col := range indexColumns {
		idx := strings.Index(header, col)
		if idx < 0 {
			return nil, fmt.Errorf("form index header missing %q column", col)
		}
		offsets[i] = idx
	}
	return offsets, nil
}

// sliceColumn cuts column i out of a fixed-width row and trims it.
func sliceColumn(line string, offsets []int, i int) string {
	if offsets[i] >= len(line) {
		return ""
	}
	end := len(line)
	if i+1 < len(offsets) && offsets[i+1] < end {
		end = offsets[i+1]
	}
	return strings.TrimSpace(line[offsets[i]:end])
}
