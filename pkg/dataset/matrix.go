package dataset

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ReadCountsTSV reads a dense count matrix from a tab-separated file. The
// first row holds gene identifiers (first field is ignored as the corner
// label), each following row holds a cell identifier and one count per
// gene. This is the export format used to build snapshots from other
// tools.
func ReadCountsTSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open counts file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)

	if !scanner.Scan() {
		return nil, fmt.Errorf("counts file is empty: %s", path)
	}
	header := strings.Split(strings.TrimRight(scanner.Text(), "\r\n"), "\t")
	if len(header) < 2 {
		return nil, fmt.Errorf("counts header has no gene columns")
	}
	geneIDs := header[1:]

	var cellIDs []string
	var values []float64

	line := 1
	for scanner.Scan() {
		line++
		fields := strings.Split(strings.TrimRight(scanner.Text(), "\r\n"), "\t")
		if len(fields) == 1 && fields[0] == "" {
			continue // trailing blank line
		}
		if len(fields) != len(geneIDs)+1 {
			return nil, fmt.Errorf("line %d has %d fields, expected %d", line, len(fields), len(geneIDs)+1)
		}
		cellIDs = append(cellIDs, fields[0])
		for _, field := range fields[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid count %q: %w", line, field, err)
			}
			values = append(values, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read counts file: %w", err)
	}
	if len(cellIDs) == 0 {
		return nil, fmt.Errorf("counts file has no cell rows")
	}

	raw := mat.NewDense(len(cellIDs), len(geneIDs), values)
	return New(cellIDs, geneIDs, raw)
}
