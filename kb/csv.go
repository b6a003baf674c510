package kb

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Record is a single question/answer row.
type Record struct {
	// Source identifies the row, e.g. jee_math.csv#12.
	Source   string
	Question string
	Answer   string
}

func (r Record) Content() string {
	return fmt.Sprintf("Question: %s\nAnswer: %s", r.Question, r.Answer)
}

// LoadCSV reads header-less question,answer rows. Malformed rows and rows
// missing either field are skipped.
func LoadCSV(r io.Reader, name string) (records []Record, skipped int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	var row int
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			skipped++
			continue
		}
		if err != nil {
			return records, skipped, fmt.Errorf("kb: failed to read %s: %w", name, err)
		}
		if len(fields) < 2 {
			skipped++
			continue
		}
		q, a := strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1])
		if q == "" || a == "" {
			skipped++
			continue
		}
		records = append(records, Record{
			Source:   fmt.Sprintf("%s#%d", name, row),
			Question: q,
			Answer:   a,
		})
	}
	return records, skipped, nil
}
