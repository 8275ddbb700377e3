package address

import (
	"fmt"
	"slices"
)

type LengthMismatchError struct {
	Records    int
	Breakdowns int
}

func (err LengthMismatchError) Error() string {
	return fmt.Sprintf("cannot merge %v records with %v address breakdowns", err.Records, err.Breakdowns)
}

// Breakdowns parses the address of every record. A record whose address is unparseable still
// gets the fields that were recognized; the problems are returned by record index.
func Breakdowns(records []map[string]string) ([]Breakdown, map[int]error) {
	breakdowns := make([]Breakdown, len(records))
	problems := map[int]error{}
	for i, record := range records {
		b, err := Parse(record[Field])
		if err != nil {
			problems[i] = err
		}
		breakdowns[i] = b
	}
	return breakdowns, problems
}

// Merge copies every field of records[i] except the address and adds the fields of breakdowns[i].
func Merge(records []map[string]string, breakdowns []Breakdown) ([]map[string]string, error) {
	if len(records) != len(breakdowns) {
		return nil, LengthMismatchError{len(records), len(breakdowns)}
	}
	merged := make([]map[string]string, len(records))
	for i, record := range records {
		entry := make(map[string]string, len(record)+len(Fields))
		for k, v := range record {
			if k != Field {
				entry[k] = v
			}
		}
		for j, v := range breakdowns[i].Values() {
			entry[Fields[j]] = v
		}
		merged[i] = entry
	}
	return merged, nil
}

// MergedHeaders is the column order of merged records: the original headers without the
// address, followed by Fields.
func MergedHeaders(headers []string) []string {
	merged := slices.DeleteFunc(slices.Clone(headers), func(h string) bool { return h == Field })
	return append(merged, Fields...)
}

// Rows lays records out in headers order. Missing fields become empty cells.
func Rows(headers []string, records []map[string]string) [][]string {
	rows := make([][]string, len(records))
	for i, record := range records {
		row := make([]string, len(headers))
		for j, h := range headers {
			row[j] = record[h]
		}
		rows[i] = row
	}
	return rows
}
