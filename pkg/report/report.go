// Package report holds the per-file consistency records produced by
// verification and serializes them for export.
package report

import (
	"errors"
	"fmt"
)

// ErrRaggedReport is returned when records disagree on the number of
// destinations.
var ErrRaggedReport = errors.New("records have differing destination counts")

// ReplicaHash is the content hash of one copy of a file.
type ReplicaHash struct {
	Path string
	Hash uint64
}

// Record holds the source hash of one file and the hash of each destination
// copy, in the order the destination roots were given.
type Record struct {
	Source       ReplicaHash
	Destinations []ReplicaHash
}

// Consistent reports whether every destination hash equals the source hash.
func (r Record) Consistent() bool {
	for _, d := range r.Destinations {
		if d.Hash != r.Source.Hash {
			return false
		}
	}
	return true
}

// Mismatched returns the destinations whose hash differs from the source.
func (r Record) Mismatched() []ReplicaHash {
	var out []ReplicaHash
	for _, d := range r.Destinations {
		if d.Hash != r.Source.Hash {
			out = append(out, d)
		}
	}
	return out
}

// Report is the ordered list of records for one verification run.
type Report struct {
	Records []Record
}

// Append adds a record. Every record must have the same number of
// destinations as the first one.
func (r *Report) Append(rec Record) error {
	if len(r.Records) > 0 && len(rec.Destinations) != len(r.Records[0].Destinations) {
		return fmt.Errorf("%w: %s has %d, want %d", ErrRaggedReport,
			rec.Source.Path, len(rec.Destinations), len(r.Records[0].Destinations))
	}
	r.Records = append(r.Records, rec)
	return nil
}

// TotalFiles returns the number of records.
func (r *Report) TotalFiles() int {
	return len(r.Records)
}

// CountErrors returns the number of files where at least one destination
// differs from the source.
func (r *Report) CountErrors() int {
	count := 0
	for _, rec := range r.Records {
		if !rec.Consistent() {
			count++
		}
	}
	return count
}

// Inconsistent returns the records that are not consistent.
func (r *Report) Inconsistent() []Record {
	var out []Record
	for _, rec := range r.Records {
		if !rec.Consistent() {
			out = append(out, rec)
		}
	}
	return out
}

// Destinations returns the number of destinations per record, taken from the
// first record.
func (r *Report) Destinations() int {
	if len(r.Records) == 0 {
		return 0
	}
	return len(r.Records[0].Destinations)
}

// Width returns the number of columns in the tabular form.
func (r *Report) Width() int {
	return 3 + 2*r.Destinations()
}
