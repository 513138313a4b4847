package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/yuya-takeyama/strict-fanout-copy/internal/checksum"
	"github.com/yuya-takeyama/strict-fanout-copy/pkg/s3client"
)

// Format selects the serialization used by Export.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name. The empty string means CSV.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown report format %q", name)
	}
}

func (f Format) contentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv"
}

func (f Format) defaultName() string {
	return "report." + string(f)
}

// Header returns the column names for a report with n destinations.
func Header(n int) []string {
	header := make([]string, 0, 3+2*n)
	header = append(header, "Consistent", "Source", "Source Hash")
	for i := 1; i <= n; i++ {
		header = append(header,
			"Destination File "+strconv.Itoa(i),
			"Destination Hash "+strconv.Itoa(i),
		)
	}
	return header
}

// WriteCSV writes a header row followed by one row per record. The column
// count is fixed by the first record.
func WriteCSV(w io.Writer, r *Report) error {
	width := r.Destinations()

	cw := csv.NewWriter(w)
	if err := cw.Write(Header(width)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, 0, r.Width())
	for _, rec := range r.Records {
		if len(rec.Destinations) != width {
			return fmt.Errorf("%w: %s", ErrRaggedReport, rec.Source.Path)
		}

		flag := "N"
		if rec.Consistent() {
			flag = "Y"
		}
		row = append(row[:0], flag, rec.Source.Path, checksum.FormatHex(rec.Source.Hash))
		for _, d := range rec.Destinations {
			row = append(row, d.Path, checksum.FormatHex(d.Hash))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Meta is optional run information included in the JSON form.
type Meta struct {
	RunID        string
	Source       string
	Destinations []string
}

type jsonReport struct {
	RunID        string      `json:"run_id,omitempty"`
	Source       string      `json:"source,omitempty"`
	Destinations []string    `json:"destinations,omitempty"`
	Files        []jsonFile  `json:"files"`
	Summary      jsonSummary `json:"summary"`
}

type jsonFile struct {
	Consistent   bool          `json:"consistent"`
	Source       jsonReplica   `json:"source"`
	Destinations []jsonReplica `json:"destinations"`
}

type jsonReplica struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
}

type jsonSummary struct {
	Total        int `json:"total"`
	Consistent   int `json:"consistent"`
	Inconsistent int `json:"inconsistent"`
}

// WriteJSON writes the report as an indented JSON document.
func WriteJSON(w io.Writer, r *Report, meta *Meta) error {
	out := jsonReport{
		Files: make([]jsonFile, 0, len(r.Records)),
	}
	if meta != nil {
		out.RunID = meta.RunID
		out.Source = meta.Source
		out.Destinations = meta.Destinations
	}

	for _, rec := range r.Records {
		file := jsonFile{
			Consistent:   rec.Consistent(),
			Source:       jsonReplica{Path: rec.Source.Path, Hash: checksum.FormatHex(rec.Source.Hash)},
			Destinations: make([]jsonReplica, 0, len(rec.Destinations)),
		}
		for _, d := range rec.Destinations {
			file.Destinations = append(file.Destinations, jsonReplica{Path: d.Path, Hash: checksum.FormatHex(d.Hash)})
		}
		out.Files = append(out.Files, file)
	}

	errs := r.CountErrors()
	out.Summary = jsonSummary{
		Total:        r.TotalFiles(),
		Consistent:   r.TotalFiles() - errs,
		Inconsistent: errs,
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}

func encode(w io.Writer, r *Report, format Format, meta *Meta) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, r, meta)
	default:
		return WriteCSV(w, r)
	}
}

// ExportReport writes the CSV form of r to outputPath.
func ExportReport(r *Report, outputPath string) error {
	return writeFile(outputPath, r, FormatCSV, nil)
}

func writeFile(outputPath string, r *Report, format Format, meta *Meta) error {
	var buf bytes.Buffer
	if err := encode(&buf, r, format, meta); err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Upload encodes r and stores it at an s3://bucket/key URI. A URI ending in a
// slash gets report.csv or report.json appended.
func Upload(ctx context.Context, client s3client.Client, uri string, r *Report, format Format, meta *Meta) error {
	bucket, key, err := s3client.ParseS3URI(uri, format.defaultName())
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := encode(&buf, r, format, meta); err != nil {
		return err
	}

	err = client.PutObject(ctx, &s3client.PutObjectRequest{
		Bucket:      bucket,
		Key:         key,
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: format.contentType(),
	})
	if err != nil {
		return fmt.Errorf("upload report to s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// Export writes r to target, which is either a local path or an S3 URI. The
// client is only used for S3 targets and may be nil otherwise.
func Export(ctx context.Context, client s3client.Client, target string, r *Report, format Format, meta *Meta) error {
	if s3client.IsS3URI(target) {
		if client == nil {
			return fmt.Errorf("no S3 client configured for %s", target)
		}
		return Upload(ctx, client, target, r, format, meta)
	}
	return writeFile(target, r, format, meta)
}
