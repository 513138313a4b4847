package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/yuya-takeyama/strict-fanout-copy/internal/checksum"
	"github.com/yuya-takeyama/strict-fanout-copy/internal/config"
	"github.com/yuya-takeyama/strict-fanout-copy/pkg/report"
)

// RunResult represents the outcome of one run
type RunResult struct {
	RunID        string        `json:"run_id"`
	Source       string        `json:"source"`
	Destinations []string      `json:"destinations"`
	DryRun       bool          `json:"dryrun"`
	Status       string        `json:"status"` // "ok", "inconsistent", "failed"
	Files        []ResultFile  `json:"files"`
	Errors       []ErrorFile   `json:"errors"`
	Summary      ResultSummary `json:"summary"`
}

type ResultFile struct {
	Source     string   `json:"source"`
	Hash       string   `json:"hash"`
	Consistent bool     `json:"consistent"`
	Mismatched []string `json:"mismatched,omitempty"`
}

type ErrorFile struct {
	Phase string `json:"phase"` // "copy", "verify", "report"
	File  string `json:"file,omitempty"`
	Error string `json:"error"`
}

type ResultSummary struct {
	Files        int   `json:"files"`
	Bytes        int64 `json:"bytes"`
	Verified     int   `json:"verified"`
	Inconsistent int   `json:"inconsistent"`
	Failed       int   `json:"failed"`
}

func newRunResult(runID string, cfg config.Config) *RunResult {
	return &RunResult{
		RunID:        runID,
		Source:       cfg.Source,
		Destinations: cfg.Destinations,
		DryRun:       cfg.DryRun,
		Files:        []ResultFile{},
		Errors:       []ErrorFile{},
	}
}

func (r *RunResult) addError(phase string, err error) {
	r.Errors = append(r.Errors, ErrorFile{
		Phase: phase,
		File:  fileOf(err),
		Error: err.Error(),
	})
	r.Summary.Failed++
}

func (r *RunResult) addReport(rep *report.Report) {
	for _, rec := range rep.Records {
		file := ResultFile{
			Source:     rec.Source.Path,
			Hash:       checksum.FormatHex(rec.Source.Hash),
			Consistent: rec.Consistent(),
		}
		for _, m := range rec.Mismatched() {
			file.Mismatched = append(file.Mismatched, m.Path)
		}
		r.Files = append(r.Files, file)
	}
	r.Summary.Verified = rep.TotalFiles()
	r.Summary.Inconsistent = rep.CountErrors()
}

func (r *RunResult) finish(runErr error) {
	switch {
	case r.Summary.Failed > 0:
		r.Status = "failed"
	case r.Summary.Inconsistent > 0:
		r.Status = "inconsistent"
	case runErr != nil:
		r.Status = "failed"
	default:
		r.Status = "ok"
	}
}

func writeRunResult(path string, result *RunResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}
