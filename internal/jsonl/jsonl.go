// Package jsonl implements the line-delimited JSON interchange used between
// pipeline stages: one UTF-8 JSON object per line, each line independently
// parseable. A malformed line fails the whole stream with its line number; a
// missing input file is treated as an empty stream, since absent evidence is
// never an error at this layer.
package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ctiforge/internal/domain/models"
)

// scanner line buffer cap; threat report clean_text can run long
const maxLineBytes = 16 * 1024 * 1024

func decodeLines(r io.Reader, decode func(line []byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := decode([]byte(line)); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("line %d: %w", lineNo+1, err)
	}
	return nil
}

// ReadEvents decodes normalized event records
func ReadEvents(r io.Reader) ([]models.Event, error) {
	var events []models.Event
	err := decodeLines(r, func(line []byte) error {
		var event models.Event
		if err := json.Unmarshal(line, &event); err != nil {
			return err
		}
		if event.EventID == "" {
			return fmt.Errorf("event record missing event_id")
		}
		events = append(events, event)
		return nil
	})
	return events, err
}

// ReadIOCs decodes indicator records. A missing normalized_value falls back
// to the raw value.
func ReadIOCs(r io.Reader) ([]models.IOC, error) {
	var iocs []models.IOC
	err := decodeLines(r, func(line []byte) error {
		var ioc models.IOC
		if err := json.Unmarshal(line, &ioc); err != nil {
			return err
		}
		if ioc.SourceEventID == "" {
			return fmt.Errorf("ioc record missing source_event_id")
		}
		if ioc.NormalizedValue == "" {
			ioc.NormalizedValue = ioc.Value
		}
		iocs = append(iocs, ioc)
		return nil
	})
	return iocs, err
}

// ReadAnalyses decodes analysis result records
func ReadAnalyses(r io.Reader) ([]models.AnalysisResult, error) {
	var analyses []models.AnalysisResult
	err := decodeLines(r, func(line []byte) error {
		var analysis models.AnalysisResult
		if err := json.Unmarshal(line, &analysis); err != nil {
			return err
		}
		if analysis.EventID == "" {
			return fmt.Errorf("analysis record missing event_id")
		}
		analyses = append(analyses, analysis)
		return nil
	})
	return analyses, err
}

// ReadEventsFile reads events from path; a missing file yields an empty set
func ReadEventsFile(path string) ([]models.Event, error) {
	return readFile(path, ReadEvents)
}

// ReadIOCsFile reads indicators from path; a missing file yields an empty set
func ReadIOCsFile(path string) ([]models.IOC, error) {
	return readFile(path, ReadIOCs)
}

// ReadAnalysesFile reads analysis results from path; a missing file yields
// an empty set
func ReadAnalysesFile(path string) ([]models.AnalysisResult, error) {
	return readFile(path, ReadAnalyses)
}

func readFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	records, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// CountIOCsByEvent tallies indicators per source event
func CountIOCsByEvent(iocs []models.IOC) map[string]int {
	counts := make(map[string]int)
	for _, ioc := range iocs {
		if ioc.SourceEventID != "" {
			counts[ioc.SourceEventID]++
		}
	}
	return counts
}

// Write encodes records one JSON object per line and returns the count
func Write[T any](w io.Writer, records []T) (int, error) {
	bw := bufio.NewWriter(w)
	encoder := json.NewEncoder(bw)
	for i, record := range records {
		if err := encoder.Encode(record); err != nil {
			return i, fmt.Errorf("record %d: %w", i, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return len(records), err
	}
	return len(records), nil
}

// WriteFile writes records to path, creating parent directories as needed
func WriteFile[T any](path string, records []T) (int, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}

	count, err := Write(f, records)
	if err != nil {
		f.Close()
		return count, fmt.Errorf("%s: %w", path, err)
	}
	return count, f.Close()
}
