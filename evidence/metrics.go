package evidence

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

// InsertSizeMetrics is one row of a Picard CollectInsertSizeMetrics file.
type InsertSizeMetrics struct {
	MedianInsertSize float64 `tsv:"MEDIAN_INSERT_SIZE"`
	MinInsertSize    int     `tsv:"MIN_INSERT_SIZE"`
	MaxInsertSize    int     `tsv:"MAX_INSERT_SIZE"`
	ReadPairs        int64   `tsv:"READ_PAIRS"`
	PairOrientation  string  `tsv:"PAIR_ORIENTATION"`
}

const metricsClassPrefix = "## METRICS CLASS"

// metricsSection returns the lines of the METRICS section of a Picard metrics
// file: a header row followed by one row per pair orientation.
func metricsSection(r io.Reader) ([]byte, error) {
	var (
		buf     bytes.Buffer
		inTable bool
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if !inTable {
			inTable = strings.HasPrefix(line, metricsClassPrefix)
			continue
		}
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			break
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !inTable {
		return nil, errors.E("no METRICS CLASS section")
	}
	return buf.Bytes(), nil
}

// ParseInsertSizeMetrics reads the metrics rows of a Picard insert size
// metrics file.
func ParseInsertSizeMetrics(r io.Reader) ([]InsertSizeMetrics, error) {
	section, err := metricsSection(r)
	if err != nil {
		return nil, err
	}
	reader := tsv.NewReader(bytes.NewReader(section))
	reader.HasHeaderRow = true
	reader.UseHeaderNames = true
	var rows []InsertSizeMetrics
	for {
		var row InsertSizeMetrics
		if err := reader.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, errors.E("empty METRICS section")
	}
	return rows, nil
}

// ApplyInsertSizeMetrics checks that the library consists of forward-reverse
// pairs only and sets opts.MaxFragmentSize to the library's maximum insert
// size. Any other pair orientation is a configuration error.
func ApplyInsertSizeMetrics(rows []InsertSizeMetrics, opts *Opts) error {
	maxSize := 0
	for _, row := range rows {
		if row.PairOrientation != "FR" {
			return errors.E("pair orientation", row.PairOrientation, "(only FR is supported)")
		}
		if row.MaxInsertSize > maxSize {
			maxSize = row.MaxInsertSize
		}
	}
	if maxSize <= 0 {
		return errors.E("MAX_INSERT_SIZE must be positive")
	}
	opts.MaxFragmentSize = maxSize
	return nil
}

// ReadInsertSizeMetrics loads the insert size metrics file at path and
// applies it to opts.
func ReadInsertSizeMetrics(ctx context.Context, path string, opts *Opts) (err error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return errors.E(err, "open metrics", path)
	}
	defer file.CloseAndReport(ctx, f, &err)
	rows, err := ParseInsertSizeMetrics(f.Reader(ctx))
	if err != nil {
		return errors.E(err, "parse metrics", path)
	}
	if err = ApplyInsertSizeMetrics(rows, opts); err != nil {
		return errors.E(err, path)
	}
	return nil
}
