package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"asaankisaan/internal/models"
)

// Column layout of the dataset:
// year,weekNumber,date,marketLocation,commodity,basePricePer40kg,inflationRatePercent,predictedPricePer40kg
const columnCount = 8

// Below this many rows the parse stays on the calling goroutine.
const minParallelRows = 4096

var errTooFewColumns = errors.New("too few columns")

type chunkResult struct {
	records []models.PriceRecord
	skipped []models.SkippedRow
	rows    int
}

// Parse turns the raw comma-delimited dataset into records in file order.
// It never fails: rows that cannot be parsed are dropped and listed in the
// report. The first line is the header and is skipped without inspection.
func Parse(raw []byte) models.ParseReport {
	// Background is never cancelled, so ParseContext cannot fail here.
	report, _ := ParseContext(context.Background(), raw)
	return report
}

// ParseContext is Parse with cancellation. Its only error is ctx's; the
// report is empty when it returns one.
func ParseContext(ctx context.Context, raw []byte) (models.ParseReport, error) {
	content := bytes.TrimSpace(raw)

	idx := bytes.IndexByte(content, '\n')
	if idx == -1 {
		return models.ParseReport{}, ctx.Err()
	}
	content = content[idx+1:]

	lines := bytes.Split(content, []byte{'\n'})

	numWorkers := runtime.NumCPU()
	if len(lines) < minParallelRows {
		numWorkers = 1
	}
	chunkSize := (len(lines) + numWorkers - 1) / numWorkers
	parts := make([]chunkResult, numWorkers)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := min(start+chunkSize, len(lines))
		if start >= end {
			continue
		}
		// +2: header is line 1 and lines are 1-based.
		firstLine := start + 2
		g.Go(func() error {
			res, err := parseChunk(gctx, lines[start:end], firstLine)
			if err != nil {
				return err
			}
			parts[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.ParseReport{}, fmt.Errorf("parse cancelled: %w", err)
	}

	var report models.ParseReport
	total := 0
	for _, p := range parts {
		total += len(p.records)
	}
	report.Records = make([]models.PriceRecord, 0, total)
	for _, p := range parts {
		report.Records = append(report.Records, p.records...)
		report.Skipped = append(report.Skipped, p.skipped...)
		report.TotalRows += p.rows
	}
	return report, nil
}

// Lines parsed between cancellation checks.
const cancelCheckRows = 1024

func parseChunk(ctx context.Context, lines [][]byte, firstLine int) (chunkResult, error) {
	res := chunkResult{records: make([]models.PriceRecord, 0, len(lines))}
	for i, line := range lines {
		if i%cancelCheckRows == 0 {
			if err := ctx.Err(); err != nil {
				return chunkResult{}, err
			}
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		res.rows++
		rec, err := parseFields(strings.Split(string(line), ","))
		if err != nil {
			res.skipped = append(res.skipped, models.SkippedRow{Line: firstLine + i, Reason: err.Error()})
			continue
		}
		res.records = append(res.records, rec)
	}
	return res, nil
}

// parseFields converts one row's cells into a record. Extra trailing cells
// are ignored.
func parseFields(cols []string) (models.PriceRecord, error) {
	if len(cols) < columnCount {
		return models.PriceRecord{}, fmt.Errorf("%w: got %d, want %d", errTooFewColumns, len(cols), columnCount)
	}
	f := make([]string, columnCount)
	for i := range f {
		f[i] = strings.TrimSpace(cols[i])
	}

	var (
		rec models.PriceRecord
		err error
	)
	if rec.Year, err = strconv.Atoi(f[0]); err != nil {
		return models.PriceRecord{}, fmt.Errorf("year: %w", err)
	}
	if rec.WeekNumber, err = strconv.Atoi(f[1]); err != nil {
		return models.PriceRecord{}, fmt.Errorf("week number: %w", err)
	}
	rec.Date = f[2]
	rec.Period = models.ParsePeriod(f[2])
	rec.Market = f[3]
	rec.Commodity = f[4]
	if rec.BasePrice, err = decimal.NewFromString(f[5]); err != nil {
		return models.PriceRecord{}, fmt.Errorf("base price: %w", err)
	}
	if rec.InflationRate, err = decimal.NewFromString(f[6]); err != nil {
		return models.PriceRecord{}, fmt.Errorf("inflation rate: %w", err)
	}
	if rec.PredictedPrice, err = decimal.NewFromString(f[7]); err != nil {
		return models.PriceRecord{}, fmt.Errorf("predicted price: %w", err)
	}
	return rec, nil
}
