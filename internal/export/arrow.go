// Package export writes price records as an Arrow IPC stream so analysts can
// pull a snapshot straight into pandas/polars/duckdb.
package export

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"

	"asaankisaan/internal/models"
)

const ContentType = "application/vnd.apache.arrow.stream"

// Rows per record batch.
const batchSize = 64 * 1024

// Schema mirrors the dataset columns. Prices are exported as float64.
var Schema = arrow.NewSchema([]arrow.Field{
	{Name: "year", Type: arrow.PrimitiveTypes.Int32},
	{Name: "week_number", Type: arrow.PrimitiveTypes.Int32},
	{Name: "date", Type: arrow.BinaryTypes.String},
	{Name: "market", Type: arrow.BinaryTypes.String},
	{Name: "commodity", Type: arrow.BinaryTypes.String},
	{Name: "base_price", Type: arrow.PrimitiveTypes.Float64},
	{Name: "inflation_rate", Type: arrow.PrimitiveTypes.Float64},
	{Name: "predicted_price", Type: arrow.PrimitiveTypes.Float64},
}, nil)

// WriteArrow streams records to w in file order.
func WriteArrow(w io.Writer, records []models.PriceRecord) error {
	mem := memory.NewGoAllocator()
	iw := ipc.NewWriter(w, ipc.WithSchema(Schema), ipc.WithAllocator(mem))

	b := array.NewRecordBuilder(mem, Schema)
	defer b.Release()

	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		appendBatch(b, records[start:end])
		rec := b.NewRecord()
		err := iw.Write(rec)
		rec.Release()
		if err != nil {
			return fmt.Errorf("failed to write arrow batch: %w", err)
		}
	}

	if err := iw.Close(); err != nil {
		return fmt.Errorf("failed to close arrow stream: %w", err)
	}
	return nil
}

func appendBatch(b *array.RecordBuilder, records []models.PriceRecord) {
	year := b.Field(0).(*array.Int32Builder)
	week := b.Field(1).(*array.Int32Builder)
	date := b.Field(2).(*array.StringBuilder)
	market := b.Field(3).(*array.StringBuilder)
	commodity := b.Field(4).(*array.StringBuilder)
	base := b.Field(5).(*array.Float64Builder)
	inflation := b.Field(6).(*array.Float64Builder)
	predicted := b.Field(7).(*array.Float64Builder)

	for _, r := range records {
		year.Append(int32(r.Year))
		week.Append(int32(r.WeekNumber))
		date.Append(r.Date)
		market.Append(r.Market)
		commodity.Append(r.Commodity)
		base.Append(r.BasePrice.InexactFloat64())
		inflation.Append(r.InflationRate.InexactFloat64())
		predicted.Append(r.PredictedPrice.InexactFloat64())
	}
}
