package export

import (
	"bytes"
	"testing"

	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asaankisaan/internal/models"
)

func TestWriteArrow(t *testing.T) {
	records := []models.PriceRecord{
		{Year: 2024, WeekNumber: 1, Date: "2024-01", Market: "Lahore", Commodity: "Wheat",
			BasePrice: decimal.NewFromInt(3000), InflationRate: decimal.RequireFromString("2.5"), PredictedPrice: decimal.RequireFromString("3075.25")},
		{Year: 2024, WeekNumber: 2, Date: "2024-02", Market: "Karachi", Commodity: "Rice",
			BasePrice: decimal.NewFromInt(5000), InflationRate: decimal.NewFromInt(3), PredictedPrice: decimal.NewFromInt(5150)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteArrow(&buf, records))

	r, err := ipc.NewReader(&buf)
	require.NoError(t, err)
	defer r.Release()

	assert.True(t, r.Schema().Equal(Schema))
	require.True(t, r.Next())
	rec := r.Record()
	require.Equal(t, int64(2), rec.NumRows())

	assert.Equal(t, int32(2024), rec.Column(0).(*array.Int32).Value(0))
	assert.Equal(t, int32(2), rec.Column(1).(*array.Int32).Value(1))
	assert.Equal(t, "2024-01", rec.Column(2).(*array.String).Value(0))
	assert.Equal(t, "Karachi", rec.Column(3).(*array.String).Value(1))
	assert.Equal(t, "Wheat", rec.Column(4).(*array.String).Value(0))
	assert.Equal(t, 3000.0, rec.Column(5).(*array.Float64).Value(0))
	assert.Equal(t, 2.5, rec.Column(6).(*array.Float64).Value(0))
	assert.Equal(t, 3075.25, rec.Column(7).(*array.Float64).Value(0))

	assert.False(t, r.Next())
	assert.NoError(t, r.Err())
}

func TestWriteArrowEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteArrow(&buf, nil))

	r, err := ipc.NewReader(&buf)
	require.NoError(t, err)
	defer r.Release()
	assert.True(t, r.Schema().Equal(Schema))
	assert.False(t, r.Next())
}
