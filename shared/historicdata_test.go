package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

// writeHistoricData writes the provided content to a temporary historic data file.
func writeHistoricData(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "historicdata.json")
	err := os.WriteFile(path, []byte(content), 0o600)
	assert.NoError(t, err)

	return path
}

func TestLoadHistoricData(t *testing.T) {
	content := `{"market":"^GSPC","interval":"1d","data":[
		{"date":"2025-02-05","open":12,"high":14,"low":11,"close":13,"volume":7},
		{"date":"2025-02-04","open":10,"high":15,"low":8,"close":12,"volume":5},
		{"date":"2025-02-06","open":13,"high":16,"low":12,"close":15,"volume":9}
	]}`

	// Ensure historic data can be loaded and is ordered by date.
	series, err := LoadHistoricData(writeHistoricData(t, content), time.UTC)
	assert.NoError(t, err)
	assert.Equal(t, series.Market, "^GSPC")
	assert.Equal(t, series.Interval, OneDay)
	assert.Equal(t, series.Len(), 3)
	assert.Equal(t, series.Candle(0).Close, float64(12))
	assert.Equal(t, series.Candle(2).Close, float64(15))

	// Ensure a missing file errors.
	_, err = LoadHistoricData(filepath.Join(t.TempDir(), "missing.json"), time.UTC)
	assert.Error(t, err)

	// Ensure invalid json errors.
	_, err = LoadHistoricData(writeHistoricData(t, `{"market":`), time.UTC)
	assert.Error(t, err)

	// Ensure a file without bars reports no data.
	_, err = LoadHistoricData(writeHistoricData(t, `{"market":"^GSPC","data":[]}`), time.UTC)
	assert.True(t, errors.Is(err, ErrNoData))

	// Ensure a file without a market errors.
	_, err = LoadHistoricData(writeHistoricData(t, `{"data":[]}`), time.UTC)
	assert.Error(t, err)

	// Ensure an unknown interval errors.
	_, err = LoadHistoricData(writeHistoricData(t, `{"market":"^GSPC","interval":"2h","data":[]}`), time.UTC)
	assert.Error(t, err)
}
