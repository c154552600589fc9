package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeForecast(t *testing.T) {
	t.Run("mixed severities", func(t *testing.T) {
		rows := []ForecastRow{
			{Date: "2025-01-01", LeakagePercentage: 22},
			{Date: "2025-01-02", LeakagePercentage: 16},
			{Date: "2025-01-03", LeakagePercentage: 12},
			{Date: "2025-01-04", LeakagePercentage: 6},
		}
		s := SummarizeForecast(rows)

		assert.Equal(t, 4, s.Days)
		assert.Equal(t, 1, s.CriticalDays)
		assert.Equal(t, 2, s.HighDays)
		assert.InEpsilon(t, 14.0, s.AvgLeakagePct, 0.0001)
	})

	t.Run("empty forecast", func(t *testing.T) {
		s := SummarizeForecast(nil)
		assert.Equal(t, ForecastSummary{}, s)
	})
}

func TestForecastRow_WireNames(t *testing.T) {
	data := []byte(`{"Date":"2025-03-01","Predicted_Supply_MLD":41.2,"Predicted_Consumption_MLD":35.0,"Predicted_Leakage_MLD":6.2,"Leakage_Percentage":15.05,"Supply_Lower":39.9,"Supply_Upper":42.6}`)

	var row ForecastRow
	require.NoError(t, json.Unmarshal(data, &row))

	assert.Equal(t, "2025-03-01", row.Date)
	assert.Equal(t, 41.2, row.PredictedSupplyMLD)
	assert.Equal(t, 35.0, row.PredictedConsumptionMLD)
	assert.Equal(t, 6.2, row.PredictedLeakageMLD)
	assert.Equal(t, 15.05, row.LeakagePercentage)
	assert.Equal(t, 39.9, row.SupplyLower)
	assert.Equal(t, 42.6, row.SupplyUpper)
}
