package domain

// ForecastRow is one forecast day for the city or a single ward.
type ForecastRow struct {
	Date                    string  `json:"Date"`
	PredictedSupplyMLD      float64 `json:"Predicted_Supply_MLD"`
	PredictedConsumptionMLD float64 `json:"Predicted_Consumption_MLD"`
	PredictedLeakageMLD     float64 `json:"Predicted_Leakage_MLD"`
	LeakagePercentage       float64 `json:"Leakage_Percentage"`
	SupplyLower             float64 `json:"Supply_Lower,omitempty"` // confidence band
	SupplyUpper             float64 `json:"Supply_Upper,omitempty"`
}

// ForecastSummary is the city-level rollup shown above the forecast.
type ForecastSummary struct {
	Days          int
	AvgLeakagePct float64
	CriticalDays  int // rows classified CRITICAL
	HighDays      int // rows classified HIGH or worse
}

// SummarizeForecast counts days per severity and averages the leakage percentage.
// An empty forecast yields a zero summary.
func SummarizeForecast(rows []ForecastRow) ForecastSummary {
	s := ForecastSummary{Days: len(rows)}
	if len(rows) == 0 {
		return s
	}
	var total float64
	for _, r := range rows {
		total += r.LeakagePercentage
		switch Classify(r.LeakagePercentage) {
		case LevelCritical:
			s.CriticalDays++
			s.HighDays++
		case LevelHigh:
			s.HighDays++
		}
	}
	s.AvgLeakagePct = total / float64(len(rows))
	return s
}

// ModelAccuracy reports fit statistics of the forecasting model.
type ModelAccuracy struct {
	CitySupplyR2      float64 `json:"City_Supply_R2"`
	CitySupplyMAE     float64 `json:"City_Supply_MAE,omitempty"`
	CityConsumptionR2 float64 `json:"City_Consumption_R2,omitempty"`
	CityLeakageR2     float64 `json:"City_Leakage_R2,omitempty"`
}

// CitySummary carries the historical KPIs served by the forecasting API.
type CitySummary struct {
	LastDataDate         string        `json:"Last_Data_Date"`
	AvgDailySupplyMLD    float64       `json:"Avg_Daily_Supply_MLD"`
	AvgDailyLeakageMLD   float64       `json:"Avg_Daily_Leakage_MLD"`
	AvgLeakagePercentage float64       `json:"Avg_Leakage_Percentage"`
	HighestLeakageWard   string        `json:"Highest_Leakage_Ward"`
	HighestLeakageWardNo int           `json:"Highest_Leakage_Ward_No"`
	ModelAccuracy        ModelAccuracy `json:"Model_Accuracy"`
}
