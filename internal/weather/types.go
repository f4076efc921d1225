// Package weather fetches cloud-cover forecasts from the Weather Unlocked API
// and aligns them onto a forecast time grid.
package weather

// Sample is one cloud-cover forecast value. Percentages are 0-100.
type Sample struct {
	CloudTotal  float64 `json:"cloud_total_pct"`
	CloudLow    float64 `json:"cloud_low_pct"`
	CloudMid    float64 `json:"cloud_mid_pct"`
	CloudHigh   float64 `json:"cloud_high_pct"`
	Temperature float64 `json:"temperature_c"`
}

// ForecastResponse is the subset of the Weather Unlocked forecast document we use.
type ForecastResponse struct {
	Days []ForecastDay `json:"Days"`
}

// ForecastDay groups the timeframes of one calendar day.
type ForecastDay struct {
	Date       string              `json:"date"`
	Timeframes []ForecastTimeframe `json:"Timeframes"`
}

// ForecastTimeframe is a single (typically 3-hourly) forecast period.
type ForecastTimeframe struct {
	Date         string  `json:"date"`
	Time         int     `json:"time"`
	CloudTotal   float64 `json:"cloudtotal_pct"`
	CloudLow     float64 `json:"cloud_low_pct"`
	CloudMid     float64 `json:"cloud_mid_pct"`
	CloudHigh    float64 `json:"cloud_high_pct"`
	TemperatureC float64 `json:"temp_c"`
}

// Samples flattens the response into one Sample per timeframe, in order.
func (r *ForecastResponse) Samples() []Sample {
	var out []Sample
	for _, d := range r.Days {
		for _, tf := range d.Timeframes {
			out = append(out, Sample{
				CloudTotal:  tf.CloudTotal,
				CloudLow:    tf.CloudLow,
				CloudMid:    tf.CloudMid,
				CloudHigh:   tf.CloudHigh,
				Temperature: tf.TemperatureC,
			})
		}
	}
	return out
}
