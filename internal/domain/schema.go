package domain

// Bucket names for the three medallion tiers.
const (
	BucketBronze = "bronze"
	BucketSilver = "silver"
	BucketGold   = "gold"
)

// Object names used across the pipeline. Producers and consumers agree on
// these; there is no format negotiation.
const (
	ObjectTrafficRaw   = "traffic_raw.csv"
	ObjectWeatherRaw   = "weather_raw.csv"
	ObjectTrafficClean = "traffic_clean.parquet"
	ObjectWeatherClean = "weather_clean.parquet"
	ObjectMerged       = "merged_data.parquet"
	ObjectFactorScores = "traffic_weather_factors.parquet"
	ObjectLoadings     = "factor_loadings.parquet"
	ObjectScenarios    = "monte_carlo_scenarios.parquet"
	ObjectBootstrap    = "monte_carlo_results.parquet"
)

// TableSpec designates column roles for one raw dataset. The cleaner only
// touches designated columns; anything else rides along untouched.
type TableSpec struct {
	// KeyColumn is the natural key used for deduplication. Optional: when
	// the column is absent from the input, dedup falls back to whole-row
	// comparison.
	KeyColumn string

	// TimeColumn holds the multi-format raw timestamp.
	TimeColumn string

	// Categorical columns are repaired with the per-column mode.
	Categorical []string

	// Numeric columns are coerced to float64, fenced, clamped, and
	// median-imputed.
	Numeric []string
}

// TrafficSpec returns the column designation for the raw traffic dataset.
func TrafficSpec() TableSpec {
	return TableSpec{
		KeyColumn:   "traffic_id",
		TimeColumn:  "date_time",
		Categorical: []string{"city", "area", "congestion_level", "road_condition"},
		Numeric:     []string{"vehicle_count", "avg_speed_kmh", "accident_count", "visibility_m"},
	}
}

// WeatherSpec returns the column designation for the raw weather dataset.
func WeatherSpec() TableSpec {
	return TableSpec{
		KeyColumn:   "weather_id",
		TimeColumn:  "date_time",
		Categorical: []string{"city", "season", "weather_condition"},
		Numeric:     []string{"temperature_c", "humidity", "rain_mm", "wind_speed_kmh", "visibility_m"},
	}
}

// Congestion levels observed in the traffic source.
var CongestionLevels = []string{"Low", "Medium", "High"}

// Road conditions observed in the traffic source.
var RoadConditions = []string{"Dry", "Wet", "Snowy", "Damaged"}

// Seasons observed in the weather source.
var Seasons = []string{"Winter", "Spring", "Summer", "Autumn"}

// Weather conditions observed in the weather source.
var WeatherConditions = []string{"Clear", "Rain", "Fog", "Storm", "Snow"}
