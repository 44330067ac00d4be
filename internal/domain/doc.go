// Package domain models the urban traffic and weather data lake.
//
// # Medallion Layout
//
// Datasets move through three object-store buckets:
//
//	bronze: raw synthetic CSVs as produced by the generators, full of
//	        deliberate quality problems (duplicate and null IDs, malformed
//	        timestamps, out-of-range numerics, missing categories).
//	silver: cleaned and merged Parquet tables. Every silver table is
//	        rectangular: no nulls in designated columns, numerics bounded
//	        by their own IQR fences.
//	gold:   analytical Parquet outputs (factor scores and loadings,
//	        Monte Carlo scenario and bootstrap summaries).
//
// # Timestamp Conventions
//
// Raw sources emit timestamps in three shapes:
//
//	"2024-01-01 15:04"       ISO-like, naive
//	"01/01/2024 03PM"        day-first slash date with a 12-hour clock
//	"2024-01-01T15:04Z"      ISO with a trailing UTC designator
//
// Ambiguous day/month order is resolved day-first (the sources are
// UK-centric). Timezone designators are normalized to UTC and stripped; the
// cleaned tables carry naive UTC instants. Rows whose timestamp fails every
// layout are dropped rather than imputed: any other field can be repaired,
// but a fabricated timestamp corrupts every downstream time-based join.
//
// # Cleaning Policy
//
// Where historical cleaning variants disagreed, the defensive variant is
// canonical: duplicates are dropped by natural key (traffic_id / weather_id)
// when present, outliers are clamped to the IQR fence rather than deleted,
// and the 50%-missing column check runs before clamping so that clamping
// cannot mask the extent of corruption. Rows whose natural key is null are
// kept; conflating unrelated rows under a shared null would silently lose
// data.
//
// # Stage Errors
//
// Stage failures carry a [StageErrorKind] so the orchestrator can apply its
// propagation policy: connectivity errors were already retried and halt the
// run, data errors halt the run, partial errors keep committed objects and
// fail the stage without rollback. See [StageError].
package domain
