package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/citylake/traffic-weather-etl/internal/domain"
	"github.com/citylake/traffic-weather-etl/internal/frame"
	"github.com/citylake/traffic-weather-etl/internal/gen"
)

const (
	csvContentType     = "text/csv"
	parquetContentType = "application/vnd.apache.parquet"
)

// runIngest ensures the three tier buckets exist and seeds bronze with
// synthetic raw CSVs. Objects already present are left alone, so re-runs
// process the same inputs.
func (p *Pipeline) runIngest(ctx context.Context) (stageResult, error) {
	const name = "ingest"

	for _, bucket := range []string{domain.BucketBronze, domain.BucketSilver, domain.BucketGold} {
		if err := p.deps.Store.EnsureBucket(ctx, bucket); err != nil {
			return stageResult{}, domain.NewStageError(name, domain.ErrorConnectivity, err)
		}
	}

	seed := p.deps.GenerateSeed
	if seed == 0 {
		seed = uint64(p.deps.Clock.Now().UnixNano())
	}
	g := gen.New(seed)

	var res stageResult
	datasets := []struct {
		object   string
		generate func(int) *frame.Table
	}{
		{object: domain.ObjectTrafficRaw, generate: g.Traffic},
		{object: domain.ObjectWeatherRaw, generate: g.Weather},
	}

	for _, d := range datasets {
		exists, err := p.objectExists(ctx, domain.BucketBronze, d.object)
		if err != nil {
			return res, domain.NewStageError(name, domain.ErrorConnectivity, err)
		}
		if exists {
			p.deps.Logger.Info("bronze object already present, keeping it", "object", d.object)
			continue
		}

		tbl := d.generate(p.deps.GenerateRows)
		data, err := tbl.WriteCSV()
		if err != nil {
			return res, domain.NewStageError(name, domain.ErrorData, err)
		}
		if err := p.putObject(ctx, domain.BucketBronze, d.object, data, csvContentType); err != nil {
			return res, domain.NewStageError(name, domain.ErrorConnectivity, err)
		}
		res.rowsOut += tbl.NumRows()
	}
	return res, nil
}

// runClean pulls one raw CSV from bronze, cleans it, and writes the Parquet
// result to silver.
func (p *Pipeline) runClean(ctx context.Context, name, rawObject, cleanObject string, spec domain.TableSpec) (stageResult, error) {
	data, err := p.deps.Store.GetObject(ctx, domain.BucketBronze, rawObject)
	if err != nil {
		return stageResult{}, domain.NewStageError(name, domain.ErrorKind(err), err)
	}

	raw, err := frame.ReadCSV(bytes.NewReader(data))
	if err != nil {
		return stageResult{}, domain.NewStageError(name, domain.ErrorData, fmt.Errorf("parsing %s: %w", rawObject, err))
	}

	cleaned, report, err := p.cleaner.Clean(raw, spec)
	if err != nil {
		return stageResult{rowsIn: raw.NumRows()}, domain.NewStageError(name, domain.ErrorData, err)
	}

	res := stageResult{
		rowsIn:  report.RowsIn,
		rowsOut: report.RowsOut,
		dropped: report.RowsIn - report.RowsOut,
	}

	out, err := cleaned.WriteParquet()
	if err != nil {
		return res, domain.NewStageError(name, domain.ErrorData, err)
	}
	if err := p.putObject(ctx, domain.BucketSilver, cleanObject, out, parquetContentType); err != nil {
		return res, domain.NewStageError(name, domain.ErrorConnectivity, err)
	}
	return res, nil
}

// runMerge left-joins the cleaned traffic and weather tables on city and
// calendar day and writes the result back to silver.
func (p *Pipeline) runMerge(ctx context.Context) (stageResult, error) {
	const name = "merge"

	traffic, err := p.getParquet(ctx, domain.BucketSilver, domain.ObjectTrafficClean)
	if err != nil {
		return stageResult{}, domain.NewStageError(name, domain.ErrorKind(err), err)
	}
	weather, err := p.getParquet(ctx, domain.BucketSilver, domain.ObjectWeatherClean)
	if err != nil {
		return stageResult{}, domain.NewStageError(name, domain.ErrorKind(err), err)
	}

	merged, err := p.merger.Merge(traffic, weather)
	if err != nil {
		return stageResult{rowsIn: traffic.NumRows()}, domain.NewStageError(name, domain.ErrorData, err)
	}

	res := stageResult{rowsIn: traffic.NumRows() + weather.NumRows(), rowsOut: merged.NumRows()}
	if err := p.putParquet(ctx, domain.BucketSilver, domain.ObjectMerged, merged); err != nil {
		return res, domain.NewStageError(name, domain.ErrorConnectivity, err)
	}
	return res, nil
}

// runFactorAnalysis scores the merged table and writes the enriched dataset
// and the loadings matrix to gold.
func (p *Pipeline) runFactorAnalysis(ctx context.Context) (stageResult, error) {
	const name = "factor_analysis"

	merged, err := p.getParquet(ctx, domain.BucketSilver, domain.ObjectMerged)
	if err != nil {
		return stageResult{}, domain.NewStageError(name, domain.ErrorKind(err), err)
	}

	result, err := p.extractor.Extract(merged)
	if err != nil {
		return stageResult{rowsIn: merged.NumRows()}, domain.NewStageError(name, domain.ErrorData, err)
	}

	res := stageResult{rowsIn: merged.NumRows(), rowsOut: result.Scored.NumRows()}
	err = p.putParquetAll(ctx, name, domain.BucketGold, []namedTable{
		{object: domain.ObjectFactorScores, table: result.Scored},
		{object: domain.ObjectLoadings, table: result.Loadings},
	})
	return res, err
}

// runMonteCarlo simulates the weather scenarios and bootstrap estimates over
// the merged table and writes both summaries to gold.
func (p *Pipeline) runMonteCarlo(ctx context.Context) (stageResult, error) {
	const name = "monte_carlo"

	merged, err := p.getParquet(ctx, domain.BucketSilver, domain.ObjectMerged)
	if err != nil {
		return stageResult{}, domain.NewStageError(name, domain.ErrorKind(err), err)
	}

	scenarios, bootstrap, err := p.simulator.Run(merged)
	if err != nil {
		return stageResult{rowsIn: merged.NumRows()}, domain.NewStageError(name, domain.ErrorData, err)
	}

	res := stageResult{rowsIn: merged.NumRows(), rowsOut: scenarios.NumRows() + bootstrap.NumRows()}
	err = p.putParquetAll(ctx, name, domain.BucketGold, []namedTable{
		{object: domain.ObjectScenarios, table: scenarios},
		{object: domain.ObjectBootstrap, table: bootstrap},
	})
	return res, err
}

// runReplicate copies every silver Parquet object into the bulk filesystem.
// Objects already copied stay in place when a later copy fails.
func (p *Pipeline) runReplicate(ctx context.Context) (stageResult, error) {
	const name = "replicate"

	if p.deps.Replica == nil {
		p.deps.Logger.Info("replication disabled, skipping")
		return stageResult{}, nil
	}

	keys, err := p.deps.Store.ListObjects(ctx, domain.BucketSilver)
	if err != nil {
		return stageResult{}, domain.NewStageError(name, domain.ErrorConnectivity, err)
	}

	var parquets []string
	for _, key := range keys {
		if path.Ext(key) == ".parquet" {
			parquets = append(parquets, key)
		}
	}
	if len(parquets) == 0 {
		return stageResult{}, nil
	}

	if err := p.deps.Replica.MkdirAll(p.deps.ReplicaDir); err != nil {
		return stageResult{}, domain.NewStageError(name, domain.ErrorConnectivity, err)
	}

	succeeded := 0
	var firstErr error
	for _, key := range parquets {
		data, err := p.deps.Store.GetObject(ctx, domain.BucketSilver, key)
		if err == nil {
			err = p.deps.Replica.WriteFile(path.Join(p.deps.ReplicaDir, key), data, true)
		}
		if err != nil {
			p.deps.Logger.Warn("replication of object failed", "object", key, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		succeeded++
	}

	res := stageResult{rowsIn: len(parquets), rowsOut: succeeded}
	if succeeded < len(parquets) {
		return res, &domain.StageError{
			Stage:     name,
			Kind:      domain.ErrorPartial,
			Succeeded: succeeded,
			Total:     len(parquets),
			Err:       firstErr,
		}
	}
	return res, nil
}

type namedTable struct {
	object string
	table  *frame.Table
}

// putParquetAll writes tables in order. A failure after earlier successes is
// a partial error; committed objects stay.
func (p *Pipeline) putParquetAll(ctx context.Context, stageName, bucket string, tables []namedTable) error {
	for i, nt := range tables {
		if err := p.putParquet(ctx, bucket, nt.object, nt.table); err != nil {
			if i > 0 {
				return &domain.StageError{
					Stage:     stageName,
					Kind:      domain.ErrorPartial,
					Succeeded: i,
					Total:     len(tables),
					Err:       err,
				}
			}
			return domain.NewStageError(stageName, domain.ErrorConnectivity, err)
		}
	}
	return nil
}

func (p *Pipeline) getParquet(ctx context.Context, bucket, object string) (*frame.Table, error) {
	data, err := p.deps.Store.GetObject(ctx, bucket, object)
	if err != nil {
		return nil, err
	}
	tbl, err := frame.ReadParquet(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s/%s: %w", bucket, object, err)
	}
	return tbl, nil
}

func (p *Pipeline) putParquet(ctx context.Context, bucket, object string, tbl *frame.Table) error {
	data, err := tbl.WriteParquet()
	if err != nil {
		return fmt.Errorf("encoding %s/%s: %w", bucket, object, err)
	}
	return p.putObject(ctx, bucket, object, data, parquetContentType)
}

func (p *Pipeline) putObject(ctx context.Context, bucket, object string, data []byte, contentType string) error {
	if err := p.deps.Store.PutObject(ctx, bucket, object, data, contentType); err != nil {
		return err
	}
	p.deps.Metrics.ObjectsWritten.WithLabelValues(bucket).Inc()
	return nil
}

func (p *Pipeline) objectExists(ctx context.Context, bucket, object string) (bool, error) {
	keys, err := p.deps.Store.ListObjects(ctx, bucket)
	if err != nil {
		return false, err
	}
	for _, key := range keys {
		if key == object {
			return true, nil
		}
	}
	return false, nil
}
