// Package sweep runs the variable-gene-count parameter sweep: for each
// candidate count it independently selects features, scales, reduces,
// builds the neighbor graph, and clusters a fresh copy of the dataset,
// accumulating one fully processed object per candidate in an ordered
// result mapping.
package sweep

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/gilchrisn/scrna-analysis-service/pkg/dataset"
	"github.com/gilchrisn/scrna-analysis-service/pkg/louvain"
	"github.com/gilchrisn/scrna-analysis-service/pkg/neighbors"
	"github.com/gilchrisn/scrna-analysis-service/pkg/preprocess"
	"github.com/gilchrisn/scrna-analysis-service/pkg/reduction"
)

// Entry is one fully processed sweep result. The dataset is never
// mutated after the entry is stored.
type Entry struct {
	Label       string
	GeneCount   int
	Dataset     *dataset.Dataset
	NumClusters int
	Modularity  float64
	Elapsed     time.Duration
}

// Result is the ordered sweep result mapping: one entry per candidate,
// in candidate order, keyed by a label derived from the candidate value.
type Result struct {
	RunID   string
	Entries []Entry
}

// Labels returns the entry labels in sweep order.
func (r *Result) Labels() []string {
	labels := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		labels[i] = e.Label
	}
	return labels
}

// Get returns the entry stored under a label.
func (r *Result) Get(label string) (*Entry, bool) {
	for i := range r.Entries {
		if r.Entries[i].Label == label {
			return &r.Entries[i], true
		}
	}
	return nil, false
}

// ===== SWEEP EXECUTION =====

// Run executes the sweep over a normalized dataset. Candidates run
// strictly in sequence; any failure aborts the whole sweep with the
// failing candidate named in the error. Each iteration holds a full copy
// of the expression data plus derived reductions, so a garbage collection
// pass runs after every candidate to bound peak memory.
func Run(ctx context.Context, base *dataset.Dataset, cfg *Config) (*Result, error) {
	if base.Norm == nil {
		return nil, fmt.Errorf("dataset is not normalized")
	}
	counts := cfg.GeneCounts()
	if len(counts) == 0 {
		return nil, fmt.Errorf("no candidate gene counts configured")
	}

	logger := cfg.CreateLogger()
	result := &Result{RunID: uuid.New().String()}

	logger.Info().
		Str("run_id", result.RunID).
		Ints("gene_counts", counts).
		Int("cells", base.NCells()).
		Int("genes", base.NGenes()).
		Float64("resolution", cfg.Resolution()).
		Int64("random_seed", cfg.RandomSeed()).
		Msg("Starting parameter sweep")

	for _, count := range counts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		start := time.Now()
		entry, err := runCandidate(ctx, base, count, cfg)
		if err != nil {
			return nil, fmt.Errorf("sweep failed at %s%d: %w", cfg.LabelPrefix(), count, err)
		}
		entry.Elapsed = time.Since(start)
		result.Entries = append(result.Entries, *entry)

		logger.Info().
			Str("label", entry.Label).
			Int("clusters", entry.NumClusters).
			Float64("modularity", entry.Modularity).
			Dur("elapsed", entry.Elapsed).
			Msg("Candidate completed")

		// Each iteration retains a processed copy of the full dataset;
		// collect between candidates to bound peak memory.
		runtime.GC()
	}

	return result, nil
}

// runCandidate processes one candidate gene count on an independent copy.
func runCandidate(ctx context.Context, base *dataset.Dataset, count int, cfg *Config) (*Entry, error) {
	work := base.Clone()

	if _, err := preprocess.SelectVariableGenes(work, count); err != nil {
		return nil, fmt.Errorf("variable gene selection: %w", err)
	}
	if err := preprocess.Scale(work, preprocess.DefaultScaleOptions()); err != nil {
		return nil, fmt.Errorf("scaling: %w", err)
	}
	if err := reduction.PCA(work, cfg.PCAComponents()); err != nil {
		return nil, fmt.Errorf("PCA: %w", err)
	}
	if err := reduction.Embed2D(work, reduction.PCAKey, reduction.EmbedKey, cfg.EmbedDims()); err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}

	clusterRes, err := Cluster(ctx, work, reduction.PCAKey, cfg.ClusterColumn(), cfg)
	if err != nil {
		return nil, err
	}

	return &Entry{
		Label:       fmt.Sprintf("%s%d", cfg.LabelPrefix(), count),
		GeneCount:   count,
		Dataset:     work,
		NumClusters: clusterRes.NumCommunities,
		Modularity:  clusterRes.Modularity,
	}, nil
}

// Cluster builds the neighbor graph over a reduction and runs community
// detection, attaching the resulting labels as an obs column.
func Cluster(ctx context.Context, ds *dataset.Dataset, reductionName, obsCol string, cfg *Config) (*louvain.Result, error) {
	graph, err := neighbors.KNNGraph(ds, reductionName, cfg.NeighborDims(), cfg.NeighborK())
	if err != nil {
		return nil, fmt.Errorf("neighbor graph: %w", err)
	}

	lcfg := louvain.NewConfig()
	lcfg.Set("algorithm.resolution", cfg.Resolution())
	lcfg.Set("algorithm.random_seed", cfg.RandomSeed())
	lcfg.Set("logging.level", cfg.LogLevel())

	res, err := louvain.Run(ctx, graph, lcfg)
	if err != nil {
		return nil, fmt.Errorf("clustering: %w", err)
	}

	labels := make([]string, len(res.FinalCommunities))
	for i, comm := range res.FinalCommunities {
		labels[i] = strconv.Itoa(comm)
	}
	if err := ds.SetObs(obsCol, labels); err != nil {
		return nil, err
	}

	return res, nil
}
