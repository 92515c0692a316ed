package dataset

import (
	"encoding/gob"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
)

// snapshotVersion is bumped whenever the on-disk layout changes.
const snapshotVersion = 1

// snapshot is the gob-encoded form of a Dataset. Matrices are flattened
// to row-major slices so the blob stays independent of gonum internals.
type snapshot struct {
	Version int

	CellIDs []string
	GeneIDs []string

	Raw    snapMatrix
	Norm   snapMatrix
	Scaled snapMatrix

	VariableGenes []string
	Obs           map[string][]string
	GeneStats     map[string][]float64
	Reductions    map[string]snapMatrix
	PCVariance    []float64
}

type snapMatrix struct {
	Rows, Cols int
	Data       []float64
}

func toSnapMatrix(m *mat.Dense) snapMatrix {
	if m == nil {
		return snapMatrix{}
	}
	r, c := m.Dims()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		data = append(data, m.RawRowView(i)...)
	}
	return snapMatrix{Rows: r, Cols: c, Data: data}
}

func (s snapMatrix) toDense() *mat.Dense {
	if s.Rows == 0 || s.Cols == 0 {
		return nil
	}
	return mat.NewDense(s.Rows, s.Cols, s.Data)
}

// Save writes the dataset to path as a single gob blob.
func Save(ds *Dataset, path string) error {
	if err := ds.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid dataset: %w", err)
	}

	snap := snapshot{
		Version:       snapshotVersion,
		CellIDs:       ds.CellIDs,
		GeneIDs:       ds.GeneIDs,
		Raw:           toSnapMatrix(ds.Raw),
		Norm:          toSnapMatrix(ds.Norm),
		Scaled:        toSnapMatrix(ds.Scaled),
		VariableGenes: ds.VariableGenes,
		Obs:           ds.Obs,
		GeneStats:     ds.GeneStats,
		Reductions:    make(map[string]snapMatrix, len(ds.Reductions)),
		PCVariance:    ds.PCVariance,
	}
	for name, red := range ds.Reductions {
		snap.Reductions[name] = toSnapMatrix(red)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(snap); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// Load reads a dataset snapshot written by Save.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d (want %d)", snap.Version, snapshotVersion)
	}

	ds := &Dataset{
		CellIDs:       snap.CellIDs,
		GeneIDs:       snap.GeneIDs,
		Raw:           snap.Raw.toDense(),
		Norm:          snap.Norm.toDense(),
		Scaled:        snap.Scaled.toDense(),
		VariableGenes: snap.VariableGenes,
		Obs:           snap.Obs,
		GeneStats:     snap.GeneStats,
		Reductions:    make(map[string]*mat.Dense, len(snap.Reductions)),
		PCVariance:    snap.PCVariance,
	}
	if ds.Obs == nil {
		ds.Obs = make(map[string][]string)
	}
	if ds.GeneStats == nil {
		ds.GeneStats = make(map[string][]float64)
	}
	for name, red := range snap.Reductions {
		ds.Reductions[name] = red.toDense()
	}
	ds.rebuildGeneIndex()

	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("snapshot is inconsistent: %w", err)
	}
	return ds, nil
}
