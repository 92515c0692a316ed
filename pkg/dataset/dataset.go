// Package dataset defines the in-memory container for a single-cell
// expression dataset: a cell x gene count matrix with raw and normalized
// layers, per-cell and per-gene metadata, and named dimensionality
// reductions ("pca", "mds", ...) holding cell x component coordinates.
package dataset

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Dataset bundles everything produced for one analysis run. Each sweep
// iteration works on its own deep copy, so a stored Dataset is never
// mutated after being handed out.
type Dataset struct {
	CellIDs []string // one per matrix row
	GeneIDs []string // one per matrix column

	Raw  *mat.Dense // raw counts, cells x genes
	Norm *mat.Dense // normalized log counts, nil until normalization ran

	// Scaled holds the unit-variance expression restricted to the current
	// variable genes (cells x len(VariableGenes)), nil until scaling ran.
	Scaled *mat.Dense

	// VariableGenes is the ordered variable-feature selection, most
	// informative first. Empty until feature selection ran.
	VariableGenes []string

	// Obs are per-cell categorical columns (cluster labels, annotations).
	Obs map[string][]string

	// GeneStats are per-gene numeric columns (means, dispersions).
	GeneStats map[string][]float64

	// Reductions maps a reduction name to a cell x component score matrix.
	Reductions map[string]*mat.Dense

	// PCVariance holds the per-component explained variance of the "pca"
	// reduction, when present.
	PCVariance []float64

	geneIndex map[string]int
}

// New creates a dataset from a raw count matrix. The matrix must be
// cells x genes with len(cellIDs) rows and len(geneIDs) columns.
func New(cellIDs, geneIDs []string, raw *mat.Dense) (*Dataset, error) {
	r, c := raw.Dims()
	if r != len(cellIDs) || c != len(geneIDs) {
		return nil, fmt.Errorf("matrix is %dx%d but got %d cell IDs and %d gene IDs",
			r, c, len(cellIDs), len(geneIDs))
	}

	ds := &Dataset{
		CellIDs:    append([]string(nil), cellIDs...),
		GeneIDs:    append([]string(nil), geneIDs...),
		Raw:        raw,
		Obs:        make(map[string][]string),
		GeneStats:  make(map[string][]float64),
		Reductions: make(map[string]*mat.Dense),
	}
	ds.rebuildGeneIndex()

	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// NCells returns the number of cells (matrix rows).
func (ds *Dataset) NCells() int { return len(ds.CellIDs) }

// NGenes returns the number of genes (matrix columns).
func (ds *Dataset) NGenes() int { return len(ds.GeneIDs) }

// GeneIndex returns the column index of a gene, or -1 if unknown.
func (ds *Dataset) GeneIndex(gene string) int {
	if ds.geneIndex == nil {
		ds.rebuildGeneIndex()
	}
	if i, ok := ds.geneIndex[gene]; ok {
		return i
	}
	return -1
}

func (ds *Dataset) rebuildGeneIndex() {
	ds.geneIndex = make(map[string]int, len(ds.GeneIDs))
	for i, g := range ds.GeneIDs {
		ds.geneIndex[g] = i
	}
}

// SetObs attaches a per-cell categorical column, replacing any existing
// column of the same name.
func (ds *Dataset) SetObs(name string, values []string) error {
	if len(values) != ds.NCells() {
		return fmt.Errorf("obs column %q has %d values for %d cells", name, len(values), ds.NCells())
	}
	ds.Obs[name] = append([]string(nil), values...)
	return nil
}

// ObsColumn returns a per-cell categorical column.
func (ds *Dataset) ObsColumn(name string) ([]string, error) {
	col, ok := ds.Obs[name]
	if !ok {
		return nil, fmt.Errorf("obs column not found: %s", name)
	}
	return col, nil
}

// ObsLevels returns the distinct values of an obs column in sorted order.
func (ds *Dataset) ObsLevels(name string) ([]string, error) {
	col, err := ds.ObsColumn(name)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	levels := make([]string, 0)
	for _, v := range col {
		if !seen[v] {
			seen[v] = true
			levels = append(levels, v)
		}
	}
	sort.Strings(levels)
	return levels, nil
}

// Reduction returns a named cell x component coordinate matrix.
func (ds *Dataset) Reduction(name string) (*mat.Dense, error) {
	red, ok := ds.Reductions[name]
	if !ok {
		return nil, fmt.Errorf("reduction not found: %s", name)
	}
	return red, nil
}

// SetReduction stores a named coordinate matrix. The matrix must have one
// row per cell.
func (ds *Dataset) SetReduction(name string, coords *mat.Dense) error {
	r, _ := coords.Dims()
	if r != ds.NCells() {
		return fmt.Errorf("reduction %q has %d rows for %d cells", name, r, ds.NCells())
	}
	ds.Reductions[name] = coords
	return nil
}

// Clone creates a deep copy. Sweep iterations hold a full copy of the
// expression data plus derived reductions, so no result can be
// cross-contaminated by a later iteration.
func (ds *Dataset) Clone() *Dataset {
	clone := &Dataset{
		CellIDs:       append([]string(nil), ds.CellIDs...),
		GeneIDs:       append([]string(nil), ds.GeneIDs...),
		VariableGenes: append([]string(nil), ds.VariableGenes...),
		Obs:           make(map[string][]string, len(ds.Obs)),
		GeneStats:     make(map[string][]float64, len(ds.GeneStats)),
		Reductions:    make(map[string]*mat.Dense, len(ds.Reductions)),
		PCVariance:    append([]float64(nil), ds.PCVariance...),
	}

	clone.Raw = cloneDense(ds.Raw)
	clone.Norm = cloneDense(ds.Norm)
	clone.Scaled = cloneDense(ds.Scaled)

	for name, col := range ds.Obs {
		clone.Obs[name] = append([]string(nil), col...)
	}
	for name, col := range ds.GeneStats {
		clone.GeneStats[name] = append([]float64(nil), col...)
	}
	for name, red := range ds.Reductions {
		clone.Reductions[name] = cloneDense(red)
	}

	clone.rebuildGeneIndex()
	return clone
}

func cloneDense(m *mat.Dense) *mat.Dense {
	if m == nil {
		return nil
	}
	var out mat.Dense
	out.CloneFrom(m)
	return &out
}

// Validate checks internal consistency: layer dimensions agree, every obs
// column has one value per cell, and every reduction has one row per cell.
func (ds *Dataset) Validate() error {
	nCells, nGenes := ds.NCells(), ds.NGenes()
	if nCells == 0 {
		return fmt.Errorf("dataset has no cells")
	}
	if nGenes == 0 {
		return fmt.Errorf("dataset has no genes")
	}

	if ds.Raw == nil {
		return fmt.Errorf("dataset has no raw layer")
	}
	if r, c := ds.Raw.Dims(); r != nCells || c != nGenes {
		return fmt.Errorf("raw layer is %dx%d, expected %dx%d", r, c, nCells, nGenes)
	}
	if ds.Norm != nil {
		if r, c := ds.Norm.Dims(); r != nCells || c != nGenes {
			return fmt.Errorf("normalized layer is %dx%d, expected %dx%d", r, c, nCells, nGenes)
		}
	}
	if ds.Scaled != nil {
		if r, c := ds.Scaled.Dims(); r != nCells || c != len(ds.VariableGenes) {
			return fmt.Errorf("scaled layer is %dx%d, expected %dx%d", r, c, nCells, len(ds.VariableGenes))
		}
	}

	for name, col := range ds.Obs {
		if len(col) != nCells {
			return fmt.Errorf("obs column %q has %d values for %d cells", name, len(col), nCells)
		}
	}
	for name, col := range ds.GeneStats {
		if len(col) != nGenes {
			return fmt.Errorf("gene stat %q has %d values for %d genes", name, len(col), nGenes)
		}
	}
	for name, red := range ds.Reductions {
		if r, _ := red.Dims(); r != nCells {
			return fmt.Errorf("reduction %q has %d rows for %d cells", name, r, nCells)
		}
	}

	for _, g := range ds.VariableGenes {
		if ds.GeneIndex(g) < 0 {
			return fmt.Errorf("variable gene not in dataset: %s", g)
		}
	}

	return nil
}
