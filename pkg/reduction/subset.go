package reduction

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/scrna-analysis-service/pkg/dataset"
)

// SubsetComponents derives a new reduction from an explicit component
// index list, preserving cell count and order. Indices refer to columns
// of the source reduction and are kept in the given order.
func SubsetComponents(ds *dataset.Dataset, from, to string, keep []int) error {
	source, err := ds.Reduction(from)
	if err != nil {
		return err
	}
	if len(keep) == 0 {
		return fmt.Errorf("component subset is empty")
	}

	nCells, nComp := source.Dims()
	for _, idx := range keep {
		if idx < 0 || idx >= nComp {
			return fmt.Errorf("component index %d out of range [0,%d)", idx, nComp)
		}
	}

	out := mat.NewDense(nCells, len(keep), nil)
	for i := 0; i < nCells; i++ {
		for k, idx := range keep {
			out.Set(i, k, source.At(i, idx))
		}
	}
	return ds.SetReduction(to, out)
}

// ExcludeComponents derives a new reduction with the listed component
// indices dropped. The exclusion list is a human judgment call made after
// inspecting per-component distributions; no automated selection rule is
// applied here.
func ExcludeComponents(ds *dataset.Dataset, from, to string, exclude []int) error {
	source, err := ds.Reduction(from)
	if err != nil {
		return err
	}
	_, nComp := source.Dims()

	drop := make(map[int]bool, len(exclude))
	for _, idx := range exclude {
		if idx < 0 || idx >= nComp {
			return fmt.Errorf("excluded component index %d out of range [0,%d)", idx, nComp)
		}
		drop[idx] = true
	}

	keep := make([]int, 0, nComp-len(drop))
	for idx := 0; idx < nComp; idx++ {
		if !drop[idx] {
			keep = append(keep, idx)
		}
	}
	if len(keep) == 0 {
		return fmt.Errorf("excluding %d components leaves none", len(exclude))
	}
	sort.Ints(keep)

	return SubsetComponents(ds, from, to, keep)
}
