package generator

import (
	"sort"

	"memorybench/pkg/model"
)

// Stitching partitions context sizes at a threshold: sizes below the
// threshold go through a Standard generator, sizes at or above it through a
// Batched generator, and the outputs are unioned.
type Stitching struct {
	Threshold int
	Small     TestCaseGenerator // Generator configured for sizes < Threshold
	Large     TestCaseGenerator // Generator configured for sizes >= Threshold
}

// SplitContextSizes splits contextSizes at threshold and returns the two
// ascending size slices the caller should configure small/large generators
// with.
func SplitContextSizes(contextSizes []int, threshold int) (small, large []int) {
	for _, size := range contextSizes {
		if size < threshold {
			small = append(small, size)
		} else {
			large = append(large, size)
		}
	}
	sort.Ints(small)
	sort.Ints(large)
	return small, large
}

// NewStitching builds a Stitching generator from pre-configured small/large
// generators.
func NewStitching(threshold int, small, large TestCaseGenerator) *Stitching {
	return &Stitching{Threshold: threshold, Small: small, Large: large}
}

func (s *Stitching) GeneratorType() string      { return "stitching" }
func (s *Stitching) GeneratorClassType() string { return "StitchingTestCaseGenerator" }

func (s *Stitching) Generate() ([]model.TestCase, error) {
	var all []model.TestCase

	if s.Small != nil {
		small, err := s.Small.Generate()
		if err != nil {
			return nil, err
		}
		all = append(all, small...)
	}

	if s.Large != nil {
		large, err := s.Large.Generate()
		if err != nil {
			return nil, err
		}
		all = append(all, large...)
	}

	return all, nil
}
