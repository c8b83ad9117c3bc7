// Package batch provides deterministic, balanced partitioning of test cases
// into a fixed number of batches, preserving context-size proportions.
package batch

import (
	"fmt"
	"math/rand"
	"sort"

	"memorybench/pkg/model"
)

// CreateBalancedBatches splits cases into n batches. Within each context
// size, counts are distributed round-robin-with-remainder so the max/min
// per-batch count for that size differs by at most 1. Each resulting batch
// is then sorted by ConversationCount descending so the heaviest contexts
// are processed first.
func CreateBalancedBatches(cases []model.TestCase, n int, rng *rand.Rand) ([][]model.TestCase, error) {
	if n <= 0 {
		return nil, fmt.Errorf("batch count must be > 0, got %d", n)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1)) //nolint:gosec // deterministic fallback, not cryptographic
	}

	batches := make([][]model.TestCase, n)
	for i := range batches {
		batches[i] = []model.TestCase{}
	}
	if len(cases) == 0 {
		return batches, nil
	}

	byContext := groupByContextSize(cases)

	// Stable order of context sizes so distribution is deterministic given rng.
	sizes := make([]int, 0, len(byContext))
	for size := range byContext {
		sizes = append(sizes, size)
	}
	sort.Ints(sizes)

	for _, size := range sizes {
		group := byContext[size]
		rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })

		base := len(group) / n
		remainder := len(group) % n

		idx := 0
		for b := 0; b < n; b++ {
			count := base
			if b < remainder {
				count++
			}
			batches[b] = append(batches[b], group[idx:idx+count]...)
			idx += count
		}
	}

	for i := range batches {
		sortByConversationCountDesc(batches[i])
	}

	return batches, nil
}

func groupByContextSize(cases []model.TestCase) map[int][]model.TestCase {
	groups := make(map[int][]model.TestCase)
	for _, tc := range cases {
		size := tc.ConversationCount()
		groups[size] = append(groups[size], tc)
	}
	return groups
}

func sortByConversationCountDesc(cases []model.TestCase) {
	sort.SliceStable(cases, func(i, j int) bool {
		return cases[i].ConversationCount() > cases[j].ConversationCount()
	})
}

// ValidateBatches checks total preservation, no duplicates, and set equality
// between the original list and the produced batches. Intended for tests.
func ValidateBatches(original []model.TestCase, batches [][]model.TestCase) error {
	originalIDs := make(map[string]int)
	for _, tc := range original {
		originalIDs[tc.ID()]++
	}

	seen := make(map[string]int)
	total := 0
	for _, b := range batches {
		for _, tc := range b {
			seen[tc.ID()]++
			total++
		}
	}

	if total != len(original) {
		return fmt.Errorf("total count mismatch: got %d, want %d", total, len(original))
	}

	for id, count := range originalIDs {
		if seen[id] != count {
			return fmt.Errorf("id %s appears %d times in batches, want %d", id, seen[id], count)
		}
	}

	return nil
}
