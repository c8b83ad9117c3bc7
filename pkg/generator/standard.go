package generator

import (
	"math/rand"
	"sort"

	"memorybench/pkg/convloader"
	"memorybench/pkg/logx"
	"memorybench/pkg/model"
)

// Standard builds one TestCase per (evidenceItem, contextSize) combination.
type Standard struct {
	Evidence     EvidenceGenerator
	ContextSizes []int
	Loader       *convloader.Loader
	Rng          *rand.Rand

	warnings []InsufficientFillerWarning
}

// NewStandard builds a Standard generator over the cartesian product of the
// given evidence items and context sizes.
func NewStandard(evidence EvidenceGenerator, contextSizes []int, loader *convloader.Loader, rng *rand.Rand) *Standard {
	if rng == nil {
		rng = rand.New(rand.NewSource(1)) //nolint:gosec // deterministic generation, not security sensitive
	}
	return &Standard{Evidence: evidence, ContextSizes: contextSizes, Loader: loader, Rng: rng}
}

func (s *Standard) GeneratorType() string      { return "standard" }
func (s *Standard) GeneratorClassType() string { return "StandardTestCaseGenerator" }

// Warnings returns InsufficientFiller diagnostics accumulated since the last
// Generate call.
func (s *Standard) Warnings() []InsufficientFillerWarning {
	return s.warnings
}

// Generate implements the Standard algorithm described in spec.md §4.1.
func (s *Standard) Generate() ([]model.TestCase, error) {
	s.warnings = nil

	items := s.Evidence.EvidenceItems()
	var cases []model.TestCase

	for _, item := range items {
		for _, contextSize := range s.ContextSizes {
			tc, warn := s.buildCase(item, contextSize)
			cases = append(cases, tc)
			if warn != nil {
				s.warnings = append(s.warnings, *warn)
			}
		}
	}

	return cases, nil
}

func (s *Standard) buildCase(item model.EvidenceItem, contextSize int) (model.TestCase, *InsufficientFillerWarning) {
	evidenceConvs := item.Conversations
	evidenceCount := len(evidenceConvs)

	size := contextSize
	if evidenceCount > contextSize {
		// Completeness over dilution: keep all evidence, no filler.
		conversations := append([]model.Conversation{}, evidenceConvs...)
		return model.TestCase{
			EvidenceItems: []model.EvidenceItem{item},
			Conversations: conversations,
			ContextSize:   &size,
		}, nil
	}

	fillerNeeded := contextSize - evidenceCount
	fillerPool, warn := s.fillerPoolFor(item, fillerNeeded)

	// Shuffle [0, contextSize) and take the first |evidence| indices,
	// sorted ascending, as the evidence positions.
	positions := make([]int, contextSize)
	for i := range positions {
		positions[i] = i
	}
	s.Rng.Shuffle(len(positions), func(i, j int) { positions[i], positions[j] = positions[j], positions[i] })
	evidencePositions := append([]int{}, positions[:evidenceCount]...)
	sort.Ints(evidencePositions)

	evidenceSet := make(map[int]bool, len(evidencePositions))
	for _, p := range evidencePositions {
		evidenceSet[p] = true
	}

	// Built by appending rather than indexing by position: when fillerPool
	// runs short, skipped slots must not leave zero-value Conversation{}
	// entries in the middle of the result.
	conversations := make([]model.Conversation, 0, contextSize)
	evIdx, fillerIdx := 0, 0
	for i := 0; i < contextSize; i++ {
		if evidenceSet[i] {
			conversations = append(conversations, evidenceConvs[evIdx])
			evIdx++
		} else if fillerIdx < len(fillerPool) {
			conversations = append(conversations, fillerPool[fillerIdx])
			fillerIdx++
		}
	}

	return model.TestCase{
		EvidenceItems: []model.EvidenceItem{item},
		Conversations: conversations,
		ContextSize:   &size,
	}, warn
}

// fillerPoolFor draws `needed` filler conversations without replacement from
// the evidence item's person, falling back to a uniformly sampled person
// when the item has no PersonID.
func (s *Standard) fillerPoolFor(item model.EvidenceItem, needed int) ([]model.Conversation, *InsufficientFillerWarning) {
	if needed <= 0 || s.Loader == nil {
		return nil, nil
	}

	personID := ""
	if item.PersonID != nil {
		personID = *item.PersonID
	} else if p, ok := s.Loader.RandomPerson(s.Rng.Intn); ok {
		personID = p
	}

	available := s.Loader.ForPerson(personID)
	pool := append([]model.Conversation{}, available...)
	s.Rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	if len(pool) < needed {
		warn := &InsufficientFillerWarning{PersonID: personID, Needed: needed, Have: len(pool)}
		logx.Warnf("insufficient filler for person %s: need %d, have %d", personID, needed, len(pool))
		return pool, warn
	}

	return pool[:needed], nil
}
