package generator

import (
	"math/rand"

	"memorybench/pkg/convloader"
	"memorybench/pkg/logx"
	"memorybench/pkg/model"
)

// Batched sweeps evidence items per context size, packing as many as fit
// into each batch before opening a new one, and mixes in proportional
// per-person filler. Implements spec.md §4.1's Batched algorithm.
type Batched struct {
	Evidence             EvidenceGenerator
	ContextSizes         []int
	Loader               *convloader.Loader
	Rng                  *rand.Rand
	MaxEvidencePerBatch  int
	MinTestCasesPerContext int

	warnings []InsufficientFillerWarning
}

// NewBatched builds a Batched generator. maxEvidencePerBatch and
// minTestCasesPerContext fall back to sane defaults when <= 0.
func NewBatched(evidence EvidenceGenerator, contextSizes []int, loader *convloader.Loader, rng *rand.Rand, maxEvidencePerBatch, minTestCasesPerContext int) *Batched {
	if rng == nil {
		rng = rand.New(rand.NewSource(1)) //nolint:gosec // deterministic generation, not security sensitive
	}
	if maxEvidencePerBatch <= 0 {
		maxEvidencePerBatch = 10
	}
	if minTestCasesPerContext <= 0 {
		minTestCasesPerContext = 1
	}
	return &Batched{
		Evidence:               evidence,
		ContextSizes:           contextSizes,
		Loader:                 loader,
		Rng:                    rng,
		MaxEvidencePerBatch:    maxEvidencePerBatch,
		MinTestCasesPerContext: minTestCasesPerContext,
	}
}

func (b *Batched) GeneratorType() string      { return "batched" }
func (b *Batched) GeneratorClassType() string { return "BatchedTestCaseGenerator" }

// Warnings returns InsufficientFiller diagnostics accumulated since the last
// Generate call.
func (b *Batched) Warnings() []InsufficientFillerWarning {
	return b.warnings
}

func (b *Batched) Generate() ([]model.TestCase, error) {
	b.warnings = nil

	items := b.Evidence.EvidenceItems()
	var cases []model.TestCase

	for _, contextSize := range b.ContextSizes {
		shuffled := append([]model.EvidenceItem{}, items...)
		b.Rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		batches := b.packBatches(shuffled, contextSize)
		for _, batch := range batches {
			cases = append(cases, b.buildCase(batch, contextSize))
		}

		// Round-robin reuse of evidence until the minimum is met.
		i := 0
		for len(cases) > 0 && len(batches) > 0 && b.countForContext(cases, contextSize) < b.MinTestCasesPerContext {
			extra := batches[i%len(batches)]
			cases = append(cases, b.buildCase(extra, contextSize))
			i++
		}
	}

	return cases, nil
}

func (b *Batched) countForContext(cases []model.TestCase, contextSize int) int {
	n := 0
	for _, tc := range cases {
		if tc.ContextSize != nil && *tc.ContextSize == contextSize {
			n++
		}
	}
	return n
}

// packBatches opens a new batch whenever adding the next item would exceed
// MaxEvidencePerBatch or contextSize (whichever binds first). A single
// over-size item may exceed contextSize in its own batch.
func (b *Batched) packBatches(items []model.EvidenceItem, contextSize int) [][]model.EvidenceItem {
	var batches [][]model.EvidenceItem
	var current []model.EvidenceItem
	currentConvCount := 0

	flush := func() {
		if len(current) > 0 {
			batches = append(batches, current)
			current = nil
			currentConvCount = 0
		}
	}

	for _, item := range items {
		itemConvCount := len(item.Conversations)

		if len(current) == 0 {
			// A fresh batch always accepts its first item, even if
			// over-size, per spec.md's single-over-size-item exception.
			current = append(current, item)
			currentConvCount = itemConvCount
			continue
		}

		wouldExceedCount := len(current)+1 > b.MaxEvidencePerBatch
		wouldExceedSize := currentConvCount+itemConvCount > contextSize

		if wouldExceedCount || wouldExceedSize {
			flush()
			current = append(current, item)
			currentConvCount = itemConvCount
			continue
		}

		current = append(current, item)
		currentConvCount += itemConvCount
	}
	flush()

	return batches
}

func (b *Batched) buildCase(items []model.EvidenceItem, contextSize int) model.TestCase {
	evidenceConvs := make([]model.Conversation, 0)
	perPerson := make(map[string]int)
	noPersonCount := 0

	for _, item := range items {
		evidenceConvs = append(evidenceConvs, item.Conversations...)
		if item.PersonID != nil {
			perPerson[*item.PersonID]++
		} else {
			noPersonCount++
		}
	}

	size := contextSize
	if len(evidenceConvs) >= contextSize {
		return model.TestCase{
			EvidenceItems: append([]model.EvidenceItem{}, items...),
			Conversations: append([]model.Conversation{}, evidenceConvs...),
			ContextSize:   &size,
		}
	}

	fillerNeeded := contextSize - len(evidenceConvs)
	filler := b.allocateFiller(perPerson, noPersonCount, fillerNeeded)
	conversations := interleave(evidenceConvs, filler, b.Rng)

	return model.TestCase{
		EvidenceItems: append([]model.EvidenceItem{}, items...),
		Conversations: conversations,
		ContextSize:   &size,
	}
}

// interleave places filler conversations between evidence conversations
// without ever altering the evidence conversations' relative order.
func interleave(evidence, filler []model.Conversation, rng *rand.Rand) []model.Conversation {
	total := len(evidence) + len(filler)
	if total == 0 {
		return nil
	}

	positions := make([]int, total)
	for i := range positions {
		positions[i] = i
	}
	rng.Shuffle(len(positions), func(i, j int) { positions[i], positions[j] = positions[j], positions[i] })
	evidencePositions := append([]int{}, positions[:len(evidence)]...)
	sortInts(evidencePositions)

	isEvidence := make(map[int]bool, len(evidencePositions))
	for _, p := range evidencePositions {
		isEvidence[p] = true
	}

	out := make([]model.Conversation, total)
	evIdx, fillerIdx := 0, 0
	for i := 0; i < total; i++ {
		if isEvidence[i] {
			out[i] = evidence[evIdx]
			evIdx++
		} else {
			out[i] = filler[fillerIdx]
			fillerIdx++
		}
	}
	return out
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// allocateFiller distributes fillerNeeded conversations across the persons
// present in the batch, giving at least one conversation to every person
// with evidence when any filler is available; overflow from no-person
// items draws from a randomly chosen person.
func (b *Batched) allocateFiller(perPerson map[string]int, noPersonCount, fillerNeeded int) []model.Conversation {
	if fillerNeeded <= 0 || b.Loader == nil {
		return nil
	}

	people := make([]string, 0, len(perPerson))
	for p := range perPerson {
		people = append(people, p)
	}

	if len(people) == 0 {
		// No personId on any item in the batch: draw from a random person.
		if p, ok := b.Loader.RandomPerson(b.Rng.Intn); ok {
			people = []string{p}
		} else {
			return nil
		}
	}

	perPersonShare := fillerNeeded / len(people)
	remainder := fillerNeeded % len(people)

	var filler []model.Conversation
	for i, person := range people {
		want := perPersonShare
		if i < remainder {
			want++
		}
		if want == 0 && fillerNeeded > 0 {
			want = 1 // guarantee >=1 per person when any filler is available
		}

		available := append([]model.Conversation{}, b.Loader.ForPerson(person)...)
		b.Rng.Shuffle(len(available), func(a, c int) { available[a], available[c] = available[c], available[a] })

		if len(available) < want {
			logx.Warnf("insufficient filler for person %s: need %d, have %d", person, want, len(available))
			b.warnings = append(b.warnings, InsufficientFillerWarning{PersonID: person, Needed: want, Have: len(available)})
			filler = append(filler, available...)
			continue
		}
		filler = append(filler, available[:want]...)
	}

	if len(filler) > fillerNeeded {
		filler = filler[:fillerNeeded]
	} else if len(filler) < fillerNeeded && noPersonCount > 0 {
		// Overflow draw from a random person to top up.
		if p, ok := b.Loader.RandomPerson(b.Rng.Intn); ok {
			extra := b.Loader.ForPerson(p)
			for _, c := range extra {
				if len(filler) >= fillerNeeded {
					break
				}
				filler = append(filler, c)
			}
		}
	}

	return filler
}
