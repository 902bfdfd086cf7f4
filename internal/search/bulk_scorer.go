package search

// Bits is an accept filter consulted per-doc before collection — the
// "live docs" / deletion bitset a bulk scorer threads matches through.
type Bits interface {
	Get(docID int32) bool
}

// AllBits accepts every doc, the MatchAll filter spec.md's scenario 4
// exercises.
type AllBits struct{ Len int32 }

func (a AllBits) Get(docID int32) bool { return docID >= 0 && docID < a.Len }

// Collector receives matches in ascending DocId order per leaf.
type Collector interface {
	SetNextReader(leaf interface{})
	Collect(docID int32, scorer Scorer) error
	NeedsScores() bool
}

// ErrCollectionDone signals EarlyTerminatingSortingCollector-style early
// termination; BulkScorer stops iterating when it sees this.
var ErrCollectionDone = &collectionDoneError{}

type collectionDoneError struct{}

func (*collectionDoneError) Error() string { return "collection complete" }

// BulkScorer drives scorer across [min, max). When scorer supports two-phase
// iteration, the approximation (not the confirmed DocIterator view) is what
// actually advances — the cheap step — and Matches() confirms each
// candidate before it reaches the collector, exactly per spec.md §4.7.
// Returns the next DocId ≥ max (or NoMoreDocs) so the caller can resume in
// a later range.
func BulkScorer(scorer Scorer, collector Collector, bits Bits, min, max int32) (int32, error) {
	var driver DocIterator = scorer
	var twoPhase TwoPhaseIterator
	if scorer.SupportsTwoPhase() {
		twoPhase = scorer.TwoPhase()
		driver = twoPhase.Approximation()
	}

	var doc int32
	if min == 0 && max == NoMoreDocs {
		doc = driver.Next()
	} else {
		doc = driver.Advance(min)
	}

	for doc < max {
		if bits != nil && !bits.Get(doc) {
			doc = driver.Next()
			continue
		}
		if twoPhase != nil {
			ok, err := twoPhase.Matches()
			if err != nil {
				return doc, err
			}
			if !ok {
				doc = driver.Next()
				continue
			}
		}
		if err := collector.Collect(doc, scorer); err != nil {
			if err == ErrCollectionDone {
				return doc, nil
			}
			return doc, err
		}
		doc = driver.Next()
	}
	return doc, nil
}
