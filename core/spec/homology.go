package spec

import (
	"context"
	"fmt"

	"chisel/core/homology"
	"chisel/core/location"
)

// AvoidHomology penalizes alignments of its region against a database found
// by an external search. The score is minus the number of hits at least
// MinAlignLength long. A failing search marks the evaluation as errored
// rather than aborting the run.
type AvoidHomology struct {
	Base
	Searcher homology.Searcher
	DB       string
	Params   homology.Params
}

func (s *AvoidHomology) Label() string {
	return fmt.Sprintf("AvoidHomology(%s, %d+ bp, %g%%)%s", s.DB, s.Params.MinAlignLength, s.Params.PercIdentity, s.suffix())
}

func (s *AvoidHomology) Evaluate(ctx context.Context, p Problem) Evaluation {
	r := s.Region(len(p.Sequence()))
	if s.Searcher == nil {
		return Evaluation{Spec: s, Score: -1, Locations: []location.Location{r},
			Err: homology.Failed(fmt.Errorf("no searcher configured"))}
	}
	hits, err := s.Searcher.Search(ctx, p.Sequence()[r.Start:r.End], s.DB, s.Params)
	if err != nil {
		return Evaluation{Spec: s, Score: -1, Locations: []location.Location{r}, Err: homology.Failed(err)}
	}
	hits = homology.Filter(hits, s.Params.MinAlignLength, s.Params.PercIdentity)
	if len(hits) == 0 {
		return Evaluation{Spec: s, Message: "no homology found"}
	}
	locs := make([]location.Location, len(hits))
	for i, h := range hits {
		locs[i] = h.Query.Translate(r.Start)
	}
	location.Sort(locs)
	return Evaluation{
		Spec:      s,
		Score:     -float64(len(hits)),
		Locations: locs,
		Message:   fmt.Sprintf("%d hit(s) in %s", len(hits), s.DB),
	}
}

func (s *AvoidHomology) Localized(loc location.Location, p Problem) Specification {
	b, ok := s.narrowed(loc, s.Params.MinAlignLength, len(p.Sequence()))
	if !ok {
		return nil
	}
	cp := *s
	cp.Base = b
	return &cp
}

func (s *AvoidHomology) BestPossibleScore() float64 { return 0 }
