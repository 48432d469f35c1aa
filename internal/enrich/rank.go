package enrich

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/procurewatch/bomrisk/internal/model"
	"github.com/procurewatch/bomrisk/internal/similarity"
)

// RankedCandidate pairs a substitute part with its similarity to the target.
type RankedCandidate struct {
	Product    model.UnifiedProduct `json:"product"`
	Similarity similarity.Result    `json:"similarity"`
	Assessment model.RiskAssessment `json:"assessment"`
}

// RankSubstitutes finds substitute candidates for an MPN and scores each
// against the target, highest similarity first. Candidates are scored
// concurrently, bounded by MaxConcurrent.
func (e *Enricher) RankSubstitutes(ctx context.Context, mpn string) (*model.UnifiedProduct, []RankedCandidate, error) {
	target, err := e.Lookup(ctx, mpn)
	if err != nil {
		return nil, nil, err
	}

	subs, err := e.Substitutes(ctx, *target)
	if err != nil {
		return nil, nil, err
	}
	if len(subs) == 0 {
		return target, nil, nil
	}

	targetParams := model.PartParameters{Parameters: target.Parameters}

	ranked := make([]RankedCandidate, len(subs))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.MaxConcurrent)
	for i, sub := range subs {
		g.Go(func() error {
			result := e.calc.Calculate(targetParams, model.PartParameters{Parameters: sub.Parameters})
			ranked[i] = RankedCandidate{
				Product:    sub,
				Similarity: result,
				Assessment: BuildAssessment(sub, nil),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, eris.Wrapf(err, "enrich: rank substitutes %s", mpn)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity.TotalScore > ranked[j].Similarity.TotalScore
	})
	return target, ranked, nil
}
