package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/domain/service"
	applogger "PriceCast/pkg/logger"
)

// FallbackOrder is fitted when no grid candidate converges.
var FallbackOrder = models.ModelOrder{P: 1, D: 1, Q: 1}

// Grid bounds the (p, d, q) search space, inclusive.
type Grid struct {
	PMax int
	DMax int
	QMax int
}

// DefaultGrid is p in [0,2], d in [0,1], q in [0,2].
func DefaultGrid() Grid {
	return Grid{PMax: 2, DMax: 1, QMax: 2}
}

// Orders enumerates the grid with p varying slowest and q fastest.
func (g Grid) Orders() []models.ModelOrder {
	if g.PMax < 0 || g.DMax < 0 || g.QMax < 0 {
		return nil
	}
	out := make([]models.ModelOrder, 0, (g.PMax+1)*(g.DMax+1)*(g.QMax+1))
	for p := 0; p <= g.PMax; p++ {
		for d := 0; d <= g.DMax; d++ {
			for q := 0; q <= g.QMax; q++ {
				out = append(out, models.ModelOrder{P: p, D: d, Q: q})
			}
		}
	}
	return out
}

// SearchResult is the selected order together with the fit used to score it.
type SearchResult struct {
	Order    models.ModelOrder
	Model    service.FittedModel
	Fallback bool
	Fitted   int // candidates that fitted successfully
}

type candidate struct {
	model service.FittedModel
	err   error
}

// SearchOrder fits every grid order in parallel and keeps the lowest AIC.
// Ties go to the earliest order in enumeration, whatever the completion order.
func SearchOrder(ctx context.Context, fitter service.ModelFitter, s *Series, grid Grid, workers int, l *applogger.Logger) (SearchResult, error) {
	const op = "order search"

	orders := grid.Orders()
	results := make([]candidate, len(orders))
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, order := range orders {
		i, order := i, order
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = candidate{err: err}
				return nil
			}
			m, err := fitter.Fit(gctx, s.Prices, order)
			results[i] = candidate{model: m, err: usableFit(m, err)}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return SearchResult{}, newError(op, ErrModelSelection, "search aborted", err)
	}

	best := -1
	fitted := 0
	for i, c := range results {
		if c.err != nil {
			if l != nil {
				l.Debug("candidate order skipped",
					applogger.String("order", orders[i].String()),
					applogger.Error(c.err))
			}
			continue
		}
		fitted++
		if best < 0 || c.model.AIC() < results[best].model.AIC() {
			best = i
		}
	}
	if best >= 0 {
		return SearchResult{Order: orders[best], Model: results[best].model, Fitted: fitted}, nil
	}

	if l != nil {
		l.Warn("no candidate order fitted, trying fallback",
			applogger.Int("candidates", len(orders)),
			applogger.String("fallback", FallbackOrder.String()))
	}
	m, err := fitter.Fit(ctx, s.Prices, FallbackOrder)
	if err = usableFit(m, err); err != nil {
		return SearchResult{}, newError(op, ErrModelSelection,
			fmt.Sprintf("none of %d candidates fitted and fallback %s failed", len(orders), FallbackOrder.String()), err)
	}
	return SearchResult{Order: FallbackOrder, Model: m, Fallback: true}, nil
}

// usableFit reports why a fit result cannot compete in the search, if it can't.
func usableFit(m service.FittedModel, err error) error {
	switch {
	case err != nil:
		return err
	case m == nil:
		return errors.New("fitter returned no model")
	case !finite(m.AIC()):
		return fmt.Errorf("non-finite AIC %v", m.AIC())
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
