package insights

import (
	"context"
	"fmt"
	"strings"
	"time"

	"salesperf-backend/internal/aggregate"
)

// Request is the input handed to a Generator: the daily series between From
// and To, oldest first, with empty days left out.
type Request struct {
	From   time.Time
	To     time.Time
	Series []aggregate.Bucket
}

// Generator turns a sales series into display text. Implementations may call
// out to an external text-generation backend.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Summarizer describes the series with plain figures. It never fails.
type Summarizer struct{}

func (Summarizer) Generate(_ context.Context, req Request) (string, error) {
	from, to := req.From.Format(time.DateOnly), req.To.Format(time.DateOnly)
	if len(req.Series) == 0 {
		return fmt.Sprintf("No sales were recorded between %s and %s.", from, to), nil
	}

	var (
		total   float64
		records int64
		best    = req.Series[0]
	)
	for _, b := range req.Series {
		total += b.Sales
		records += b.Count
		if b.Sales > best.Sales {
			best = b
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Sales between %s and %s totalled %.2f from %d records over %d active days.\n",
		from, to, total, records, len(req.Series))
	fmt.Fprintf(&sb, "Average per active day: %.2f.\n", aggregate.MeanSales(req.Series))
	fmt.Fprintf(&sb, "Best day: %s.", best)

	if len(req.Series) >= 2 {
		half := len(req.Series) / 2
		first := aggregate.MeanSales(req.Series[:half])
		second := aggregate.MeanSales(req.Series[half:])
		if first > 0 {
			change := (second - first) / first * 100
			direction := "up"
			if change < 0 {
				direction, change = "down", -change
			}
			fmt.Fprintf(&sb, "\nDaily average in the later half is %s %.1f%% on the earlier half.", direction, change)
		}
	}
	return sb.String(), nil
}

// fallbackText is shown when the generator cannot produce an insight.
const fallbackText = `Sales analysis is unavailable right now. General practices that help in the meantime:

1. Follow up with customers personally to build trust.
2. Use the digital tools available to keep processes quick for customers.
3. Keep sales training and product knowledge up to date.
4. Track key figures and recognise small wins.

Please try again later for an analysis of the recorded sales.`
