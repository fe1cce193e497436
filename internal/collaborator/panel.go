package collaborator

import (
	"context"
	"sync"
	"time"

	"github.com/mfgplan/allocator/pkg/feedback"
	"go.uber.org/zap"
)

// Panel fans a review request out to independent reviewers and joins their
// records into one feedback round. Reviewer evaluations have no data
// dependency on each other, so they run concurrently; only the joined round
// reaches the convergence controller. A reviewer that fails or times out
// contributes its default record instead of failing the attempt.
type Panel struct {
	logger    *zap.Logger
	reviewers []Reviewer
	timeout   time.Duration
}

// NewPanel constructs a panel. timeout bounds each reviewer round-trip;
// zero means no bound.
func NewPanel(logger *zap.Logger, reviewers []Reviewer, timeout time.Duration) *Panel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Panel{logger: logger, reviewers: reviewers, timeout: timeout}
}

// Size returns the number of reviewers on the panel.
func (p *Panel) Size() int { return len(p.reviewers) }

// Evaluate collects one record per reviewer. The returned round preserves
// reviewer order for stable output, although ordering is irrelevant to the
// consensus count. The second return value counts degraded reviewers.
func (p *Panel) Evaluate(ctx context.Context, req ReviewRequest) (feedback.Round, int) {
	round := make(feedback.Round, len(p.reviewers))
	degraded := 0

	var mu sync.Mutex
	var wg sync.WaitGroup
	for i, reviewer := range p.reviewers {
		wg.Add(1)
		go func(i int, reviewer Reviewer) {
			defer wg.Done()
			reviewCtx := ctx
			if p.timeout > 0 {
				var cancel context.CancelFunc
				reviewCtx, cancel = context.WithTimeout(ctx, p.timeout)
				defer cancel()
			}
			record, err := reviewer.Review(reviewCtx, req)
			if err != nil {
				p.logger.Warn("reviewer degraded to default feedback",
					zap.String("role", reviewer.Role()),
					zap.Error(err),
				)
				record = feedback.DefaultRecord(reviewer.Role())
				mu.Lock()
				degraded++
				mu.Unlock()
			}
			round[i] = record
		}(i, reviewer)
	}
	wg.Wait()

	return round, degraded
}
