package retrieval

import (
	"context"
	"errors"
	"log/slog"

	"github.com/auditcore/evidencer/model"
)

// RetrieveMulti executes independent sub-queries under one tenant scope
// and merges their evidence with cross-query RRF. Sub-query failures are
// tolerated and reported per query; an isolation breach in any sub-query
// still aborts the whole request.
func (e *Engine) RetrieveMulti(ctx context.Context, query model.RetrievalQuery, subs []model.SubQuery, filter *model.ScopeFilter) (*model.MultiEvidenceSet, error) {
	if len(subs) == 0 {
		subs = []model.SubQuery{{Text: query.Text}}
	}

	out := &model.MultiEvidenceSet{
		Statuses: make([]model.SubQueryStatus, 0, len(subs)),
	}
	lists := make([][]*model.CandidateItem, 0, len(subs))

	for _, sub := range subs {
		subQuery := query
		subQuery.Text = sub.Text

		res, err := e.run(ctx, subQuery, filter, &sub)
		if err != nil {
			var breach *IsolationBreachError
			if errors.As(err, &breach) {
				return nil, err
			}
			e.logger.Warn("sub-query failed",
				slog.String("query", sub.Text), slog.Any("error", err))
			out.Statuses = append(out.Statuses, model.SubQueryStatus{
				Query:  sub.Text,
				Status: "error",
				Error:  err.Error(),
			})
			out.Partial = true
			continue
		}

		out.Statuses = append(out.Statuses, model.SubQueryStatus{Query: sub.Text, Status: "ok"})
		if res.set.Outcome == model.OutcomeGrounded && len(res.set.Items) > 0 {
			lists = append(lists, res.set.Items)
		}
	}

	out.Items = FuseAcross(lists, e.config.RRFK)
	if e.config.TopK > 0 && len(out.Items) > e.config.TopK {
		out.Items = out.Items[:e.config.TopK]
	}

	return out, nil
}
