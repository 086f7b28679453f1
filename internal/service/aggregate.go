package service

import (
	"context"

	"hedgesync/internal/aggregate"
	"hedgesync/internal/deal"
)

// AggregateResult 是看板使用的聚合输出。
type AggregateResult struct {
	Trades    []aggregate.DashboardRow `json:"trades"`
	Unmatched []deal.RawDeal           `json:"unmatched"`
	Summary   aggregate.Summary        `json:"summary"`
}

func (s *Service) Aggregate(ctx context.Context, deals []deal.RawDeal) (AggregateResult, error) {
	res, err := s.aggregate(ctx, deals)
	if err != nil {
		return AggregateResult{}, err
	}
	return dashboard(res), nil
}

func (s *Service) aggregate(ctx context.Context, deals []deal.RawDeal) (aggregate.Result, error) {
	if s.shards > 1 {
		return aggregate.AggregateSharded(ctx, deals, s.shards)
	}
	if err := ctx.Err(); err != nil {
		return aggregate.Result{}, err
	}
	return aggregate.Aggregate(deals), nil
}

func dashboard(res aggregate.Result) AggregateResult {
	out := AggregateResult{
		Trades:    make([]aggregate.DashboardRow, 0, len(res.Trades)),
		Unmatched: res.Unmatched,
		Summary:   aggregate.Summarize(res),
	}
	if out.Unmatched == nil {
		out.Unmatched = []deal.RawDeal{}
	}
	for _, t := range res.Trades {
		out.Trades = append(out.Trades, t.DashboardRow())
	}
	return out
}
