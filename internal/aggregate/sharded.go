package aggregate

import (
	"context"

	"hedgesync/internal/deal"

	"golang.org/x/sync/errgroup"
)

// AggregateSharded 将成交切成连续分片并发聚合，再按 key 逐项相加合并。
// 输出的顺序与 Aggregate 相同；合计只可能在浮点舍入上有差异。
func AggregateSharded(ctx context.Context, deals []deal.RawDeal, shards int) (Result, error) {
	if shards <= 1 || len(deals) < 2 {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		return Aggregate(deals), nil
	}
	if shards > len(deals) {
		shards = len(deals)
	}

	parts := make([]Result, shards)
	size := (len(deals) + shards - 1) / shards
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < shards; i++ {
		lo := i * size
		if lo >= len(deals) {
			break
		}
		hi := min(lo+size, len(deals))
		i := i
		g.Go(func() error {
			acc := newAccumulator()
			for _, d := range deals[lo:hi] {
				if err := gctx.Err(); err != nil {
					return err
				}
				acc.fold(d)
			}
			parts[i] = acc.res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	merged := newAccumulator()
	for _, p := range parts {
		merged.absorb(p)
	}
	return merged.res, nil
}
