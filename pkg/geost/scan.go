package geost

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
	"golang.org/x/sync/errgroup"
)

// Get fetches a single feature by id. A missing id returns (nil, nil).
func (s *Store) Get(id string) (*Feature, error) {
	var f *Feature
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(EncodeIDKey(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		f = new(Feature)
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, f)
		})
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Query plans the predicate, executes the cheapest plan and returns the
// matching features. An unsatisfiable predicate returns no features and no
// error. A nil predicate matches everything.
func (s *Store) Query(ctx context.Context, pred Predicate) ([]*Feature, error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	if pred == nil {
		pred = All{}
	}
	plans, err := s.planner.PlanQuery(pred)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, nil
	}

	best := plans[0]
	s.log.Debug("query plan chosen",
		"schema", s.schema.Name,
		"filters", len(best.Filters),
		"cost", s.planner.Cost().PlanCost(s.schema, best),
		"candidates", len(plans))

	col := &collector{seen: roaring64.New()}
	for _, qf := range best.Filters {
		plan, err := s.planner.BuildScanPlan(qf)
		if err != nil {
			return nil, err
		}
		// dedupe whenever the same record can surface twice: within one
		// filter's ranges, or across a plan's disjunct filters
		col.dedupe = plan.MayHaveDuplicates || len(best.Filters) > 1
		if err := s.executeScan(ctx, plan, col); err != nil {
			return nil, err
		}
	}
	return col.out, nil
}

func (s *Store) executeScan(ctx context.Context, plan ScanPlan, col *collector) error {
	g, ctx := errgroup.WithContext(ctx)
	threads := plan.SuggestedThreads
	if threads < 1 {
		threads = 1
	}
	g.SetLimit(threads)

	for _, r := range plan.Ranges {
		r := r
		g.Go(func() error {
			return s.scanRange(ctx, r, plan.Residual, col)
		})
	}
	return g.Wait()
}

func (s *Store) scanRange(ctx context.Context, r ByteRange, residual Predicate, col *collector) error {
	return s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.PrefetchValues = true

		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(r.Start); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			if r.End != nil && bytes.Compare(item.Key(), r.End) >= 0 {
				break
			}

			var f Feature
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &f)
			}); err != nil {
				return err
			}

			if residual != nil && !residual.Matches(&f) {
				continue
			}
			col.add(&f)
		}
		return nil
	})
}

// collector accumulates scan results across goroutines, optionally dropping
// records already seen.
type collector struct {
	mu     sync.Mutex
	seen   *roaring64.Bitmap
	dedupe bool
	out    []*Feature
}

func (c *collector) add(f *Feature) {
	c.mu.Lock()
	defer c.mu.Unlock()
	added := c.seen.CheckedAdd(xxhash.Sum64String(f.ID))
	if c.dedupe && !added {
		return
	}
	c.out = append(c.out, f)
}
