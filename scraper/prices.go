package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/aluiziolira/go-scrape-catalog/parser"
	"github.com/aluiziolira/go-scrape-catalog/signer"
	"golang.org/x/sync/errgroup"
)

// Chunk splits ids into consecutive slices of at most size elements.
func Chunk(ids []int, size int) [][]int {
	if size <= 0 {
		size = 1
	}
	chunks := make([][]int, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end:end])
	}
	return chunks
}

// FetchPrices requests the price list of every chunk of ids concurrently and
// waits for all of them. The result is indexed by chunk; a nil entry means the
// chunk ran out of attempts. Transport faults abort the whole fetch.
func (s *Scraper) FetchPrices(ctx context.Context, token string, ids []int) ([]*parser.PriceList, error) {
	chunks := Chunk(ids, s.cfg.ChunkSize)
	results := make([]*parser.PriceList, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		g.Go(func() error {
			env, err := s.request(gctx, priceEndpoint, s.priceParams(token, chunk), s.cfg.PriceAttempts)
			if errors.Is(err, ErrRetriesExhausted) {
				s.Metrics.IncChunk("dropped")
				slog.Warn("price chunk dropped",
					slog.Int("chunk", i),
					slog.Int("products", len(chunk)),
					slog.Int("attempts", s.cfg.PriceAttempts),
				)
				return nil
			}
			if err != nil {
				return fmt.Errorf("price chunk %d: %w", i, err)
			}
			list, err := parser.ParsePriceList(env.Data)
			if err != nil {
				return fmt.Errorf("price chunk %d: %w", i, err)
			}
			results[i] = list
			s.Metrics.IncChunk("ok")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Scraper) priceParams(token string, chunk []int) signer.Params {
	params := make(signer.Params, 0, len(chunk)+2)
	for i, id := range chunk {
		params.SetInt(fmt.Sprintf("offers[%d]", i), id)
	}
	params.Set("token", token)
	return s.signer.Sign(params)
}

// ReconcileOptions tunes how the final hierarchy is assembled.
type ReconcileOptions struct {
	// PromoteParents also registers products that only gained variants and
	// never appeared as their own self-referential entry.
	PromoteParents bool
}

// Reconcile applies price lists to products and returns the new top-level map.
//
// For each entry the representative product is looked up by active offer ID;
// every variant found in products gets its price. A variant equal to the
// representative is registered at top level; any other variant is appended to
// the representative's variants. Unknown IDs are skipped. Products never
// registered, including parents without a self entry unless PromoteParents is
// set, are absent from the result. A registered product always stays at top
// level; it is unlinked from any parent that also listed it, so no product is
// both top-level and nested.
func Reconcile(products *models.ProductMap, lists []*parser.PriceList, opts ReconcileOptions) *models.ProductMap {
	hierarchy := models.NewProductMap()

	for _, list := range lists {
		if list == nil {
			continue
		}
		for _, info := range list.Products {
			parent, ok := products.Get(int(info.ActiveOfferID))
			if !ok {
				continue
			}
			for _, variant := range info.Variants {
				child, ok := products.Get(int(variant.ID))
				if !ok {
					continue
				}
				child.SetPrice(variant.Price.Price())
				if child.ID == parent.ID {
					hierarchy.Put(child)
					continue
				}
				if !parent.HasVariant(child.ID) {
					parent.Variants = append(parent.Variants, child)
				}
				if opts.PromoteParents && !hierarchy.Has(parent.ID) {
					hierarchy.Put(parent)
				}
			}
		}
	}

	for _, parent := range hierarchy.Values() {
		kept := parent.Variants[:0]
		for _, v := range parent.Variants {
			if !hierarchy.Has(v.ID) {
				kept = append(kept, v)
			}
		}
		parent.Variants = kept
	}
	return hierarchy
}
