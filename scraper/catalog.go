package scraper

import (
	"context"
	"log/slog"

	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/aluiziolira/go-scrape-catalog/parser"
	"github.com/aluiziolira/go-scrape-catalog/signer"
)

// Catalog is the flat product set of one category.
type Catalog struct {
	Products   *models.ProductMap
	IDs        []int
	TotalItems int
}

// FetchToken obtains a session token from the start endpoint.
func (s *Scraper) FetchToken(ctx context.Context) (string, error) {
	env, err := s.request(ctx, tokenEndpoint, nil, 0)
	if err != nil {
		return "", err
	}
	session, err := parser.ParseSession(env.Data)
	if err != nil {
		return "", err
	}
	return session.Token, nil
}

// FetchCatalog asks for the item count, then requests every item in one page.
// Error-flagged responses are retried until they succeed.
func (s *Scraper) FetchCatalog(ctx context.Context, token string) (*Catalog, error) {
	env, err := s.request(ctx, catalogEndpoint, s.catalogParams(token, 1), 0)
	if err != nil {
		return nil, err
	}
	head, err := parser.ParseCatalog(env.Data)
	if err != nil {
		return nil, err
	}
	total := int(head.TotalItems)
	slog.Info("catalog size", slog.Int("category_id", s.cfg.CategoryID), slog.Int("total_items", total))

	catalog := &Catalog{Products: models.NewProductMap(), TotalItems: total}
	if total <= 0 {
		return catalog, nil
	}

	env, err = s.request(ctx, catalogEndpoint, s.catalogParams(token, total), 0)
	if err != nil {
		return nil, err
	}
	page, err := parser.ParseCatalog(env.Data)
	if err != nil {
		return nil, err
	}

	for _, p := range page.Products() {
		catalog.Products.Put(p)
	}
	catalog.IDs = page.IDs()
	slog.Debug("catalog loaded",
		slog.Int("products", catalog.Products.Len()),
		slog.Int("ids", len(catalog.IDs)),
	)
	return catalog, nil
}

func (s *Scraper) catalogParams(token string, count int) signer.Params {
	var params signer.Params
	params.SetInt("count", count)
	params.Set("token", token)
	params.SetInt("category_id", s.cfg.CategoryID)
	params.Set("page", "1")
	params.Set("sort", s.cfg.Sort)
	return s.signer.Sign(params)
}
