package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/DeafMist/news-analytics/backend/internal/models"
)

const (
	OpSearch  = "search"
	OpSources = "sources"
)

// DefaultPageSize is used when a search asks for no explicit page size.
const DefaultPageSize = 10

// Page selects a slice of search results. Page numbers start at 1.
type Page struct {
	Page     int `json:"page,omitempty"`
	PageSize int `json:"page_size,omitempty"`
}

// Normalize fills defaults and rejects out-of-range values.
func (p Page) Normalize() (Page, error) {
	if p.Page == 0 {
		p.Page = 1
	}
	if p.PageSize == 0 {
		p.PageSize = DefaultPageSize
	}
	if p.Page < 1 {
		return p, invalidf("page must be at least 1, got %d", p.Page)
	}
	if p.PageSize < 1 || p.PageSize > MaxPageSize {
		return p, invalidf("page_size must be between 1 and %d, got %d", MaxPageSize, p.PageSize)
	}
	return p, nil
}

// Search returns one page of matching articles, newest first, along with the
// keywords and operator that were applied.
func (s *Service) Search(ctx context.Context, userID string, f Filter, p Page) (models.SearchPage, error) {
	p, err := p.Normalize()
	if err != nil {
		return models.SearchPage{}, err
	}
	return run(ctx, s, OpSearch, userID, f, func(ctx context.Context, _ Filter, q Query) (models.SearchPage, error) {
		return s.search(ctx, q, p)
	})
}

func (s *Service) search(ctx context.Context, q Query, p Page) (models.SearchPage, error) {
	res, err := s.exec.FetchPage(ctx, q, (p.Page-1)*p.PageSize, p.PageSize)
	if err != nil {
		return models.SearchPage{}, err
	}
	docs, err := res.Documents()
	if err != nil {
		return models.SearchPage{}, err
	}

	out := models.SearchPage{
		Total:      res.Total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: (res.Total + int64(p.PageSize) - 1) / int64(p.PageSize),
		Items:      make([]models.Article, 0, len(docs)),
	}
	for _, doc := range docs {
		out.Items = append(out.Items, models.NewArticle(doc))
	}
	if len(q.Terms.Keywords) > 0 {
		out.Keywords = q.Terms.Keywords
		out.Operator = string(q.Terms.Operator)
	}
	return out, nil
}

// Sources lists every distinct source in the index. The keyword sub-field is
// tried first; indices mapping source as a plain keyword fall back to it.
func (s *Service) Sources(ctx context.Context) (out models.SourceList, err error) {
	defer s.finish(OpSources, time.Now(), &err)

	fields := []string{FieldSource + ".keyword", FieldSource}
	var mismatches int
	for _, field := range fields {
		keys, ferr := s.exec.DistinctKeys(ctx, field)
		switch {
		case ferr == nil && len(keys) > 0:
			return models.SourceList{Sources: keys, Total: len(keys)}, nil
		case ferr == nil:
		case errors.Is(ferr, ErrSchemaMismatch):
			if mismatches++; mismatches == len(fields) {
				return models.SourceList{}, &ComputationError{Op: OpSources, Err: ferr}
			}
		default:
			return models.SourceList{}, &ComputationError{Op: OpSources, Err: ferr}
		}
	}
	return models.SourceList{Sources: []string{}}, nil
}
