package limits

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-admin/internal/platform/httpx"
)

// MaxPages caps how many pages a single "load more" request may accumulate.
const MaxPages = 20

// sharedFetchTimeout bounds a backend fetch shared by concurrent callers.
const sharedFetchTimeout = 30 * time.Second

// Result is a grouped view over one or more consecutive pages.
type Result struct {
	Months  Grouped `json:"months"`
	Pages   int     `json:"pages"`
	HasMore bool    `json:"hasMore"`
}

// Service combines the backend fetcher, the page cache and the grouping utilities.
type Service struct {
	fetcher  Fetcher
	cache    *Cache
	pageSize int
	validate *validator.Validate
	inflight singleflight.Group
}

// NewService wires a Fetcher with a Cache helper.
func NewService(fetcher Fetcher, cache *Cache, pageSize int) *Service {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Service{
		fetcher:  fetcher,
		cache:    cache,
		pageSize: pageSize,
		validate: validator.New(),
	}
}

// Load returns the grouped rows of a single page.
func (s *Service) Load(ctx context.Context, q Query) (Result, error) {
	q = s.normalize(q)
	if err := s.check(q); err != nil {
		return Result{}, err
	}
	page, err := s.page(ctx, q)
	if err != nil {
		return Result{}, err
	}
	return Result{Months: Group(page.Rows), Pages: 1, HasMore: page.HasMore}, nil
}

// LoadPages fetches pages 1..pages concurrently and merges them in page order,
// the same way successive "load more" clicks accumulate on screen. Pages past
// the last one are ignored, including their fetch errors.
func (s *Service) LoadPages(ctx context.Context, q Query, pages int) (Result, error) {
	if pages < 1 || pages > MaxPages {
		return Result{}, fmt.Errorf("limits: pages must be between 1 and %d: %w", MaxPages, httpx.ErrValidation)
	}
	q = s.normalize(q)
	q.Page = 1
	if err := s.check(q); err != nil {
		return Result{}, err
	}

	loaded := make([]Page, pages)
	errs := make([]error, pages)
	var g errgroup.Group
	for i := range loaded {
		pq := q
		pq.Page = i + 1
		g.Go(func() error {
			loaded[i], errs[i] = s.page(ctx, pq)
			return nil
		})
	}
	_ = g.Wait()

	result := Result{Months: Grouped{}}
	for i, page := range loaded {
		if errs[i] != nil {
			return Result{}, fmt.Errorf("limits: page %d: %w", i+1, errs[i])
		}
		result.Months = Merge(result.Months, Group(page.Rows))
		result.Pages++
		result.HasMore = page.HasMore
		if !page.HasMore {
			break
		}
	}
	return result, nil
}

// Invalidate drops every cached page.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) page(ctx context.Context, q Query) (Page, error) {
	key, err := s.cache.BuildKey(ctx, "limits", "kdp", q.InsuredID, strconv.Itoa(q.Year), strconv.Itoa(q.Page), strconv.Itoa(q.Size))
	if err != nil {
		return Page{}, err
	}
	// the shared fetch outlives any single caller; each caller still honours its own ctx
	shared := context.WithoutCancel(ctx)
	ch := s.inflight.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(shared, sharedFetchTimeout)
		defer cancel()
		var page Page
		err := s.cache.FetchJSON(fctx, key, &page, func(ctx context.Context) (any, error) {
			return s.fetcher.FetchPage(ctx, q)
		})
		return page, err
	})
	select {
	case <-ctx.Done():
		return Page{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Page{}, res.Err
		}
		return res.Val.(Page), nil
	}
}

func (s *Service) normalize(q Query) Query {
	if q.Size <= 0 {
		q.Size = s.pageSize
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return q
}

func (s *Service) check(q Query) error {
	if s.fetcher == nil {
		return errors.New("limits: fetcher not configured")
	}
	if err := s.validate.Struct(q); err != nil {
		return fmt.Errorf("limits: %v: %w", err, httpx.ErrValidation)
	}
	return nil
}
