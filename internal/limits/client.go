package limits

import (
	"context"
	"net/url"
	"strconv"

	"github.com/odyssey-erp/odyssey-admin/internal/platform/restclient"
)

// Query selects one page of KDP (copayment limit) results for an insured person.
type Query struct {
	InsuredID string `json:"insuredId" validate:"required,max=32"`
	Year      int    `json:"year" validate:"gte=2000,lte=2100"`
	Page      int    `json:"page" validate:"gte=1"`
	Size      int    `json:"size" validate:"gte=1,lte=500"`
}

// Page is one page of raw result rows as returned by the limits backend.
type Page struct {
	Rows    []Row `json:"rows"`
	HasMore bool  `json:"hasMore"`
}

// Fetcher loads raw pages from the backend.
type Fetcher interface {
	FetchPage(ctx context.Context, q Query) (Page, error)
}

// Client calls the limits REST backend.
type Client struct {
	rest *restclient.Client
}

// NewClient wraps a REST client pointed at the limits backend.
func NewClient(rest *restclient.Client) *Client {
	return &Client{rest: rest}
}

// FetchPage implements Fetcher.
func (c *Client) FetchPage(ctx context.Context, q Query) (Page, error) {
	params := url.Values{}
	params.Set("year", strconv.Itoa(q.Year))
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("size", strconv.Itoa(q.Size))

	var page Page
	if err := c.rest.GetJSON(ctx, "/insured/"+url.PathEscape(q.InsuredID)+"/kdp", params, &page); err != nil {
		return Page{}, err
	}
	return page, nil
}
