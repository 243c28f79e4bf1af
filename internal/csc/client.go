package csc

import (
	"context"
	"net/http"
	"net/url"

	"github.com/odyssey-erp/odyssey-admin/internal/platform/restclient"
)

// DraftRef identifies a code-list draft on the backend.
type DraftRef struct {
	CodeListID string `json:"codeListId" validate:"required,max=64"`
	DraftID    string `json:"draftId" validate:"required,max=64"`
}

// Backend is the code-list REST surface used when saving drafts.
type Backend interface {
	AddRows(ctx context.Context, ref DraftRef, rows []map[string]any) error
	UpdateRows(ctx context.Context, ref DraftRef, rows map[string]map[string]any) error
	DeleteRows(ctx context.Context, ref DraftRef, ids []string) error
	AddColumns(ctx context.Context, ref DraftRef, fields []Field) error
	RemoveColumns(ctx context.Context, ref DraftRef, indexes []int) error
	Rollback(ctx context.Context, ref DraftRef) error
	Columns(ctx context.Context, ref DraftRef) ([]Field, error)
}

// Client calls the code-list backend.
type Client struct {
	rest *restclient.Client
}

// NewClient wraps a REST client pointed at the code-list backend.
func NewClient(rest *restclient.Client) *Client {
	return &Client{rest: rest}
}

// AddRows posts an add batch.
func (c *Client) AddRows(ctx context.Context, ref DraftRef, rows []map[string]any) error {
	return c.rest.SendJSON(ctx, http.MethodPost, draftPath(ref, "/rows"), map[string]any{"rows": rows}, nil)
}

// UpdateRows patches an update batch keyed by row id.
func (c *Client) UpdateRows(ctx context.Context, ref DraftRef, rows map[string]map[string]any) error {
	return c.rest.SendJSON(ctx, http.MethodPatch, draftPath(ref, "/rows"), map[string]any{"rows": rows}, nil)
}

// DeleteRows posts a delete batch.
func (c *Client) DeleteRows(ctx context.Context, ref DraftRef, ids []string) error {
	return c.rest.SendJSON(ctx, http.MethodPost, draftPath(ref, "/rows/delete"), map[string]any{"ids": ids}, nil)
}

// AddColumns posts new column definitions.
func (c *Client) AddColumns(ctx context.Context, ref DraftRef, fields []Field) error {
	return c.rest.SendJSON(ctx, http.MethodPost, draftPath(ref, "/columns"), map[string]any{"fields": fields}, nil)
}

// RemoveColumns posts column indexes to drop.
func (c *Client) RemoveColumns(ctx context.Context, ref DraftRef, indexes []int) error {
	return c.rest.SendJSON(ctx, http.MethodPost, draftPath(ref, "/columns/remove"), map[string]any{"indexes": indexes}, nil)
}

// Rollback restores the draft to its last saved content.
func (c *Client) Rollback(ctx context.Context, ref DraftRef) error {
	return c.rest.SendJSON(ctx, http.MethodPost, draftPath(ref, "/rollback"), nil, nil)
}

// Columns reads the current column structure of the draft.
func (c *Client) Columns(ctx context.Context, ref DraftRef) ([]Field, error) {
	var body struct {
		Fields []Field `json:"fields"`
	}
	if err := c.rest.GetJSON(ctx, draftPath(ref, "/columns"), nil, &body); err != nil {
		return nil, err
	}
	return body.Fields, nil
}

func draftPath(ref DraftRef, suffix string) string {
	return "/codelists/" + url.PathEscape(ref.CodeListID) + "/drafts/" + url.PathEscape(ref.DraftID) + suffix
}
