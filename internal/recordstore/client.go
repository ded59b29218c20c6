// Package recordstore is the client for the generic record store backing the
// storefront: named collections of JSON records with CRUD operations and
// owner-scoped query filters. The record shapes are the contract; the store
// itself is an external collaborator (cmd/recordstored runs a dev instance).
package recordstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

var ErrNotFound = errors.New("record not found")

// StatusError reports a non-2xx response that is not a plain not-found.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("record store returned status %d: %s", e.Code, e.Body)
}

type Client struct {
	http *resty.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

// List fetches all records of a collection matching the filter (exact-match
// query parameters, typically ownerId) and decodes them into out.
func (c *Client) List(ctx context.Context, collection string, filter map[string]string, out any) error {
	req := c.http.R().SetContext(ctx).SetResult(out)
	if len(filter) > 0 {
		req.SetQueryParams(filter)
	}
	resp, err := req.Get("/" + collection)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", collection, err)
	}
	return checkStatus(collection, resp)
}

func (c *Client) Get(ctx context.Context, collection, id string, out any) error {
	resp, err := c.http.R().SetContext(ctx).SetResult(out).Get("/" + collection + "/" + id)
	if err != nil {
		return fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	return checkStatus(collection, resp)
}

// Create submits a new record; the store assigns the id. The stored record
// is decoded into out when out is non-nil.
func (c *Client) Create(ctx context.Context, collection string, body, out any) error {
	req := c.http.R().SetContext(ctx).SetBody(body)
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Post("/" + collection)
	if err != nil {
		return fmt.Errorf("failed to create in %s: %w", collection, err)
	}
	return checkStatus(collection, resp)
}

// Put replaces the whole record, keeping its id.
func (c *Client) Put(ctx context.Context, collection, id string, body, out any) error {
	req := c.http.R().SetContext(ctx).SetBody(body)
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Put("/" + collection + "/" + id)
	if err != nil {
		return fmt.Errorf("failed to replace %s/%s: %w", collection, id, err)
	}
	return checkStatus(collection, resp)
}

// Patch merges the given fields into the record.
func (c *Client) Patch(ctx context.Context, collection, id string, body, out any) error {
	req := c.http.R().SetContext(ctx).SetBody(body)
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Patch("/" + collection + "/" + id)
	if err != nil {
		return fmt.Errorf("failed to patch %s/%s: %w", collection, id, err)
	}
	return checkStatus(collection, resp)
}

func (c *Client) Delete(ctx context.Context, collection, id string) error {
	resp, err := c.http.R().SetContext(ctx).Delete("/" + collection + "/" + id)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	return checkStatus(collection, resp)
}

func checkStatus(collection string, resp *resty.Response) error {
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return fmt.Errorf("%s: %w", collection, ErrNotFound)
	case resp.StatusCode() >= 400:
		return &StatusError{Code: resp.StatusCode(), Body: string(resp.Body())}
	}
	return nil
}
