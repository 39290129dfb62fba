package app

import (
	"context"
	"net/http"
	"strings"

	"github.com/artpar/routegen/core/capability"
	"github.com/artpar/routegen/core/schema"
	"github.com/artpar/routegen/domain/apierr"
	"github.com/artpar/routegen/domain/call"
)

// HasNextPage returns the next page URL announced by resp.
func HasNextPage(resp *call.Response) (string, bool) { return resp.Link(call.RelNext) }

// HasPreviousPage returns the previous page URL announced by resp.
func HasPreviousPage(resp *call.Response) (string, bool) { return resp.Link(call.RelPrev) }

// HasFirstPage returns the first page URL announced by resp.
func HasFirstPage(resp *call.Response) (string, bool) { return resp.Link(call.RelFirst) }

// HasLastPage returns the last page URL announced by resp.
func HasLastPage(resp *call.Response) (string, bool) { return resp.Link(call.RelLast) }

// GetNextPage fetches the page after resp.
func (c *Client) GetNextPage(ctx context.Context, resp *call.Response, headers map[string]string) (*call.Response, error) {
	return c.page(ctx, resp, call.RelNext, headers)
}

// GetPreviousPage fetches the page before resp.
func (c *Client) GetPreviousPage(ctx context.Context, resp *call.Response, headers map[string]string) (*call.Response, error) {
	return c.page(ctx, resp, call.RelPrev, headers)
}

// GetFirstPage fetches the first page of the listing resp belongs to.
func (c *Client) GetFirstPage(ctx context.Context, resp *call.Response, headers map[string]string) (*call.Response, error) {
	return c.page(ctx, resp, call.RelFirst, headers)
}

// GetLastPage fetches the last page of the listing resp belongs to.
func (c *Client) GetLastPage(ctx context.Context, resp *call.Response, headers map[string]string) (*call.Response, error) {
	return c.page(ctx, resp, call.RelLast, headers)
}

// page follows a link URL with a GET through the same transport, auth and
// header policy as compiled endpoints. A missing link is a 404 HttpError.
func (c *Client) page(ctx context.Context, resp *call.Response, rel string, headers map[string]string) (*call.Response, error) {
	link, ok := resp.Link(rel)
	if !ok {
		return nil, apierr.HTTP(http.StatusNotFound, "No "+rel+" page found")
	}

	defines := c.Registry().Defines()
	route := schema.Route{
		URL:             link,
		Method:          http.MethodGet,
		Path:            "pagination/" + rel,
		RequestHeaders:  lower(defines.RequestHeaders),
		ResponseHeaders: lower(defines.ResponseHeaders),
	}

	msg := call.Message{}
	if len(headers) > 0 {
		msg[call.KeyHeaders] = headers
	}
	return capability.Standard(ctx, c.transport, msg, route)
}

func lower(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, strings.ToLower(strings.TrimSpace(n)))
	}
	return out
}
