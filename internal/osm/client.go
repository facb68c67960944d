package osm

import (
	"context"
	"errors"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/sells-group/kyoto-geodata/internal/fetcher"
)

// Client runs Overpass queries through a Fetcher.
type Client struct {
	endpoint string
	fetcher  fetcher.Fetcher
}

// NewClient creates a client for the interpreter endpoint.
func NewClient(endpoint string, f fetcher.Fetcher) *Client {
	return &Client{endpoint: endpoint, fetcher: f}
}

// QueryURL returns the GET URL that runs query.
func (c *Client) QueryURL(query string) string {
	return c.endpoint + "?" + url.Values{"data": {query}}.Encode()
}

// Query runs query and decodes the response. Transport failures keep their
// *fetcher.TransportError; an undecodable body becomes a
// *MalformedElementError with Index -1.
func (c *Client) Query(ctx context.Context, query string) (*Response, error) {
	resp, err := fetcher.FetchJSON[Response](ctx, c.fetcher, c.QueryURL(query))
	if err != nil {
		var de *fetcher.DecodeError
		if errors.As(err, &de) {
			return nil, eris.Wrap(&MalformedElementError{Index: -1, Reason: de.Err.Error()}, "overpass: decode response")
		}
		return nil, eris.Wrap(err, "overpass: query")
	}
	return resp, nil
}
