package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
)

// DecodeError reports a response that arrived intact but is not the JSON
// document the caller expected.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode: %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// FetchJSON downloads rawURL and decodes the body as a single JSON value.
// Failures reading the body are reported as *TransportError, malformed
// JSON as *DecodeError.
func FetchJSON[T any](ctx context.Context, f Fetcher, rawURL string) (*T, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	var obj T
	if err := json.NewDecoder(body).Decode(&obj); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isDecodeFailure(err) {
			return nil, eris.Wrap(&DecodeError{URL: rawURL, Err: err}, "json: decode object")
		}
		return nil, eris.Wrap(&TransportError{URL: rawURL, Err: err}, "json: read body")
	}
	return &obj, nil
}

func isDecodeFailure(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}
