package dataset

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/sells-group/kyoto-geodata/internal/fetcher"
	"github.com/sells-group/kyoto-geodata/internal/geodata"
	"github.com/sells-group/kyoto-geodata/internal/osm"
)

// Class buckets a dataset failure for logging and the sync log.
type Class string

// Failure classes.
const (
	ClassTransport Class = "transport" // remote fetch failed
	ClassMalformed Class = "malformed" // response arrived but had an unexpected shape
	ClassWrite     Class = "write"     // output could not be written
	ClassCanceled  Class = "canceled"
	ClassUnknown   Class = "unknown"
)

// WriteError reports a converted dataset that could not be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Classify reports which class err belongs to. A nil error has no class.
func Classify(err error) Class {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.Canceled) {
		return ClassCanceled
	}

	var te *fetcher.TransportError
	if errors.As(err, &te) {
		return ClassTransport
	}

	var me *osm.MalformedElementError
	var jde *fetcher.DecodeError
	var gde *geodata.DecodeError
	if errors.As(err, &me) || errors.As(err, &jde) || errors.As(err, &gde) ||
		errors.Is(err, zip.ErrFormat) {
		return ClassMalformed
	}

	var we *WriteError
	if errors.As(err, &we) {
		return ClassWrite
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return ClassTransport
	}

	return ClassUnknown
}
