// Package translate defines the Provider interface for text translation
// backends and the result shape every backend reports.
//
// A Provider never fails an ordinary call: transport errors, non-success
// statuses and unparsable responses are folded into a [Result] with IsError
// set and Text holding the original input, so callers can always log
// something. The only error a Provider returns is the context's own error when
// the call is cancelled or times out.
//
// Implementations must be safe for concurrent use.
package translate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single translate round trip.
const DefaultTimeout = 12 * time.Second

// maxResponseBytes caps how much of a vendor response body is read.
const maxResponseBytes = 1 << 20

// Result is the outcome of one translate call.
type Result struct {
	// Text is the translation, or the fallback text when IsError is true.
	Text string

	// IsError reports that the translation failed and Text holds a fallback,
	// normally the original input.
	IsError bool

	// ErrorMessage is a human-readable description of the failure. Empty on
	// success.
	ErrorMessage string
}

// Success returns a successful [Result] carrying text.
func Success(text string) Result {
	return Result{Text: text}
}

// Failure returns a failed [Result] carrying fallback as its text.
func Failure(message, fallback string) Result {
	return Result{Text: fallback, IsError: true, ErrorMessage: message}
}

// Provider is the abstraction over any translation backend.
type Provider interface {
	// Translate translates text according to the settings the provider was
	// built with. Blank text yields Success("") without any network access.
	// The returned error is non-nil only when ctx is done.
	Translate(ctx context.Context, text string) (Result, error)

	// Name returns the provider label used in status messages and engine
	// labels, e.g. "DeepL".
	Name() string
}

// Blank reports whether text has nothing to translate.
func Blank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// Fail shapes a failed call. If ctx is done the failure is reported as the
// context error instead of a [Result].
func Fail(ctx context.Context, fallback, format string, args ...any) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return Failure(fmt.Sprintf(format, args...), fallback), nil
}

// NewHTTPClient returns an HTTP client whose round trips are bounded by
// timeout. Non-positive values select [DefaultTimeout].
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// StatusMessage formats a non-success response as "<label> error: <code> <reason>".
func StatusMessage(label string, resp *http.Response) string {
	return fmt.Sprintf("%s error: %d %s", label, resp.StatusCode, http.StatusText(resp.StatusCode))
}

// ReadBody reads at most 1 MiB of the response body and closes it.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
}
