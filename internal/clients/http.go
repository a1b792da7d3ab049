// Package clients provides HTTP clients for the catalog and loan endpoints.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	domainerrors "libracatalog/internal/errors"
	"libracatalog/internal/http/response"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the server is considered unavailable.
var ErrCircuitOpen = errors.New("server unavailable: circuit open")

// serverError marks a failure that counts against the circuit breaker.
type serverError struct {
	err error
}

func (e *serverError) Error() string { return e.err.Error() }
func (e *serverError) Unwrap() error { return e.err }

// base performs JSON requests and turns error bodies back into domain errors.
type base struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

func newBase(name, baseURL string, httpClient *http.Client) base {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return base{
		baseURL: baseURL,
		http:    httpClient,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			IsSuccessful: func(err error) bool {
				var se *serverError
				return err == nil || !errors.As(err, &se)
			},
		}),
	}
}

// do sends a request with an optional JSON body and decodes a JSON reply into out.
func (b *base) do(ctx context.Context, method, path string, in, out any) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.roundTrip(ctx, method, path, in, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	var se *serverError
	if errors.As(err, &se) {
		return se.err
	}
	return err
}

func (b *base) roundTrip(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return &serverError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		err := decodeError(resp)
		if resp.StatusCode >= http.StatusInternalServerError {
			return &serverError{err: err}
		}
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var body response.ErrorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Code == "" {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return &domainerrors.Error{
		Code:    body.Code,
		Message: body.Message,
		Field:   body.Field,
		ItemID:  body.ItemID,
		From:    body.From,
	}
}
