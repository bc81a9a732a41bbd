package model

import (
	"context"
	"errors"
)

// ErrNoResponse is returned by Complete when a model closes its stream
// without a final response.
var ErrNoResponse = errors.New("model returned no final response")

// Complete drives m to completion and returns the last final (non-partial)
// response. Partial chunks are discarded.
func Complete(ctx context.Context, m Model, req Request) (Response, error) {
	respCh, errCh := m.Generate(ctx, req)

	var (
		final Response
		found bool
	)

	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if !r.Partial {
				final, found = r, true
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return Response{}, err
			}
		}
	}

	if !found {
		return Response{}, ErrNoResponse
	}

	return final, nil
}

// CompleteText is like Complete but returns only the response text.
func CompleteText(ctx context.Context, m Model, req Request) (string, error) {
	resp, err := Complete(ctx, m, req)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
