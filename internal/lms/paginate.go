package lms

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strings"
)

const defaultPerPage = "50"

// Paginate walks a collection page by page following rel="next" links.
// Each range over the returned sequence starts again from the first page.
// A failed page yields the error once and ends the sequence.
func Paginate[T any](ctx context.Context, c *Client, path string, query url.Values) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		q := url.Values{}
		for k, vs := range query {
			q[k] = append([]string(nil), vs...)
		}
		if q.Get("per_page") == "" {
			q.Set("per_page", defaultPerPage)
		}

		next, nextQuery := path, q
		seen := map[string]struct{}{}
		for next != "" {
			resp, err := c.Request(ctx, http.MethodGet, next, nextQuery, nil)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			var page []T
			if err := json.Unmarshal(resp.Body, &page); err != nil {
				var zero T
				yield(zero, fmt.Errorf("lms: decode page %s: %w", next, err))
				return
			}
			for _, item := range page {
				if !yield(item, nil) {
					return
				}
			}

			seen[next] = struct{}{}
			next, nextQuery = nextLink(resp.Header.Get("Link")), nil
			if _, loop := seen[next]; loop {
				return
			}
		}
	}
}

// Collect drains seq, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for item, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// nextLink extracts the rel="next" target from an RFC 8288 Link header.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segs := strings.Split(part, ";")
		if len(segs) < 2 {
			continue
		}
		target := strings.TrimSpace(segs[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, p := range segs[1:] {
			p = strings.TrimSpace(p)
			if !strings.HasPrefix(p, "rel=") {
				continue
			}
			for _, rel := range strings.Fields(strings.Trim(strings.TrimPrefix(p, "rel="), `"`)) {
				if rel == "next" {
					return target[1 : len(target)-1]
				}
			}
		}
	}
	return ""
}
