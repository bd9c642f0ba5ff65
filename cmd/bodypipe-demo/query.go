package main

import (
	"context"
	"net/http"
	"net/url"
)

type queryKey struct{}

// withQuery makes the request query visible to producers, which only see
// the request context.
func withQuery(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), queryKey{}, r.URL.Query())
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestQuery(ctx context.Context) url.Values {
	if q, ok := ctx.Value(queryKey{}).(url.Values); ok {
		return q
	}
	return url.Values{}
}
