package util

import (
	"context"
	"net/http"
)

// HTTPRequest builds a request carrying the given user agent,
// remote sources tend to refuse the Go default one
func HTTPRequest(ctx context.Context, method, url, userAgent string) (*http.Request, error) {
	request, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	if len(userAgent) > 0 {
		request.Header.Set("User-Agent", userAgent)
	}
	return request, nil
}
