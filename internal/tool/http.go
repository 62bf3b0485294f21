package tool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	httpRetryMax     = 3
	httpRetryWaitMin = 200 * time.Millisecond
	httpRetryWaitMax = 2 * time.Second
)

// getRetryableClient returns a client that retries connection errors and 5xx responses.
func getRetryableClient() *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = httpRetryMax
	client.RetryWaitMin = httpRetryWaitMin
	client.RetryWaitMax = httpRetryWaitMax
	client.Logger = nil

	return client
}

// fetchHTTPContent performs a GET request and returns the response body content.
// It ensures proper error handling and response body cleanup.
func fetchHTTPContent(ctx context.Context, client *http.Client, url string) (data []byte, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
