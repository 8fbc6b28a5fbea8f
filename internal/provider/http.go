package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const maxErrorBodyLength = 512

// NewHTTPClient returns a resty client with the given timeout and retries
// disabled.
func NewHTTPClient(timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(0)
	client.SetHeader("User-Agent", "notify-engine")
	return client
}

func ensureClient(client *resty.Client) *resty.Client {
	if client == nil {
		return NewHTTPClient(DefaultTimeout)
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(DefaultTimeout)
	}
	client.SetRetryCount(0)
	return client
}

// execute runs req and converts transport errors and non-2xx responses into
// failure-classified errors.
func execute(ctx context.Context, req *resty.Request, method string, target string) (*resty.Response, error) {
	response, err := req.SetContext(ctx).Execute(method, target)
	if err != nil {
		message := "request failed"
		if errors.Is(err, context.DeadlineExceeded) || isNetTimeout(err) {
			message = "request timed out"
		}
		return nil, &ProviderError{Message: message, Cause: err}
	}
	if response == nil {
		return nil, &ProviderError{Message: "empty response"}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return response, nil
	}

	return nil, &ProviderError{
		StatusCode: statusCode,
		Message:    statusMessage(statusCode, response.String()),
	}
}

func statusMessage(statusCode int, body string) string {
	base := fmt.Sprintf("remote returned status %d", statusCode)
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return base
	}
	if len(trimmed) > maxErrorBodyLength {
		trimmed = trimmed[:maxErrorBodyLength]
	}
	return fmt.Sprintf("%s: %s", base, trimmed)
}
