package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/log"
	gresty "github.com/go-resty/resty/v2"
)

const (
	notifyPath     = "/fee/notify"
	notifyAttempts = 5
)

var errNotifyHTTPError = errors.New("notify http error")

type HTTPError struct {
	StatusCode int
	Method     string
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d cannot %s %s: %s", e.StatusCode, e.Method, e.URL, errNotifyHTTPError)
}

func (e *HTTPError) Unwrap() error {
	return errNotifyHTTPError
}

type NotifyClient struct {
	client  *gresty.Client
	backoff func() backoff.BackOff
}

func NewNotifyClient(baseUrl string) (*NotifyClient, error) {
	if baseUrl == "" {
		return nil, fmt.Errorf("notify URL cannot be empty")
	}

	client := gresty.New()
	client.SetBaseURL(baseUrl)
	client.SetTimeout(10 * time.Second)
	client.OnAfterResponse(func(client *gresty.Client, response *gresty.Response) error {
		statusCode := response.StatusCode()
		if statusCode >= http.StatusBadRequest {
			return &HTTPError{
				StatusCode: statusCode,
				Method:     response.Request.Method,
				URL:        response.Request.URL,
			}
		}
		return nil
	})

	return &NotifyClient{
		client: client,
		backoff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(500*time.Millisecond),
				backoff.WithMaxInterval(10*time.Second),
			)
		},
	}, nil
}

// NotifyFee posts the reports and returns whether the receiver accepted
// them. Server errors and transport failures are retried; a 4xx is not.
func (nc *NotifyClient) NotifyFee(ctx context.Context, notifyData *NotifyRequest) (bool, error) {
	strategy := backoff.WithContext(backoff.WithMaxRetries(nc.backoff(), notifyAttempts), ctx)
	return backoff.RetryWithData(func() (bool, error) {
		res, err := nc.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(notifyData).
			SetResult(&NotifyResponse{}).
			Post(notifyPath)
		if err != nil {
			log.Warn("notify http request failed", "err", err)
			var httpErr *HTTPError
			if errors.As(err, &httpErr) && httpErr.StatusCode < http.StatusInternalServerError {
				return false, backoff.Permanent(err)
			}
			return false, err
		}
		spt, ok := res.Result().(*NotifyResponse)
		if !ok {
			return false, backoff.Permanent(fmt.Errorf("notify response is not of type *NotifyResponse"))
		}
		return spt.Success, nil
	}, strategy)
}
