// Package notify delivers capture events to external collaborators
// (notifications, objective expiry) over webhooks.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/errgroup"

	"territory-engine/internal/config"
	"territory-engine/internal/constants"
	"territory-engine/internal/domain"
)

type WebhookNotifier struct {
	urls   []string
	client *fasthttp.Client
	logger zerolog.Logger
}

func NewWebhookNotifier(cfg *config.Config, logger zerolog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		urls: cfg.WebhookURLs,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         constants.WebhookTimeout,
			WriteTimeout:        constants.WebhookTimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
	}
}

// OnCapture is the capture-event listener. Delivery happens off the game
// loop; failures are logged and dropped after the retry budget.
func (n *WebhookNotifier) OnCapture(ev domain.CaptureEvent) {
	if len(n.urls) == 0 {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		n.logger.Error().Err(err).Msg("failed to marshal capture event")
		return
	}

	go func() {
		g := new(errgroup.Group)
		for _, url := range n.urls {
			g.Go(func() error {
				return n.deliver(url, payload)
			})
		}
		if err := g.Wait(); err != nil {
			n.logger.Warn().Err(err).Str("region", ev.Region.String()).Msg("capture webhook delivery incomplete")
		}
	}()
}

func (n *WebhookNotifier) deliver(url string, payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), constants.RequestTimeout)
	defer cancel()

	backoff := retry.WithMaxRetries(constants.WebhookRetryAttempts,
		retry.NewExponential(constants.WebhookRetryBase))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)

		req.SetRequestURI(url)
		req.Header.SetMethod(fasthttp.MethodPost)
		req.Header.SetContentType("application/json")
		req.SetBody(payload)

		if err := n.client.DoTimeout(req, resp, constants.WebhookTimeout); err != nil {
			return retry.RetryableError(err)
		}
		if code := resp.StatusCode(); code >= 500 {
			return retry.RetryableError(fmt.Errorf("webhook %s returned %d", url, code))
		} else if code >= 400 {
			return fmt.Errorf("webhook %s rejected event: %d", url, code)
		}
		return nil
	})
}
