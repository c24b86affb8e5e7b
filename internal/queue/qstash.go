package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jungeol66104/firework-web-sub001/internal/domain"
)

type QStashConfig struct {
	// BrokerURL is the publish API base, e.g. https://qstash.upstash.io.
	BrokerURL string
	Token     string
	// CallbackBaseURL is this service's externally reachable base URL used
	// to build per-kind webhook destinations.
	CallbackBaseURL string
	// DeliveryRetries is forwarded to the broker, not retried locally.
	DeliveryRetries int
	Timeout         time.Duration
	HTTPClient      *http.Client
}

// QStashDispatcher publishes queue messages to an Upstash-style HTTP broker
// which later delivers them to the kind's webhook endpoint.
type QStashDispatcher struct {
	brokerURL       string
	token           string
	callbackBaseURL string
	deliveryRetries int
	timeout         time.Duration
	httpClient      *http.Client
}

func NewQStashDispatcher(cfg QStashConfig) (*QStashDispatcher, error) {
	if strings.TrimSpace(cfg.BrokerURL) == "" {
		return nil, errors.New("broker URL is required")
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("broker token is required")
	}
	if strings.TrimSpace(cfg.CallbackBaseURL) == "" {
		return nil, errors.New("callback base URL is required")
	}
	if cfg.DeliveryRetries <= 0 {
		cfg.DeliveryRetries = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}

	return &QStashDispatcher{
		brokerURL:       strings.TrimSuffix(cfg.BrokerURL, "/"),
		token:           strings.TrimSpace(cfg.Token),
		callbackBaseURL: strings.TrimSuffix(cfg.CallbackBaseURL, "/"),
		deliveryRetries: cfg.DeliveryRetries,
		timeout:         cfg.Timeout,
		httpClient:      cfg.HTTPClient,
	}, nil
}

func (d *QStashDispatcher) Enqueue(ctx context.Context, message domain.QueueMessage) error {
	path, err := WebhookPath(message.Kind)
	if err != nil {
		return err
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal queue message: %w", err)
	}

	destination := d.callbackBaseURL + path
	publishURL := d.brokerURL + "/v2/publish/" + destination

	timeoutCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, publishURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create publish request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+d.token)
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Upstash-Retries", strconv.Itoa(d.deliveryRetries))
	request.Header.Set("Upstash-Delay", "0s")

	response, err := d.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("publish to broker: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(response.Body, 600))
		return fmt.Errorf("broker publish status %d: %s", response.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
