package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/adamanr/hcm_gateway/internal/config"
	"github.com/prometheus/client_golang/prometheus"
)

// GenericMessage is shown to the user when the backend failed without a message.
const GenericMessage = "The request could not be completed. Please try again."

var (
	ErrNotFound = errors.New("record not found")

	errEmptyBody = errors.New("empty response body")
)

// Error is a failed backend round-trip.
type Error struct {
	Endpoint string
	Status   int
	Message  string
	Err      error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("backend %s: %s", e.Endpoint, e.Err.Error())
	case e.Message != "":
		return fmt.Sprintf("backend %s: status %d: %s", e.Endpoint, e.Status, e.Message)
	default:
		return fmt.Sprintf("backend %s: status %d", e.Endpoint, e.Status)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// UserMessage returns the backend's own message or GenericMessage.
func (e *Error) UserMessage() string {
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}

	return GenericMessage
}

// Metrics holds the upstream latency histogram.
type Metrics struct {
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hcm_backend_request_duration_seconds",
				Help:    "Latency of HCM backend requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint", "status"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.duration)
	}

	return m
}

// Client talks to the HCM REST backend.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	metrics *Metrics
}

func NewClient(cfg *config.Config, logger *slog.Logger, metrics *Metrics) *Client {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	return &Client{
		baseURL: cfg.Backend.BaseURL,
		http:    &http.Client{Timeout: cfg.Backend.Timeout},
		logger:  logger,
		metrics: metrics,
	}
}

// Ping checks that the backend answers at all.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return &Error{Endpoint: "ping", Status: resp.StatusCode}
	}

	return nil
}

// do sends one request. endpoint is the metric label, path is appended to
// the base URL. in is JSON encoded when non-nil; out is decoded when non-nil.
func (c *Client) do(ctx context.Context, method, endpoint, path string, in, out any) error {
	target, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return &Error{Endpoint: endpoint, Err: err}
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return &Error{Endpoint: endpoint, Err: err}
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return &Error{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.duration.WithLabelValues(endpoint, "error").Observe(time.Since(start).Seconds())
		c.logger.Error("Backend request failed",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return &Error{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	c.metrics.duration.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Endpoint: endpoint, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("Backend returned error status",
			slog.String("endpoint", endpoint),
			slog.Int("status", resp.StatusCode),
		)
		return &Error{Endpoint: endpoint, Status: resp.StatusCode, Message: messageOf(data)}
	}

	if out == nil {
		return nil
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return errEmptyBody
	}

	if err := json.Unmarshal(trimmed, out); err != nil {
		c.logger.Error("Error decoding backend response",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return &Error{Endpoint: endpoint, Status: resp.StatusCode, Err: err}
	}

	return nil
}

func messageOf(data []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}

	return strings.TrimSpace(body.Message)
}
