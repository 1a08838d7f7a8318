// Package widgetapi is the HTTP client for the remote salon API's widget
// surface. Auth is a per-salon widget key sent in the X-Widget-Key header.
package widgetapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/frizerino/widget-gateway/internal/metrics"
	"github.com/frizerino/widget-gateway/internal/models"
)

// Client calls the widget endpoints of the remote salon API.
type Client struct {
	baseURL    string
	widgetKey  string
	httpClient *http.Client
	retry      RetryConfig
	logger     zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewClient constructs a client for baseURL authenticated by widgetKey.
func NewClient(baseURL, widgetKey string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		widgetKey:  widgetKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry:      DefaultRetryConfig(),
		logger:     logger,
	}
}

// SetRetryConfig overrides the default retry policy.
func (c *Client) SetRetryConfig(rc RetryConfig) {
	c.retry = rc
}

// UseRedisCache configures optional Redis caching for bootstrap and
// month-availability responses. Slot lists are never cached: after a
// booking conflict the flow must see a fresh list.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// ServiceRef identifies a selected service with its duration, as the
// availability endpoints expect it.
type ServiceRef struct {
	ServiceID int64 `json:"serviceId"`
	Duration  int   `json:"duration"`
}

// DatesRequest is the body for POST /widget/dates/available.
type DatesRequest struct {
	Key      string       `json:"key"`
	StaffID  int64        `json:"staff_id"`
	Month    string       `json:"month"` // "YYYY-MM"
	Services []ServiceRef `json:"services"`
}

// DatesResponse lists the month's dates by availability.
type DatesResponse struct {
	AvailableDates   []string `json:"available_dates"`
	UnavailableDates []string `json:"unavailable_dates"`
}

// SlotsRequest is the body for POST /widget/slots/available.
type SlotsRequest struct {
	Key      string       `json:"key"`
	StaffID  int64        `json:"staff_id"`
	Date     string       `json:"date"` // "YYYY-MM-DD"
	Services []ServiceRef `json:"services"`
}

// SlotsResponse lists bookable start times chronologically.
type SlotsResponse struct {
	Slots []string `json:"slots"`
}

// BookServiceRef identifies a service in a booking payload.
type BookServiceRef struct {
	ID int64 `json:"id"`
}

// BookRequest is the body for POST /widget/book.
type BookRequest struct {
	APIKey       string           `json:"api_key"`
	SalonID      int64            `json:"salon_id"`
	StaffID      int64            `json:"staff_id"`
	Services     []BookServiceRef `json:"services"`
	Date         string           `json:"date"`
	Time         string           `json:"time"`
	GuestName    string           `json:"guest_name"`
	GuestPhone   string           `json:"guest_phone"`
	GuestEmail   string           `json:"guest_email,omitempty"`
	GuestAddress string           `json:"guest_address,omitempty"`
	Notes        string           `json:"notes,omitempty"`
}

// Confirmation is a successful booking.
type Confirmation struct {
	BookingID int64  `json:"booking_id"`
	Status    string `json:"status"`
	Date      string `json:"date"`
	Time      string `json:"time"`
}

// Bootstrap fetches the salon snapshot for the embeddable flow.
func (c *Client) Bootstrap(ctx context.Context, salonSlug string) (*models.Salon, error) {
	endpoint := fmt.Sprintf("%s/api/v1/widget/%s?key=%s",
		c.baseURL, url.PathEscape(salonSlug), url.QueryEscape(c.widgetKey))
	cacheKey := "widget:bootstrap:" + salonSlug

	var salon models.Salon
	if c.readCache(ctx, cacheKey, &salon) {
		return &salon, nil
	}

	err := withRetry(ctx, c.retry, func() error {
		return c.doGet(ctx, endpoint, &salon)
	})
	if err != nil {
		metrics.IncAPIRequest("bootstrap", "error")
		return nil, err
	}
	metrics.IncAPIRequest("bootstrap", "ok")
	c.writeCache(ctx, cacheKey, salon)
	return &salon, nil
}

// AvailableDates fetches the authoritative month classification for a
// staff/service-set combination.
func (c *Client) AvailableDates(ctx context.Context, staffID int64, month string, services []ServiceRef) (*DatesResponse, error) {
	endpoint := c.baseURL + "/api/v1/widget/dates/available"
	req := DatesRequest{Key: c.widgetKey, StaffID: staffID, Month: month, Services: services}
	cacheKey := fmt.Sprintf("widget:dates:%d:%s:%s", staffID, month, servicesKey(services))

	var resp DatesResponse
	if c.readCache(ctx, cacheKey, &resp) {
		return &resp, nil
	}

	err := withRetry(ctx, c.retry, func() error {
		return c.doPost(ctx, endpoint, req, &resp)
	})
	if err != nil {
		metrics.IncAPIRequest("dates", "error")
		return nil, err
	}
	metrics.IncAPIRequest("dates", "ok")
	c.writeCache(ctx, cacheKey, resp)
	return &resp, nil
}

// AvailableSlots fetches the bookable start times for one date. Responses
// are not cached.
func (c *Client) AvailableSlots(ctx context.Context, staffID int64, date string, services []ServiceRef) (*SlotsResponse, error) {
	endpoint := c.baseURL + "/api/v1/widget/slots/available"
	req := SlotsRequest{Key: c.widgetKey, StaffID: staffID, Date: date, Services: services}

	var resp SlotsResponse
	err := withRetry(ctx, c.retry, func() error {
		return c.doPost(ctx, endpoint, req, &resp)
	})
	if err != nil {
		metrics.IncAPIRequest("slots", "error")
		return nil, err
	}
	metrics.IncAPIRequest("slots", "ok")
	if resp.Slots == nil {
		resp.Slots = []string{}
	}
	return &resp, nil
}

// Book submits a booking. The call is sent exactly once: the generic retry
// policy never applies here, the server is the sole arbiter of conflicts.
func (c *Client) Book(ctx context.Context, req BookRequest) (*Confirmation, error) {
	endpoint := c.baseURL + "/api/v1/widget/book"
	req.APIKey = c.widgetKey

	var conf Confirmation
	if err := c.doPost(ctx, endpoint, req, &conf); err != nil {
		if IsSlotTaken(err) {
			metrics.IncBookingSubmitted("slot_taken")
		} else {
			metrics.IncBookingSubmitted("error")
		}
		return nil, err
	}
	metrics.IncBookingSubmitted("confirmed")
	return &conf, nil
}

func servicesKey(services []ServiceRef) string {
	parts := make([]string, len(services))
	for i, s := range services {
		parts[i] = fmt.Sprintf("%d", s.ServiceID)
	}
	return strings.Join(parts, ",")
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.cacheTTL).Err(); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (c *Client) doGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *Client) doPost(ctx context.Context, endpoint string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(data)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// No HTTP status at all; eligible for the retry policy.
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if decodeErr := json.NewDecoder(resp.Body).Decode(apiErr); decodeErr != nil {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}

func (c *Client) addHeaders(req *http.Request) {
	if c.widgetKey != "" {
		req.Header.Set("X-Widget-Key", c.widgetKey)
	}
}
