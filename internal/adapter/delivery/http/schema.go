package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/vadimbarashkov/shorturls/internal/entity"
	"github.com/vadimbarashkov/shorturls/internal/shortcode"
	"github.com/vadimbarashkov/shorturls/internal/usecase"
	"github.com/vadimbarashkov/shorturls/pkg/response"
)

// shortenRequest is the body of a create request. Validity may be sent as a
// JSON number or as a numeric string.
type shortenRequest struct {
	URL       string          `json:"url"`
	Validity  json.RawMessage `json:"validity"`
	ShortCode string          `json:"shortcode"`
}

func (req shortenRequest) toParams() usecase.ShortenParams {
	params := usecase.ShortenParams{
		OriginalURL: req.URL,
		ShortCode:   req.ShortCode,
	}

	if validity, ok := parseValidity(req.Validity); ok {
		params.Validity = validity
	} else {
		// Rejected by the use case after the URL and short code checks.
		params.Validity = lo.ToPtr(0)
	}

	return params
}

// parseValidity returns nil for an absent or falsy value (null, false, 0 or
// ""), which selects the default validity. ok is false when the value is
// present but not an integer.
func parseValidity(raw json.RawMessage) (validity *int, ok bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, true
	}

	var s string
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, false
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, true
		}
	case 'n', 'f':
		if bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte("false")) {
			return nil, true
		}
		return nil, false
	default:
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil && f == 0 {
			return nil, true
		}
		s = string(raw)
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, false
	}

	return &n, true
}

type shortenResponse struct {
	ShortLink string    `json:"shortLink"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func toShortenResponse(baseURL string, url *entity.URL) shortenResponse {
	return shortenResponse{
		ShortLink: shortcode.FullShortURL(baseURL, url.ShortCode),
		ExpiresAt: url.ExpiresAt,
	}
}

type locationResponse struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

type clickResponse struct {
	Timestamp time.Time        `json:"timestamp"`
	IP        string           `json:"ip"`
	UserAgent string           `json:"userAgent"`
	Referrer  string           `json:"referrer"`
	Location  locationResponse `json:"location"`
}

func toClickResponse(c entity.Click, _ int) clickResponse {
	return clickResponse{
		Timestamp: c.Timestamp,
		IP:        c.IP,
		UserAgent: c.UserAgent,
		Referrer:  c.Referrer,
		Location: locationResponse{
			City:    c.Location.City,
			Country: c.Location.Country,
		},
	}
}

type statsResponse struct {
	OriginalURL string          `json:"originalUrl"`
	CreatedAt   time.Time       `json:"createdAt"`
	ExpiresAt   time.Time       `json:"expiresAt"`
	ClickCount  int64           `json:"clickCount"`
	Clicks      []clickResponse `json:"clicks"`
}

func toStatsResponse(url *entity.URL) statsResponse {
	return statsResponse{
		OriginalURL: url.OriginalURL,
		CreatedAt:   url.CreatedAt,
		ExpiresAt:   url.ExpiresAt,
		ClickCount:  url.ClickCount,
		Clicks:      lo.Map(url.Clicks, toClickResponse),
	}
}

var (
	invalidURLResponse       = response.NewError(http.StatusBadRequest, "A valid URL is required.")
	invalidShortCodeResponse = response.NewError(http.StatusBadRequest, "Invalid custom shortcode format.")
	invalidValidityResponse  = response.NewError(http.StatusBadRequest, "Validity must be a positive number of minutes.")
	shortCodeInUseResponse   = response.NewError(http.StatusConflict, "Custom shortcode is already in use.")
	urlNotFoundResponse      = response.NewError(http.StatusNotFound, "Short URL not found.")
	urlExpiredResponse       = response.NewError(http.StatusNotFound, "Short URL has expired.")
)
