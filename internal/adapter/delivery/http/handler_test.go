package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/httplog/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/shorturls/internal/entity"
	"github.com/vadimbarashkov/shorturls/internal/usecase"
	"github.com/vadimbarashkov/shorturls/pkg/ringlog"
)

const testBaseURL = "http://localhost:3000"

type MockURLUseCase struct {
	mock.Mock
}

func (m *MockURLUseCase) ShortenURL(ctx context.Context, params usecase.ShortenParams) (*entity.URL, error) {
	args := m.Called(ctx, params)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (m *MockURLUseCase) ResolveShortCode(ctx context.Context, shortCode string, visitor usecase.Visitor) (*entity.URL, error) {
	args := m.Called(ctx, shortCode, visitor)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (m *MockURLUseCase) GetURLStats(ctx context.Context, shortCode string) (*entity.URL, error) {
	args := m.Called(ctx, shortCode)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

type stubLogStore []ringlog.Entry

func (s stubLogStore) Entries() []ringlog.Entry { return s }

func intPtr(n int) *int { return &n }

type HandlersTestSuite struct {
	suite.Suite
	logger         *httplog.Logger
	createdAt      time.Time
	expiresAt      time.Time
	logs           stubLogStore
	urlUseCaseMock *MockURLUseCase
	server         *httptest.Server
	e              *httpexpect.Expect
}

func (suite *HandlersTestSuite) SetupSuite() {
	suite.logger = httplog.NewLogger("", httplog.Options{Writer: io.Discard})
	suite.createdAt = time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	suite.expiresAt = suite.createdAt.Add(30 * time.Minute)
	suite.logs = stubLogStore{
		{ID: "log-1", Time: suite.createdAt, Line: []byte(`{"msg":"Response: 200 OK"}`)},
	}
}

func (suite *HandlersTestSuite) SetupSubTest() {
	suite.urlUseCaseMock = new(MockURLUseCase)

	router := NewRouter(suite.logger, suite.urlUseCaseMock, suite.logs, testBaseURL)
	suite.server = httptest.NewServer(router)
	suite.T().Cleanup(func() {
		suite.server.Close()
	})

	suite.e = httpexpect.Default(suite.T(), suite.server.URL)
}

func (suite *HandlersTestSuite) TearDownSubTest() {
	suite.urlUseCaseMock.AssertExpectations(suite.T())
}

func (suite *HandlersTestSuite) TestPing() {
	suite.Run("success", func() {
		suite.e.GET("/api/ping").
			Expect().
			Status(http.StatusOK).
			Text().IsEqual("pong")
	})
}

func (suite *HandlersTestSuite) TestIndex() {
	suite.Run("serves ui", func() {
		suite.e.GET("/").
			Expect().
			Status(http.StatusOK).
			HasContentType("text/html").
			Body().Contains("/api/shorturls")
	})
}

func (suite *HandlersTestSuite) TestDocs() {
	suite.Run("swagger document", func() {
		suite.e.GET("/docs/swagger.yml").
			Expect().
			Status(http.StatusOK).
			Body().Contains("/api/shorturls")
	})
}

func (suite *HandlersTestSuite) TestLogs() {
	suite.Run("success", func() {
		entries := suite.e.GET("/api/logs").
			Expect().
			Status(http.StatusOK).
			JSON().Array()

		entries.Length().IsEqual(1)
		entry := entries.Value(0).Object()
		entry.HasValue("id", "log-1")
		entry.Value("record").Object().HasValue("msg", "Response: 200 OK")
	})
}

func (suite *HandlersTestSuite) TestLogs_NilStore() {
	suite.Run("empty list", func() {
		router := NewRouter(suite.logger, suite.urlUseCaseMock, nil, testBaseURL)
		server := httptest.NewServer(router)
		defer server.Close()

		httpexpect.Default(suite.T(), server.URL).
			GET("/api/logs").
			Expect().
			Status(http.StatusOK).
			JSON().Array().IsEmpty()
	})
}

func (suite *HandlersTestSuite) TestNotFoundAndMethodNotAllowed() {
	suite.Run("unknown api route", func() {
		suite.e.GET("/api/unknown/route").
			Expect().
			Status(http.StatusNotFound).
			JSON().Object().
			ContainsKey("error")
	})

	suite.Run("method not allowed", func() {
		suite.e.DELETE("/api/shorturls/abc123").
			Expect().
			Status(http.StatusMethodNotAllowed).
			JSON().Object().
			ContainsKey("error")
	})
}

func (suite *HandlersTestSuite) TestShortenURL() {
	const path = "/api/shorturls"

	suite.Run("empty request body", func() {
		suite.e.POST(path).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object().
			HasValue("error", "Empty request body.")
	})

	suite.Run("invalid request body", func() {
		suite.e.POST(path).
			WithJSON("invalid body").
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object().
			HasValue("error", "Invalid request body.")
	})

	suite.Run("invalid url", func() {
		suite.urlUseCaseMock.
			On("ShortenURL", mock.Anything, usecase.ShortenParams{OriginalURL: "not a url"}).
			Once().
			Return(nil, fmt.Errorf("wrapped: %w", usecase.ErrInvalidURL))

		suite.e.POST(path).
			WithJSON(map[string]any{"url": "not a url"}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object().
			HasValue("error", "A valid URL is required.")
	})

	suite.Run("invalid short code", func() {
		suite.urlUseCaseMock.
			On("ShortenURL", mock.Anything, usecase.ShortenParams{OriginalURL: "https://example.com", ShortCode: "a-b"}).
			Once().
			Return(nil, usecase.ErrInvalidShortCode)

		suite.e.POST(path).
			WithJSON(map[string]any{"url": "https://example.com", "shortcode": "a-b"}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object().
			HasValue("error", "Invalid custom shortcode format.")
	})

	suite.Run("non numeric validity", func() {
		suite.urlUseCaseMock.
			On("ShortenURL", mock.Anything, usecase.ShortenParams{OriginalURL: "https://example.com", Validity: intPtr(0)}).
			Once().
			Return(nil, usecase.ErrInvalidValidity)

		suite.e.POST(path).
			WithJSON(map[string]any{"url": "https://example.com", "validity": "soon"}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object().
			HasValue("error", "Validity must be a positive number of minutes.")
	})

	suite.Run("short code in use", func() {
		suite.urlUseCaseMock.
			On("ShortenURL", mock.Anything, usecase.ShortenParams{OriginalURL: "https://example.com", ShortCode: "mine"}).
			Once().
			Return(nil, entity.ErrShortCodeExists)

		suite.e.POST(path).
			WithJSON(map[string]any{"url": "https://example.com", "shortcode": "mine"}).
			Expect().
			Status(http.StatusConflict).
			JSON().Object().
			HasValue("error", "Custom shortcode is already in use.")
	})

	suite.Run("server error", func() {
		suite.urlUseCaseMock.
			On("ShortenURL", mock.Anything, usecase.ShortenParams{OriginalURL: "https://example.com"}).
			Once().
			Return(nil, errors.New("unknown error"))

		suite.e.POST(path).
			WithJSON(map[string]any{"url": "https://example.com"}).
			Expect().
			Status(http.StatusInternalServerError).
			JSON().Object().
			HasValue("error", "Internal server error.")
	})

	suite.Run("success", func() {
		suite.urlUseCaseMock.
			On("ShortenURL", mock.Anything, usecase.ShortenParams{
				OriginalURL: "https://example.com",
				ShortCode:   "mine",
				Validity:    intPtr(15),
			}).
			Once().
			Return(&entity.URL{
				ID:          1,
				ShortCode:   "mine",
				OriginalURL: "https://example.com",
				CreatedAt:   suite.createdAt,
				ExpiresAt:   suite.createdAt.Add(15 * time.Minute),
			}, nil)

		resp := suite.e.POST(path).
			WithJSON(map[string]any{"url": "https://example.com", "shortcode": "mine", "validity": "15"}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object()

		resp.HasValue("shortLink", testBaseURL+"/mine")
		resp.HasValue("expiresAt", "2025-05-10T08:15:00Z")
	})

	suite.Run("panic is recovered", func() {
		suite.urlUseCaseMock.
			On("ShortenURL", mock.Anything, mock.Anything).
			Once().
			Run(func(mock.Arguments) { panic("boom") })

		suite.e.POST(path).
			WithJSON(map[string]any{"url": "https://example.com"}).
			Expect().
			Status(http.StatusInternalServerError).
			JSON().Object().
			HasValue("error", "Something went wrong on our end.")
	})
}

func (suite *HandlersTestSuite) TestRedirect() {
	const path = "/%s"

	suite.Run("url not found", func() {
		suite.urlUseCaseMock.
			On("ResolveShortCode", mock.Anything, "abc123", mock.Anything).
			Once().
			Return(nil, entity.ErrURLNotFound)

		suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusNotFound).
			JSON().Object().
			HasValue("error", "Short URL not found.")
	})

	suite.Run("url expired", func() {
		suite.urlUseCaseMock.
			On("ResolveShortCode", mock.Anything, "abc123", mock.Anything).
			Once().
			Return(nil, usecase.ErrURLExpired)

		suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusNotFound).
			JSON().Object().
			HasValue("error", "Short URL has expired.")
	})

	suite.Run("server error", func() {
		suite.urlUseCaseMock.
			On("ResolveShortCode", mock.Anything, "abc123", mock.Anything).
			Once().
			Return(nil, errors.New("unknown error"))

		suite.e.GET(fmt.Sprintf(path, "abc123")).
			WithRedirectPolicy(httpexpect.DontFollowRedirects).
			Expect().
			Status(http.StatusInternalServerError).
			JSON().Object().
			HasValue("error", "Internal server error.")
	})

	suite.Run("success", func() {
		suite.urlUseCaseMock.
			On("ResolveShortCode", mock.Anything, "abc123", usecase.Visitor{
				IP:        "203.0.113.7",
				UserAgent: "test-agent",
				Referrer:  "https://ref.example.com",
			}).
			Once().
			Return(&entity.URL{
				ID:          1,
				ShortCode:   "abc123",
				OriginalURL: "https://example.com/target",
			}, nil)

		suite.e.GET(fmt.Sprintf(path, "abc123")).
			WithRedirectPolicy(httpexpect.DontFollowRedirects).
			WithHeader("X-Real-IP", "203.0.113.7").
			WithHeader("User-Agent", "test-agent").
			WithHeader("Referer", "https://ref.example.com").
			Expect().
			Status(http.StatusFound).
			Header("Location").IsEqual("https://example.com/target")
	})

	suite.Run("short code shadowing api prefix", func() {
		suite.urlUseCaseMock.
			On("ResolveShortCode", mock.Anything, "api", mock.Anything).
			Once().
			Return(&entity.URL{OriginalURL: "https://example.com/api-target"}, nil)

		suite.e.GET(fmt.Sprintf(path, "api")).
			WithRedirectPolicy(httpexpect.DontFollowRedirects).
			Expect().
			Status(http.StatusFound).
			Header("Location").IsEqual("https://example.com/api-target")
	})

	suite.Run("missing client headers", func() {
		suite.urlUseCaseMock.
			On("ResolveShortCode", mock.Anything, "abc123", mock.MatchedBy(func(v usecase.Visitor) bool {
				return v.IP == "127.0.0.1" && v.Referrer == "unknown"
			})).
			Once().
			Return(&entity.URL{OriginalURL: "https://example.com"}, nil)

		suite.e.GET(fmt.Sprintf(path, "abc123")).
			WithRedirectPolicy(httpexpect.DontFollowRedirects).
			Expect().
			Status(http.StatusFound)
	})
}

func (suite *HandlersTestSuite) TestGetURLStats() {
	const path = "/api/shorturls/%s"

	suite.Run("url not found", func() {
		suite.urlUseCaseMock.
			On("GetURLStats", mock.Anything, "abc123").
			Once().
			Return(nil, entity.ErrURLNotFound)

		suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusNotFound).
			JSON().Object().
			HasValue("error", "Short URL not found.")
	})

	suite.Run("server error", func() {
		suite.urlUseCaseMock.
			On("GetURLStats", mock.Anything, "abc123").
			Once().
			Return(nil, errors.New("unknown error"))

		suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusInternalServerError).
			JSON().Object().
			HasValue("error", "Internal server error.")
	})

	suite.Run("success", func() {
		suite.urlUseCaseMock.
			On("GetURLStats", mock.Anything, "abc123").
			Once().
			Return(&entity.URL{
				ID:          1,
				ShortCode:   "abc123",
				OriginalURL: "https://example.com",
				URLStats: entity.URLStats{
					ClickCount: 1,
					Clicks: []entity.Click{
						{
							Timestamp: suite.createdAt.Add(time.Minute),
							IP:        "203.0.113.7",
							UserAgent: "test-agent",
							Referrer:  "unknown",
							Location:  entity.Location{City: "Unknown", Country: "Unknown"},
						},
					},
				},
				CreatedAt: suite.createdAt,
				ExpiresAt: suite.expiresAt,
			}, nil)

		resp := suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusOK).
			JSON().Object()

		resp.HasValue("originalUrl", "https://example.com")
		resp.HasValue("createdAt", "2025-05-10T08:00:00Z")
		resp.HasValue("expiresAt", "2025-05-10T08:30:00Z")
		resp.HasValue("clickCount", 1)

		click := resp.Value("clicks").Array().Value(0).Object()
		click.HasValue("timestamp", "2025-05-10T08:01:00Z")
		click.HasValue("ip", "203.0.113.7")
		click.HasValue("userAgent", "test-agent")
		click.HasValue("referrer", "unknown")
		click.Value("location").Object().
			HasValue("city", "Unknown").
			HasValue("country", "Unknown")
	})

	suite.Run("no clicks renders empty list", func() {
		suite.urlUseCaseMock.
			On("GetURLStats", mock.Anything, "abc123").
			Once().
			Return(&entity.URL{OriginalURL: "https://example.com"}, nil)

		suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			Value("clicks").Array().IsEmpty()
	})
}

func TestURLHandler(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func TestParseValidity(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   *int
		wantOK bool
	}{
		{name: "absent", raw: "", want: nil, wantOK: true},
		{name: "null", raw: "null", want: nil, wantOK: true},
		{name: "number", raw: "45", want: intPtr(45), wantOK: true},
		{name: "numeric string", raw: `"45"`, want: intPtr(45), wantOK: true},
		{name: "negative number", raw: "-3", want: intPtr(-3), wantOK: true},
		{name: "fraction", raw: "1.5", wantOK: false},
		{name: "word", raw: `"soon"`, wantOK: false},
		{name: "empty string", raw: `""`, want: nil, wantOK: true},
		{name: "blank string", raw: `"  "`, want: nil, wantOK: true},
		{name: "zero", raw: "0", want: nil, wantOK: true},
		{name: "zero fraction", raw: "0.0", want: nil, wantOK: true},
		{name: "false", raw: "false", want: nil, wantOK: true},
		{name: "zero string", raw: `"0"`, want: intPtr(0), wantOK: true},
		{name: "true", raw: "true", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseValidity(json.RawMessage(tt.raw))

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
