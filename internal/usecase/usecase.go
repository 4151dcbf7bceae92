package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vadimbarashkov/shorturls/internal/entity"
	"github.com/vadimbarashkov/shorturls/internal/geo"
	"github.com/vadimbarashkov/shorturls/internal/shortcode"
)

const (
	defaultValidity = 30
	// maxValidity keeps expiration dates far from time.Duration overflow.
	maxValidity = 100 * 365 * 24 * 60
	maxRetries  = 5
)

var (
	ErrInvalidURL         = errors.New("invalid url")
	ErrInvalidShortCode   = errors.New("invalid short code")
	ErrInvalidValidity    = errors.New("invalid validity")
	ErrURLExpired         = errors.New("url expired")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating short code")
)

type urlRepository interface {
	Save(ctx context.Context, url *entity.URL) (*entity.URL, error)
	RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error)
	RetrieveWithClicks(ctx context.Context, shortCode string) (*entity.URL, error)
	RecordClick(ctx context.Context, urlID int64, click entity.Click) error
}

// Clock is the source of the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// ShortenParams describes a shortening request. Empty ShortCode asks for a
// generated one, nil Validity means the default validity window.
type ShortenParams struct {
	OriginalURL string
	ShortCode   string
	Validity    *int
}

// Visitor describes the client following a short link.
type Visitor struct {
	IP        string
	UserAgent string
	Referrer  string
}

type Option func(*URLUseCase)

func WithClock(c Clock) Option {
	return func(uc *URLUseCase) {
		uc.clock = c
	}
}

func WithShortCodeLength(n int) Option {
	return func(uc *URLUseCase) {
		uc.shortCodeLength = n
	}
}

func WithDefaultValidity(minutes int) Option {
	return func(uc *URLUseCase) {
		uc.defaultValidity = minutes
	}
}

type URLUseCase struct {
	shortCodeLength int
	defaultValidity int
	urlRepo         urlRepository
	locator         geo.Locator
	clock           Clock
}

func New(urlRepo urlRepository, locator geo.Locator, opts ...Option) *URLUseCase {
	uc := &URLUseCase{
		shortCodeLength: shortcode.DefaultLength,
		defaultValidity: defaultValidity,
		urlRepo:         urlRepo,
		locator:         locator,
		clock:           systemClock{},
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

func (uc *URLUseCase) now() time.Time {
	return uc.clock.Now().UTC().Truncate(time.Millisecond)
}

func (uc *URLUseCase) ShortenURL(ctx context.Context, params ShortenParams) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ShortenURL"

	if !shortcode.ValidateURL(params.OriginalURL) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidURL)
	}

	if params.ShortCode != "" && !shortcode.ValidateShortCode(params.ShortCode) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidShortCode)
	}

	validity := uc.defaultValidity
	if params.Validity != nil {
		validity = *params.Validity
	}
	if validity <= 0 || validity > maxValidity {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidValidity)
	}

	createdAt := uc.now()
	url := &entity.URL{
		ShortCode:   params.ShortCode,
		OriginalURL: params.OriginalURL,
		CreatedAt:   createdAt,
		ExpiresAt:   shortcode.ExpirationDate(createdAt, validity),
	}

	if params.ShortCode != "" {
		saved, err := uc.urlRepo.Save(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to save url with custom short code: %w", op, err)
		}

		return saved, nil
	}

	for i := 0; i < maxRetries; i++ {
		code, err := shortcode.Generate(uc.shortCodeLength)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		url.ShortCode = code

		saved, err := uc.urlRepo.Save(ctx, url)
		if err != nil {
			if errors.Is(err, entity.ErrShortCodeExists) {
				continue
			}

			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		return saved, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrMaxRetriesExceeded)
}

// ResolveShortCode returns the URL behind an active short code and records
// the visit. Expired codes fail with ErrURLExpired and record nothing.
func (uc *URLUseCase) ResolveShortCode(ctx context.Context, shortCode string, visitor Visitor) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ResolveShortCode"

	url, err := uc.urlRepo.RetrieveByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	now := uc.now()
	if url.IsExpired(now) {
		return nil, fmt.Errorf("%s: %w", op, ErrURLExpired)
	}

	location, err := uc.locator.Locate(ctx, visitor.IP)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to locate visitor: %w", op, err)
	}

	click := entity.Click{
		Timestamp: now,
		IP:        visitor.IP,
		UserAgent: visitor.UserAgent,
		Referrer:  visitor.Referrer,
		Location:  location,
	}

	if err := uc.urlRepo.RecordClick(ctx, url.ID, click); err != nil {
		return nil, fmt.Errorf("%s: failed to record click: %w", op, err)
	}

	url.ClickCount++

	return url, nil
}

func (uc *URLUseCase) GetURLStats(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.GetURLStats"

	url, err := uc.urlRepo.RetrieveWithClicks(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url stats: %w", op, err)
	}

	return url, nil
}
