// Package geo resolves coarse visitor locations from IP addresses.
package geo

import (
	"context"

	"github.com/vadimbarashkov/shorturls/internal/entity"
)

const unknown = "Unknown"

// Locator looks up the location of an IP address.
type Locator interface {
	Locate(ctx context.Context, ip string) (entity.Location, error)
}

// StubLocator is a Locator without a backing provider. Every address resolves
// to an unknown city and country.
type StubLocator struct{}

func (StubLocator) Locate(_ context.Context, _ string) (entity.Location, error) {
	return entity.Location{City: unknown, Country: unknown}, nil
}
