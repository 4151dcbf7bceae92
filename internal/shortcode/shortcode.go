// Package shortcode generates and validates short codes and builds the values
// derived from them: expiration timestamps and public short links.
package shortcode

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultLength is the length of generated short codes.
const DefaultLength = 8

var validate = validator.New()

// Generate returns a random code of n characters taken from the URL-safe
// nanoid alphabet. Uniqueness is not checked.
func Generate(n int) (string, error) {
	const op = "shortcode.Generate"

	code, err := gonanoid.New(n)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate short code: %w", op, err)
	}

	return code, nil
}

// ValidateURL reports whether s is a URL with an explicit http or https
// scheme whose host is an IP address or a domain with a top-level domain.
// Single-label hosts such as localhost are rejected.
func ValidateURL(s string) bool {
	if validate.Var(s, "required,http_url") != nil {
		return false
	}

	u, err := url.Parse(s)
	if err != nil {
		return false
	}

	return validate.Var(u.Hostname(), "ip|fqdn") == nil
}

// ValidateShortCode reports whether code consists of 3 to 20 ASCII letters or digits.
func ValidateShortCode(code string) bool {
	return validate.Var(code, "required,alphanum,min=3,max=20") == nil
}

// ExpirationDate returns the moment the given number of minutes after from.
func ExpirationDate(from time.Time, minutes int) time.Time {
	return from.Add(time.Duration(minutes) * time.Minute)
}

// BaseURL returns the public base URL of a server listening on port.
func BaseURL(port int) string {
	return fmt.Sprintf("http://localhost:%d", port)
}

// FullShortURL joins the base URL and the short code.
func FullShortURL(baseURL, code string) string {
	return strings.TrimRight(baseURL, "/") + "/" + code
}
