// Package shortcode generates random short codes and checks them for
// uniqueness against persisted state.
package shortcode

import (
	"context"
	"errors"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// alphabet is the 62-character alphanumeric set short codes are drawn from.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const (
	DefaultLength      = 6
	DefaultMaxAttempts = 10
)

// ErrAttemptsExhausted is returned when the maximum number of attempts
// to generate a unique short code is exceeded.
var ErrAttemptsExhausted = errors.New("short code generation attempts exhausted")

// ExistsFunc reports whether a candidate short code is already taken.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// Generator produces fixed-length alphanumeric short codes.
type Generator struct {
	length      int
	maxAttempts int
}

func New(length, maxAttempts int) *Generator {
	if length <= 0 {
		length = DefaultLength
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Generator{
		length:      length,
		maxAttempts: maxAttempts,
	}
}

// Random returns a random short code without any uniqueness guarantee.
func (g *Generator) Random() (string, error) {
	const op = "shortcode.Generator.Random"

	code, err := gonanoid.Generate(alphabet, g.length)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate short code: %w", op, err)
	}

	return code, nil
}

// Unique returns a random short code for which exists reports false.
// It retries up to the configured attempt cap and returns
// ErrAttemptsExhausted once the cap is hit.
func (g *Generator) Unique(ctx context.Context, exists ExistsFunc) (string, error) {
	const op = "shortcode.Generator.Unique"

	for i := 0; i < g.maxAttempts; i++ {
		code, err := g.Random()
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}

		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("%s: failed to check short code existence: %w", op, err)
		}

		if !taken {
			return code, nil
		}
	}

	return "", fmt.Errorf("%s: %w", op, ErrAttemptsExhausted)
}
