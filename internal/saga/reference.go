package saga

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/safarhub/ride-booking/internal/domain"
	"github.com/safarhub/ride-booking/internal/repository"
)

const referenceAttempts = 10

// ErrReferenceExhausted is returned when every candidate code, including the
// timestamp fallback, collided with an existing booking.
var ErrReferenceExhausted = fmt.Errorf("could not generate a unique reference code")

// ReferenceGenerator produces globally unique 8-digit booking codes.
// Randomness and the clock are injectable so collisions can be forced in
// tests.
type ReferenceGenerator struct {
	repo    repository.BookingRepository
	randInt func() int64
	now     func() time.Time
}

// NewReferenceGenerator creates a generator backed by the booking repository
func NewReferenceGenerator(repo repository.BookingRepository) *ReferenceGenerator {
	return &ReferenceGenerator{
		repo:    repo,
		randInt: func() int64 { return rand.Int63n(100000000) },
		now:     time.Now,
	}
}

// Generate tries up to ten random 8-digit codes, checking each for
// collision, then falls back to the low eight digits of the current
// timestamp. The fallback is checked once; if it also collides the
// generator gives up and the saga fails.
func (g *ReferenceGenerator) Generate(ctx context.Context) (string, error) {
	for i := 0; i < referenceAttempts; i++ {
		code := fmt.Sprintf("%08d", g.randInt())
		free, err := g.isFree(ctx, code)
		if err != nil {
			return "", err
		}
		if free {
			return code, nil
		}
	}

	code := fmt.Sprintf("%08d", g.now().Unix()%100000000)
	free, err := g.isFree(ctx, code)
	if err != nil {
		return "", err
	}
	if !free {
		return "", ErrReferenceExhausted
	}
	return code, nil
}

func (g *ReferenceGenerator) isFree(ctx context.Context, code string) (bool, error) {
	_, err := g.repo.GetByReferenceCode(ctx, code)
	if err == nil {
		return false, nil
	}
	if domain.IsNotFoundError(err) {
		return true, nil
	}
	return false, fmt.Errorf("failed to check reference code: %w", err)
}
