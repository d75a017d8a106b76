package checkout

import (
	"context"
	"fmt"
	"time"
)

// ReplayGuard records which payment ids have already been presented so a
// confirmation cannot settle twice.
type ReplayGuard interface {
	Claim(ctx context.Context, paymentID, claimRef string) (bool, error)
	Release(ctx context.Context, paymentID, claimRef string) error
}

type paymentClaimer interface {
	ClaimPayment(ctx context.Context, paymentID, orderRef string, ttl time.Duration) (bool, error)
	ReleasePaymentClaim(ctx context.Context, paymentID, claimRef string) (bool, error)
}

type redisReplayGuard struct {
	client paymentClaimer
	ttl    time.Duration
}

// NewRedisReplayGuard claims payment ids with SET NX so the first attempt
// wins across every API instance.
func NewRedisReplayGuard(client paymentClaimer, ttl time.Duration) (ReplayGuard, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("replay ttl must be positive")
	}
	return &redisReplayGuard{client: client, ttl: ttl}, nil
}

func (g *redisReplayGuard) Claim(ctx context.Context, paymentID, claimRef string) (bool, error) {
	return g.client.ClaimPayment(ctx, paymentID, claimRef, g.ttl)
}

// Release is a no-op when the claim has expired and been taken by another
// attempt.
func (g *redisReplayGuard) Release(ctx context.Context, paymentID, claimRef string) error {
	_, err := g.client.ReleasePaymentClaim(ctx, paymentID, claimRef)
	return err
}
