// Package ratelimit implements per-tier request admission keyed by client.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"travel-gateway/pkg/metrics"
)

// Tier names used by the gateway routes
const (
	TierGeneral = "general"
	TierAI      = "ai"
	TierSearch  = "search"
)

// Algorithms accepted by NewStrategy
const (
	FixedWindow   = "fixed_window"
	SlidingWindow = "sliding_window"
	TokenBucket   = "token_bucket"
)

// Tier is a named policy with its own ceiling and window.
type Tier struct {
	Name    string        `mapstructure:"name"`
	Limit   int           `mapstructure:"limit"`
	Window  time.Duration `mapstructure:"window"`
	Message string        `mapstructure:"message"`
}

// DefaultTiers returns the stock tier set.
func DefaultTiers() map[string]Tier {
	return map[string]Tier{
		TierGeneral: {
			Name:    TierGeneral,
			Limit:   100,
			Window:  15 * time.Minute,
			Message: "Too many requests, please try again later.",
		},
		TierAI: {
			Name:    TierAI,
			Limit:   10,
			Window:  time.Minute,
			Message: "Too many AI requests, please try again later.",
		},
		TierSearch: {
			Name:    TierSearch,
			Limit:   30,
			Window:  time.Minute,
			Message: "Too many search requests, please try again later.",
		},
	}
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Bypassed  bool
	Tier      string
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the whole number of seconds until the window resets, at least one.
func (d Decision) RetryAfter(now time.Time) int {
	secs := int(math.Ceil(d.ResetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// Strategy admits or rejects one request for key under tier at now.
// Rejected requests must not be counted.
type Strategy interface {
	Take(ctx context.Context, key string, tier Tier, now time.Time) (Decision, error)
}

// NewStrategy builds the strategy named by algorithm. store is only used by
// the fixed window.
func NewStrategy(algorithm string, store CounterStore, maxKeys int) (Strategy, error) {
	switch algorithm {
	case "", FixedWindow:
		if store == nil {
			return nil, fmt.Errorf("fixed window strategy requires a counter store")
		}
		return NewFixedWindow(store), nil
	case SlidingWindow:
		return NewSlidingWindow(), nil
	case TokenBucket:
		return NewTokenBuckets(maxKeys)
	default:
		return nil, fmt.Errorf("unknown rate limit algorithm: %s", algorithm)
	}
}

// Sweeper is implemented by strategies that keep per-key state in process
// memory and need idle keys dropped.
type Sweeper interface {
	Sweep(now time.Time) int
}

type Limiter struct {
	tiers     map[string]Tier
	allowlist map[string]struct{}
	strategy  Strategy
	clock     clock.Clock
	logger    *logrus.Logger
}

func NewLimiter(tiers map[string]Tier, allowlist []string, strategy Strategy, clk clock.Clock, logger *logrus.Logger) *Limiter {
	if clk == nil {
		clk = clock.New()
	}
	allowed := make(map[string]struct{}, len(allowlist))
	for _, ip := range allowlist {
		allowed[ip] = struct{}{}
	}
	named := make(map[string]Tier, len(tiers))
	for name, tier := range tiers {
		tier.Name = name
		named[name] = tier
	}
	return &Limiter{
		tiers:     named,
		allowlist: allowed,
		strategy:  strategy,
		clock:     clk,
		logger:    logger,
	}
}

func (l *Limiter) Tier(name string) (Tier, bool) {
	tier, ok := l.tiers[name]
	return tier, ok
}

func (l *Limiter) Now() time.Time {
	return l.clock.Now()
}

// Allow charges one request for client against the named tier. It never
// returns an error: store failures admit the request.
func (l *Limiter) Allow(ctx context.Context, tierName, client string) Decision {
	if _, ok := l.allowlist[client]; ok {
		return Decision{Allowed: true, Bypassed: true, Tier: tierName}
	}

	tier, ok := l.tiers[tierName]
	if !ok || tier.Limit <= 0 || tier.Window <= 0 {
		l.logger.WithField("tier", tierName).Warn("Unknown rate limit tier, admitting request")
		return Decision{Allowed: true, Bypassed: true, Tier: tierName}
	}

	key := fmt.Sprintf("%s:%s", tier.Name, client)
	decision, err := l.strategy.Take(ctx, key, tier, l.clock.Now())
	if err != nil {
		l.logger.WithError(err).WithFields(logrus.Fields{
			"tier":   tier.Name,
			"client": client,
		}).Warn("Rate limit check failed, admitting request")
		return Decision{Allowed: true, Tier: tier.Name, Limit: tier.Limit, Remaining: tier.Limit}
	}

	if !decision.Allowed {
		metrics.RateLimitRejections.WithLabelValues(tier.Name).Inc()
	}
	return decision
}

// Run sweeps the strategy every interval until ctx is done. Strategies
// without in-process state return immediately.
func (l *Limiter) Run(ctx context.Context, every time.Duration) {
	sweeper, ok := l.strategy.(Sweeper)
	if !ok {
		return
	}
	ticker := l.clock.Ticker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := sweeper.Sweep(l.clock.Now()); removed > 0 {
				l.logger.WithField("removed", removed).Debug("Swept idle rate limit keys")
			}
		}
	}
}
