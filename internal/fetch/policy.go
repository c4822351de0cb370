package fetch

import (
	"time"

	"github.com/angelmondragon/boxoffice-backend/pkg/config"
)

const (
	defaultMaxRetries = 5
	defaultBaseDelay  = time.Second
	defaultMaxDelay   = 10 * time.Second
)

// Policy bounds a retry chain. Attempt 0 runs immediately; MaxRetries more
// attempts follow, each after an exponentially growing delay.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: defaultMaxRetries,
		BaseDelay:  defaultBaseDelay,
		MaxDelay:   defaultMaxDelay,
	}
}

// PolicyFromConfig fills zero values from the defaults.
func PolicyFromConfig(cfg config.FetchConfig) Policy {
	p := Policy{MaxRetries: cfg.MaxRetries, BaseDelay: cfg.BaseDelay, MaxDelay: cfg.MaxDelay}
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = defaultMaxDelay
	}
	return p
}

// Attempts is the total number of reads a chain may issue.
func (p Policy) Attempts() int {
	return p.MaxRetries + 1
}

// Delay is the wait after attempt n (0-based) fails: min(base*2^n, max).
func (p Policy) Delay(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	d := p.BaseDelay
	for i := 0; i < n; i++ {
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
		d *= 2
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}
