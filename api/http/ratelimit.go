package http

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/corkboard-io/corkboard/internal/service"
	"github.com/corkboard-io/corkboard/internal/util"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const (
	limiterSweepInterval = 5 * time.Minute
	limiterIdleTimeout   = 10 * time.Minute
)

var errRateLimited = errors.New("too many requests")

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen int64
}

// RateLimiter is a per client ip token bucket.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	clients sync.Map
	done    chan struct{}
	once    sync.Once
}

// NewRateLimiter allows perSecond requests per client with bursts of burst. A
// non-positive perSecond disables limiting.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		limit: rate.Limit(perSecond),
		burst: burst,
		done:  make(chan struct{}),
	}
	if perSecond <= 0 {
		rl.limit = rate.Inf
	}
	if rl.burst < 1 {
		rl.burst = 1
	}
	go rl.sweep()
	return rl
}

func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case now := <-ticker.C:
			rl.clients.Range(func(key, value interface{}) bool {
				cl := value.(*clientLimiter)
				if now.Sub(time.Unix(0, atomic.LoadInt64(&cl.lastSeen))) > limiterIdleTimeout {
					rl.clients.Delete(key)
				}
				return true
			})
		}
	}
}

// Stop ends the background sweep.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	now := time.Now().UnixNano()
	value, _ := rl.clients.LoadOrStore(ip, &clientLimiter{
		limiter:  rate.NewLimiter(rl.limit, rl.burst),
		lastSeen: now,
	})
	cl := value.(*clientLimiter)
	atomic.StoreInt64(&cl.lastSeen, now)
	return cl.limiter
}

// Handler rejects requests over the limit with 429 and a Retry-After header.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reservation := rl.limiter(util.RemoteIP(r)).Reserve()
		if !reservation.OK() {
			service.NewAPIError(http.StatusTooManyRequests, errRateLimited, "").BindHTTPRequest(r)
			return
		}
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			service.NewAPIError(http.StatusTooManyRequests, errRateLimited, "").BindHTTPRequest(r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
