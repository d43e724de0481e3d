package common

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Analysis struct {
	allowed bool          // If the request is allowed
	wait    time.Duration // The minimal time to wait before the request is allowed
}

// Every loop in the process funnels its requests through the one
// rate limiter, so the mutable state lives behind a mutex
type RateLimiter struct {
	mu                   sync.Mutex
	restrictions         []Restriction          // Restrictions to consider
	history              []time.Time            // History of requests
	duration             time.Duration          // Min duration to wait for all restrictions to be lifted
	pendingVitalRequests map[uuid.UUID]struct{} // Set of pending vital requests
	stopwatch            Stopwatch
}

func NewRateLimiter(restrictions []Restriction) RateLimiter {
	rl := RateLimiter{}
	rl.restrictions = make([]Restriction, len(restrictions))
	copy(rl.restrictions, restrictions)
	rl.pendingVitalRequests = map[uuid.UUID]struct{}{}
	// Duration
	for i := 0; i < len(restrictions); i++ {
		if restrictions[i].Duration > rl.duration {
			rl.duration = restrictions[i].Duration
		}
	}
	// Initialise a stopwatch
	rl.stopwatch.Timeout = rl.duration

	return rl
}

// Decide if request is allowed.
// If the request is not allowed but vital, execution
// will block here until it is allowed
func (rl *RateLimiter) Allowed(vital bool, allowed chan bool) {

	// Give this request a unique identifier
	thisuuid := uuid.New()
	for {
		verdict, wait, done := rl.decide(thisuuid, vital)
		if done {
			allowed <- verdict
			return
		}
		// Sleep outside the lock, other requests keep flowing
		log.Warn().Msg(fmt.Sprint("Vital request ", thisuuid, " delayed ", wait.Seconds(), " seconds"))
		time.Sleep(wait)
	}
}

// One pass over the limiter state under the lock. Returns done false
// when the request is vital and has to wait before trying again
func (rl *RateLimiter) decide(thisuuid uuid.UUID, vital bool) (verdict bool, wait time.Duration, done bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Trim history first
	rl.trim()
	// Check if the restrictions allow this request
	analysis := rl.analyse()
	if analysis.allowed {
		if vital || len(rl.pendingVitalRequests) == 0 {
			delete(rl.pendingVitalRequests, thisuuid)
			// Include this request in the history as it is allowed
			rl.history = append(rl.history, time.Now())
			return true, 0, true
		}
		// Request is not vital and the vital queue is not empty,
		// so we have to reject the request
		log.Warn().Msg("Rejecting non vital request because restrictions allow it but vital queue is not empty")
		return false, 0, true
	}
	if !vital {
		log.Warn().Msg("Rejecting a non vital request because restrictions do not allow it")
		return false, 0, true
	}
	// Request is vital and not allowed, so we need
	// to add it to the queue if not there
	if _, ok := rl.pendingVitalRequests[thisuuid]; !ok {
		rl.pendingVitalRequests[thisuuid] = struct{}{}
	}
	return false, analysis.wait, false
}

func (rl *RateLimiter) ReceivedRateLimit() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.stopwatch.Start()
}

// Trim the current history, leaving only the requests
// that are young enough to be affected by at least one restriction
func (rl *RateLimiter) trim() {
	currentTime := time.Now()
	// Find the index from which we need to keep the history.
	// Start searching at the end of the slice.
	// Times are stored in chronological order
	index := 0
	for i := len(rl.history) - 1; i >= 0; i-- {
		if currentTime.Sub(rl.history[i]) > rl.duration {
			index = i + 1
			break
		}
	}
	rl.history = rl.history[index:]
}

func (rl *RateLimiter) analyse() Analysis {

	// Perform an analysis for each of the restrictions
	analyses := make([]Analysis, 0)
	for _, restriction := range rl.restrictions {
		analyses = append(analyses, restriction.Analyse(rl.history))
	}

	// Merge the analyses and return
	var wait time.Duration = 0
	allowed := true
	for _, analysis := range analyses {
		allowed = allowed && analysis.allowed
		if analysis.wait > wait {
			wait = analysis.wait
		}
	}
	return Analysis{allowed, wait}
}
