// Package pacer paces and retries remote API calls.
//
// A Pacer hands out permission to start a call, sleeping between calls
// when the remote has signalled rate limiting. On retriable failures it
// backs off exponentially with jitter, honouring an explicit Retry-After
// hint when one was supplied.
package pacer

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/torviolento/fs.onedrivefs/fserrors"
)

// Paced is the function signature Call retries. It returns whether the
// call should be retried along with the error to return if not.
type Paced func() (bool, error)

// Pacer state
type Pacer struct {
	mu                 sync.Mutex
	minSleep           time.Duration // minimum sleep time
	maxSleep           time.Duration // maximum sleep time
	decayConstant      uint          // decay constant
	retries            int           // max number of retries
	pacer              chan struct{} // to pace the operations
	sleepTime          time.Duration // time to sleep for each transaction
	consecutiveRetries int           // number of consecutive retries
}

// Option configures a Pacer at construction time.
type Option func(*Pacer)

// MinSleep sets the minimum sleep between calls.
func MinSleep(t time.Duration) Option {
	return func(p *Pacer) { p.minSleep = t }
}

// MaxSleep caps the backoff sleep.
func MaxSleep(t time.Duration) Option {
	return func(p *Pacer) { p.maxSleep = t }
}

// DecayConstant sets how quickly the sleep time falls back to the
// minimum after errors stop. Bigger is slower, exponential.
func DecayConstant(decay uint) Option {
	return func(p *Pacer) { p.decayConstant = decay }
}

// Retries sets the retry ceiling for Call.
func Retries(retries int) Option {
	return func(p *Pacer) { p.retries = retries }
}

// New returns a Pacer with sensible defaults.
func New(opts ...Option) *Pacer {
	p := &Pacer{
		minSleep:      10 * time.Millisecond,
		maxSleep:      2 * time.Second,
		decayConstant: 2,
		retries:       3,
		pacer:         make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.sleepTime = p.minSleep
	// Put the first pacing token in
	p.pacer <- struct{}{}
	return p
}

// retryAfterError carries the server's explicit wait hint.
type retryAfterError struct {
	error
	retryAfter time.Duration
}

func (r *retryAfterError) Unwrap() error { return r.error }

func (r *retryAfterError) Retry() bool { return true }

// RetryAfterError wraps err with the duration the remote asked us to
// wait before trying again.
func RetryAfterError(err error, retryAfter time.Duration) error {
	if err == nil {
		err = errors.New("too many requests")
	}
	return &retryAfterError{error: err, retryAfter: retryAfter}
}

// beginCall waits for the pacing token and rearms the timer which will
// put it back after the current sleep interval.
func (p *Pacer) beginCall() {
	<-p.pacer
	p.mu.Lock()
	go func(t time.Duration) {
		time.Sleep(t)
		p.pacer <- struct{}{}
	}(p.sleepTime)
	p.mu.Unlock()
}

// endCall updates the pacing state after a call has finished.
func (p *Pacer) endCall(again bool, err error) {
	p.mu.Lock()
	if again {
		p.consecutiveRetries++
	} else {
		p.consecutiveRetries = 0
	}
	p.calculatePace(again, err)
	p.mu.Unlock()
}

// calculatePace implements truncated exponential backoff with
// randomisation on retries and exponential decay on success.
//
// Called with the lock held.
func (p *Pacer) calculatePace(again bool, err error) {
	if !again {
		p.sleepTime = (p.sleepTime<<p.decayConstant - p.sleepTime) >> p.decayConstant
		if p.sleepTime < p.minSleep {
			p.sleepTime = p.minSleep
		}
		return
	}
	var hinted *retryAfterError
	if errors.As(err, &hinted) && hinted.retryAfter > 0 {
		p.sleepTime = hinted.retryAfter
		if p.sleepTime > p.maxSleep {
			p.sleepTime = p.maxSleep
		}
		return
	}
	consecutiveRetries := p.consecutiveRetries
	if consecutiveRetries > 8 {
		consecutiveRetries = 8
	}
	// consecutiveRetries starts at 1 so ceiling is 2**(retries-1) * minSleep
	ceiling := p.minSleep << uint(consecutiveRetries-1)
	if ceiling > p.maxSleep {
		ceiling = p.maxSleep
	}
	// actual sleep is random in (ceiling/2, ceiling]
	p.sleepTime = ceiling/2 + time.Duration(rand.Int63n(int64(ceiling/2)+1))
}

// call implements Call but with settable retries.
func (p *Pacer) call(fn Paced, retries int) (err error) {
	var again bool
	for i := 0; i < retries; i++ {
		p.beginCall()
		again, err = fn()
		p.endCall(again, err)
		if !again {
			break
		}
	}
	if again {
		err = fserrors.RetryError(err)
	}
	return err
}

// Call paces fn and retries it while it reports that a retry is wanted,
// up to the retry ceiling. When retries are exhausted the error is
// wrapped so that it reports Retry() true to the layer above.
func (p *Pacer) Call(fn Paced) error {
	p.mu.Lock()
	retries := p.retries
	p.mu.Unlock()
	return p.call(fn, retries)
}

// CallNoRetry paces fn but runs it only once, wrapping the error if fn
// wanted a retry.
func (p *Pacer) CallNoRetry(fn Paced) error {
	return p.call(fn, 1)
}
