/*
Package scan turns decoded QR payloads into ledger earns.

PURPOSE:
  A camera stream produces candidate codes continuously; a point award
  must happen exactly once. The Scanner sits between the two:

  - Exactly one code matches: the configured bin code, compared
    verbatim. Everything else is rejected with a transient notice
    while decoding continues.
  - An accepted scan earns the configured amount and LATCHES the
    scanner. Further matches are ignored until Reset, so a code held
    in front of the camera cannot award twice.

RESOURCE SCOPE:
  Run owns the camera stream for its whole lifetime: acquire on entry,
  release on every exit path (cancellation, decode error, denied
  access). A denied camera raises a persistent notice because nothing
  clears on its own - the operator has to grant access.

The Scanner is per-session; the latch dies with it.

SEE ALSO:
  - ledger/engine.go: Where the earn lands
  - notice/notice.go: Transient vs persistent surfacing
*/
package scan

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/binrewards/loyalty-engine/ledger"
	"github.com/binrewards/loyalty-engine/metrics"
	"github.com/binrewards/loyalty-engine/notice"
)

// =============================================================================
// DECODING SOURCE
// =============================================================================

// ErrCameraDenied is returned by a Decoder when the camera cannot be
// acquired because access was refused.
var ErrCameraDenied = errors.New("camera access denied")

// Decoder acquires a camera and turns its frames into QR payloads.
type Decoder interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream yields decoded payloads one at a time. Next blocks until a
// frame decodes, the stream ends (io.EOF), or ctx is cancelled.
type Stream interface {
	Next(ctx context.Context) (string, error)
	Close() error
}

// =============================================================================
// SCANNER
// =============================================================================

// Result classifies a submitted code.
type Result string

const (
	ResultAccepted Result = "accepted"
	ResultRejected Result = "rejected"
	ResultLatched  Result = "latched"
)

const earnDescription = "QR Bin Scan"

type Scanner struct {
	engine  *ledger.Engine
	notices *notice.Center
	log     zerolog.Logger
	binCode string
	reward  ledger.Points

	mu      sync.Mutex
	latched bool
}

func New(engine *ledger.Engine, notices *notice.Center, binCode string,
	reward ledger.Points, log zerolog.Logger) *Scanner {
	return &Scanner{
		engine:  engine,
		notices: notices,
		log:     log,
		binCode: binCode,
		reward:  reward,
	}
}

// Submit classifies one decoded payload and, on the first match, earns
// the scan reward. The latch is taken under the same lock as the check,
// so concurrent submissions of the matching code award at most once.
func (s *Scanner) Submit(code string) (Result, ledger.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latched {
		metrics.ScansTotal.WithLabelValues(string(ResultLatched)).Inc()
		return ResultLatched, s.engine.Snapshot()
	}

	if code != s.binCode {
		metrics.ScansTotal.WithLabelValues(string(ResultRejected)).Inc()
		s.notices.Publish(notice.KindError, "Invalid code. Scan the QR on a participating bin.")
		return ResultRejected, s.engine.Snapshot()
	}

	s.latched = true
	snap, err := s.engine.Earn(s.reward, earnDescription)
	if err != nil {
		// Only a non-positive configured amount can land here.
		s.latched = false
		s.log.Error().Err(err).Msg("scan earn rejected")
		return ResultRejected, s.engine.Snapshot()
	}

	metrics.ScansTotal.WithLabelValues(string(ResultAccepted)).Inc()
	metrics.PointsEarnedTotal.WithLabelValues("scan").Add(float64(s.reward))
	s.notices.Publish(notice.KindSuccess, "Bin scan verified! Points awarded.")
	s.log.Info().Int64("amount", int64(s.reward)).
		Int64("balance", int64(snap.Balance)).Msg("bin scan accepted")
	return ResultAccepted, snap
}

// Reset releases the latch so the next matching scan earns again.
func (s *Scanner) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latched = false
}

// Latched reports whether an accepted scan is awaiting Reset.
func (s *Scanner) Latched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latched
}

// Run drives the scanner from a live decoder until the stream ends or
// ctx is cancelled. The stream is always released, whatever the exit
// path. Decoding keeps going after rejections and after the latch
// engages; only the award is suppressed.
func (s *Scanner) Run(ctx context.Context, decoder Decoder) error {
	stream, err := decoder.Open(ctx)
	if err != nil {
		if errors.Is(err, ErrCameraDenied) {
			s.notices.PublishPersistent(notice.KindError,
				"Camera access denied. Enable camera permissions to scan.")
		}
		return err
	}
	defer stream.Close()

	for {
		code, err := stream.Next(ctx)
		switch {
		case err == nil:
			s.Submit(code)
		case errors.Is(err, io.EOF), errors.Is(err, context.Canceled):
			return nil
		default:
			return err
		}
	}
}
