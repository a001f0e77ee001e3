// Package stream consumes an incremental model-output stream and exposes
// its completion and error boundaries.
//
// The transport guarantees fragment order (one ordered channel per
// conversation turn); this package only accumulates. Partial output from a
// broken stream is still useful context, so it is finalized and handed on
// rather than discarded.
package stream

import (
	"context"
	"strings"

	"contentpilot/internal/logging"

	"go.uber.org/zap"
)

// Terminator is the distinguished end-of-stream sentinel some transports
// send in-band. Anything arriving after it is ignored.
const Terminator = "[DONE]"

// Outcome is the finalized result of one streamed response.
type Outcome struct {
	// Text is everything accumulated, complete or not.
	Text string

	// Partial is set when the stream ended on an error or cancellation
	// instead of a clean terminal.
	Partial bool

	// Cancelled is set when the consumer's context ended the stream.
	// Cancelled outcomes must not go through action extraction: the turn
	// was abandoned, not answered.
	Cancelled bool

	// Err is the transport error or context error, nil on clean completion.
	Err error
}

// Consume accumulates fragments until the fragment channel closes, the
// in-band Terminator arrives, the transport reports an error, or ctx is
// cancelled. Fragments are processed strictly in arrival order.
//
// The (<-chan string, <-chan error) pair is the streaming contract every
// provider client in internal/llm returns.
func Consume(ctx context.Context, fragments <-chan string, errs <-chan error) Outcome {
	log := logging.L(logging.CategoryStream)
	var sb strings.Builder

	for {
		// Fragments that already arrived always land before an error is
		// taken, so a racing error signal cannot eat delivered text.
		select {
		case frag, ok := <-fragments:
			if !ok {
				if err := pendingErr(errs); err != nil {
					log.Warn("stream ended with error",
						zap.Int("accumulated", sb.Len()),
						zap.Error(err))
					return Outcome{Text: sb.String(), Partial: true, Err: err}
				}
				log.Debug("stream complete", zap.Int("len", sb.Len()))
				return Outcome{Text: sb.String()}
			}
			if frag == Terminator {
				log.Debug("stream terminator received", zap.Int("len", sb.Len()))
				return Outcome{Text: sb.String()}
			}
			sb.WriteString(frag)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			log.Warn("stream cancelled",
				zap.Int("accumulated", sb.Len()),
				zap.Error(ctx.Err()))
			return Outcome{Text: sb.String(), Partial: true, Cancelled: true, Err: ctx.Err()}

		case frag, ok := <-fragments:
			if !ok {
				// Channel closed: clean end unless the transport left an
				// error behind.
				if err := pendingErr(errs); err != nil {
					log.Warn("stream ended with error",
						zap.Int("accumulated", sb.Len()),
						zap.Error(err))
					return Outcome{Text: sb.String(), Partial: true, Err: err}
				}
				log.Debug("stream complete", zap.Int("len", sb.Len()))
				return Outcome{Text: sb.String()}
			}
			if frag == Terminator {
				log.Debug("stream terminator received", zap.Int("len", sb.Len()))
				return Outcome{Text: sb.String()}
			}
			sb.WriteString(frag)

		case err, ok := <-errs:
			if !ok {
				// Error channel closed without an error; keep draining
				// fragments until their channel closes too.
				errs = nil
				continue
			}
			if err == nil {
				continue
			}
			log.Warn("stream error mid-flight",
				zap.Int("accumulated", sb.Len()),
				zap.Error(err))
			return Outcome{Text: sb.String(), Partial: true, Err: err}
		}
	}
}

// pendingErr drains at most one error without blocking.
func pendingErr(errs <-chan error) error {
	if errs == nil {
		return nil
	}
	select {
	case err := <-errs:
		return err
	default:
		return nil
	}
}
