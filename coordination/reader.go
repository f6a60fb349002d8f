package coordination

import (
	"context"
	"time"

	"github.com/danielglennross/go-dcb/delay"
	"github.com/danielglennross/go-dcb/schema"
)

// blockTimeout bounds each blocking tail read so shutdown is observable
// within roughly this window.
const blockTimeout = time.Second

// retryBackoff is the brief pause after a transport error before the next
// tail attempt.
const retryBackoff = 200 * time.Millisecond

// GetLastPosition returns the cursor the next tail should read after. The
// subsystem's own cached state is the cursor of truth, so this is supplied
// by the caller rather than tracked by the Reader itself.
type GetLastPosition func() string

// OnEntries is invoked once per non-empty batch read from the log.
type OnEntries func(entries []LogEntry)

// OnError surfaces a transport failure that is not a consequence of
// shutdown. It never stops the Reader's loop.
type OnError func(err error)

// Reader continuously tails one log key on a dedicated connection,
// handing batches to OnEntries and recovering from transport errors with a
// brief back-off.
type Reader struct {
	store           Log
	key             string
	getLastPosition GetLastPosition
	onEntries       OnEntries
	onError         OnError
	logger          schema.Logger
}

// New builds a Reader over store for key.
func New(store Log, key string, getLastPosition GetLastPosition, onEntries OnEntries, onError OnError, logger schema.Logger) *Reader {
	if onError == nil {
		onError = func(error) {}
	}
	if logger == nil {
		logger = schema.NopLogger{}
	}
	return &Reader{
		store:           store,
		key:             key,
		getLastPosition: getLastPosition,
		onEntries:       onEntries,
		onError:         onError,
		logger:          logger,
	}
}

// Run blocks, tailing the log until ctx is cancelled. On shutdown, errors
// that are a direct consequence of the forced disconnection are suppressed.
func (r *Reader) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		cursor := r.getLastPosition()
		entries, err := r.store.Tail(ctx, r.key, cursor, blockTimeout)
		if err != nil {
			if ctx.Err() != nil {
				// Shutdown is in progress; the error is a consequence of
				// the forced disconnection, not a genuine transport fault.
				return
			}
			r.logger.Warn("log tail failed", "key", r.key, "error", err)
			r.onError(err)
			if !delay.Sleep(ctx, retryBackoff) {
				return
			}
			continue
		}

		if len(entries) > 0 {
			r.onEntries(entries)
		}
	}
}
