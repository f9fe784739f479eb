package canbus

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.einride.tech/can"

	"github.com/san-kum/pidloop/internal/loop"
)

var ErrQueueFull = errors.New("canbus: transmit queue full")

// queuedCycles bounds how many cycles of frames may wait for the bus.
const queuedCycles = 64

// Publisher is a loop hook that transmits every published output sample.
// Frames are queued to a writer goroutine; when the queue is full the cycle's
// frames are dropped and counted as failed.
type Publisher struct {
	codec   Codec
	w       FrameWriter
	timeout time.Duration
	log     *slog.Logger

	mu     sync.Mutex
	queue  chan []can.Frame
	closed bool
	done   chan struct{}

	sent   atomic.Uint64
	failed atomic.Uint64
}

func NewPublisher(codec Codec, w FrameWriter, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	p := &Publisher{
		codec:   codec,
		w:       w,
		timeout: 5 * time.Millisecond,
		log:     log,
		queue:   make(chan []can.Frame, queuedCycles),
		done:    make(chan struct{}),
	}
	go p.writeLoop()
	return p
}

func (p *Publisher) Sent() uint64   { return p.sent.Load() }
func (p *Publisher) Failed() uint64 { return p.failed.Load() }

func (p *Publisher) Func(ctx loop.HookCtx) {
	if ctx.Pos != loop.HookPosPublished || ctx.Output == nil || len(ctx.Output.Channels) == 0 {
		return
	}
	frames := make([]can.Frame, len(ctx.Output.Channels))
	for i, out := range ctx.Output.Channels {
		frames[i] = p.codec.Encode(i, out, ctx.Cycle)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- frames:
	default:
		p.fail(uint64(len(frames)), frames[0].ID, ErrQueueFull)
	}
}

func (p *Publisher) writeLoop() {
	defer close(p.done)
	for frames := range p.queue {
		for _, f := range frames {
			wctx, cancel := context.WithTimeout(context.Background(), p.timeout)
			err := p.w.WriteFrame(wctx, f)
			cancel()

			if err != nil {
				p.fail(1, f.ID, err)
				continue
			}
			p.sent.Add(1)
		}
	}
}

func (p *Publisher) fail(n uint64, id uint32, err error) {
	// Log the first failure and then roughly every 100th.
	before := p.failed.Add(n) - n
	after := before + n
	if before == 0 || after/100 != before/100 {
		p.log.Warn("can write failed", "id", id, "failures", after, "err", err)
	}
}

// Close transmits everything already queued, then closes the writer.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	<-p.done
	return p.w.Close()
}
