package notify

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrQueueFull is returned by Queue.Send when the buffer has no room.
	ErrQueueFull = errors.New("notify: queue full")
	// ErrQueueClosed is returned by Queue.Send after Close.
	ErrQueueClosed = errors.New("notify: queue closed")
)

const defaultSendTimeout = 30 * time.Second

// QueueConfig controls asynchronous delivery.
type QueueConfig struct {
	BufferSize int
	Workers    int
	// SendTimeout bounds each delivery. Zero means 30s.
	SendTimeout time.Duration
	// OnError is called from a worker for every failed delivery.
	OnError func(ctx context.Context, msg Message, err error)
}

type job struct {
	ctx context.Context
	msg Message
}

// Queue is a Sender that returns as soon as a message is buffered and
// delivers it from background workers. Delivery contexts are detached from
// the caller's cancellation but keep its values.
type Queue struct {
	sender Sender
	cfg    QueueConfig
	ch     chan job
	done   chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	idle    *sync.Cond
	pending int
	closed  bool

	closeOnce sync.Once
}

// NewQueue starts cfg.Workers goroutines delivering through sender.
func NewQueue(sender Sender, cfg QueueConfig) *Queue {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}

	q := &Queue{
		sender: sender,
		cfg:    cfg,
		ch:     make(chan job, cfg.BufferSize),
		done:   make(chan struct{}),
	}
	q.idle = sync.NewCond(&q.mu)
	q.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go q.run()
	}
	return q
}

// Send buffers msg without waiting for delivery.
func (q *Queue) Send(ctx context.Context, msg Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- job{ctx: context.WithoutCancel(ctx), msg: msg}:
		q.pending++
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *Queue) run() {
	defer q.wg.Done()

	for {
		select {
		case j := <-q.ch:
			q.deliver(j)
		case <-q.done:
			// drain what was accepted before Close
			for {
				select {
				case j := <-q.ch:
					q.deliver(j)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) deliver(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, q.cfg.SendTimeout)
	err := q.sender.Send(ctx, j.msg)
	cancel()
	if err != nil && q.cfg.OnError != nil {
		q.cfg.OnError(j.ctx, j.msg, err)
	}

	q.mu.Lock()
	q.pending--
	if q.pending == 0 {
		q.idle.Broadcast()
	}
	q.mu.Unlock()
}

// Flush blocks until every buffered message has been delivered or failed.
func (q *Queue) Flush() {
	if q == nil {
		return
	}
	q.mu.Lock()
	for q.pending > 0 {
		q.idle.Wait()
	}
	q.mu.Unlock()
}

// Close stops accepting messages and waits for buffered ones to finish.
func (q *Queue) Close() {
	if q == nil {
		return
	}
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		close(q.done)
		q.wg.Wait()
	})
}
