package pipeline

import (
	"context"
	"sync"
)

// Task is a download running on its own goroutine.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	events chan Event

	mu     sync.Mutex
	queue  []Event
	closed bool
	wake   chan struct{}
	result *Result
	err    error
}

// Start runs req in the background. The task stops when ctx is done or Cancel
// is called.
func (p *Pipeline) Start(ctx context.Context, req Request) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		cancel: cancel,
		done:   make(chan struct{}),
		events: make(chan Event),
		wake:   make(chan struct{}, 1),
	}
	go t.pump()
	go func() {
		defer cancel()
		res, err := p.Run(ctx, req, t.push)
		t.mu.Lock()
		t.result, t.err = res, err
		t.closed = true
		t.mu.Unlock()
		t.signal()
		close(t.done)
	}()
	return t
}

// push queues e without blocking the download.
func (t *Task) push(e Event) {
	t.mu.Lock()
	t.queue = append(t.queue, e)
	t.mu.Unlock()
	t.signal()
}

func (t *Task) signal() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// pump forwards queued events in order and closes the channel after the last.
func (t *Task) pump() {
	for {
		t.mu.Lock()
		if len(t.queue) == 0 {
			closed := t.closed
			t.mu.Unlock()
			if closed {
				close(t.events)
				return
			}
			<-t.wake
			continue
		}
		e := t.queue[0]
		t.queue = t.queue[1:]
		t.mu.Unlock()
		t.events <- e
	}
}

// Events delivers every event in order and is closed after the final done or
// error event. Readers should drain it.
func (t *Task) Events() <-chan Event { return t.events }

// Done is closed when the download has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the download finishes and returns its outcome.
func (t *Task) Wait() (*Result, error) {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result, t.err
}

// Cancel stops the download at the next segment boundary or pending request.
func (t *Task) Cancel() { t.cancel() }
