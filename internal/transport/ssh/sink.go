package ssh

import (
	"errors"
	"io"
	"sync"

	gossh "golang.org/x/crypto/ssh"
)

// sinkBuffer bounds how many pending lines a slow client can queue before
// broadcasts to it start being dropped.
const sinkBuffer = 64

var (
	errSinkClosed   = errors.New("sink closed")
	errSlowConsumer = errors.New("slow consumer, line dropped")
)

// channelSink adapts an SSH channel to core.Sink. Writes go through a single
// writer goroutine fed by a bounded queue: SendLine never blocks on the remote
// peer, so a stalled client cannot stall the broadcaster that borrowed this
// sink. Enqueued payloads are written in FIFO order, which preserves the
// per-sender ordering the core relies on.
type channelSink struct {
	ch   gossh.Channel
	out  chan string
	done chan struct{}
	once sync.Once
}

func newChannelSink(ch gossh.Channel) *channelSink {
	return &channelSink{
		ch:   ch,
		out:  make(chan string, sinkBuffer),
		done: make(chan struct{}),
	}
}

// SendLine implements core.Sink. The rendering matches the interactive
// protocol: move off the prompt line, print the message, repaint the prompt.
func (s *channelSink) SendLine(line string) error {
	return s.enqueue("\r\n" + line + "\r\n> ")
}

// prompt repaints the input prompt, used after input that produced no output.
func (s *channelSink) prompt() {
	_ = s.enqueue("> ")
}

// raw enqueues a payload verbatim (welcome banner, screen clear).
func (s *channelSink) raw(payload string) {
	_ = s.enqueue(payload)
}

func (s *channelSink) enqueue(payload string) error {
	select {
	case <-s.done:
		return errSinkClosed
	default:
	}
	select {
	case s.out <- payload:
		return nil
	case <-s.done:
		return errSinkClosed
	default:
		return errSlowConsumer
	}
}

// run drains the queue onto the channel until the sink closes or a write
// fails. Runs in its own goroutine, one per connection.
func (s *channelSink) run() {
	for {
		select {
		case payload := <-s.out:
			if _, err := io.WriteString(s.ch, payload); err != nil {
				s.close()
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *channelSink) close() {
	s.once.Do(func() { close(s.done) })
}
