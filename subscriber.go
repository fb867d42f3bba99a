package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"kosmos-worm/server/internal/net/proto"
	"kosmos-worm/server/logging"
)

// SubscriberConn is the subset of *websocket.Conn a session writer needs.
type SubscriberConn interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type outboundFrame struct {
	kind        string
	messageType int
	data        []byte
}

// subscriber owns one session's outbound queue and the goroutine that drains
// it onto the connection.
type subscriber struct {
	id    string
	conn  SubscriberConn
	codec proto.Codec
	clock logging.Clock

	queue        chan outboundFrame
	done         chan struct{}
	closeOnce    sync.Once
	writeWait    time.Duration
	pingInterval time.Duration
	onFailure    func(id string, err error)

	dropMu  sync.Mutex
	dropped uint64
}

type subscriberOptions struct {
	QueueSize    int
	WriteWait    time.Duration
	PingInterval time.Duration
	Clock        logging.Clock
	OnFailure    func(id string, err error)
}

func newSubscriber(id string, conn SubscriberConn, codec proto.Codec, opts subscriberOptions) *subscriber {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultSendQueue
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = writeWait
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = pingPeriod
	}
	if opts.Clock == nil {
		opts.Clock = logging.ClockFunc(time.Now)
	}
	return &subscriber{
		id:           id,
		conn:         conn,
		codec:        codec,
		clock:        opts.Clock,
		queue:        make(chan outboundFrame, opts.QueueSize),
		done:         make(chan struct{}),
		writeWait:    opts.WriteWait,
		pingInterval: opts.PingInterval,
		onFailure:    opts.OnFailure,
	}
}

func (s *subscriber) start() {
	go s.writePump()
}

// enqueue offers a frame without blocking. It reports false when the queue
// is full or the subscriber has been closed.
func (s *subscriber) enqueue(frame outboundFrame) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.queue <- frame:
		return true
	default:
		return false
	}
}

// recordDrop returns the running count of dropped frames.
func (s *subscriber) recordDrop() uint64 {
	s.dropMu.Lock()
	defer s.dropMu.Unlock()
	s.dropped++
	return s.dropped
}

func (s *subscriber) capacity() int {
	return cap(s.queue)
}

func (s *subscriber) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Close stops the writer and closes the connection. Safe to call repeatedly.
func (s *subscriber) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.conn != nil {
			s.conn.Close()
		}
	})
}

func (s *subscriber) writePump() {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case frame := <-s.queue:
			s.conn.SetWriteDeadline(s.clock.Now().Add(s.writeWait))
			if err := s.conn.WriteMessage(frame.messageType, frame.data); err != nil {
				s.fail(err)
				return
			}
		case <-ticker.C:
			deadline := s.clock.Now().Add(s.writeWait)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				s.fail(err)
				return
			}
		}
	}
}

func (s *subscriber) fail(err error) {
	if s.closed() {
		return
	}
	if s.onFailure != nil {
		s.onFailure(s.id, err)
		return
	}
	s.Close()
}

func frameMessageType(codec proto.Codec) int {
	if codec == proto.CodecMsgpack {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
