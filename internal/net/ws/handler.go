package ws

import (
	"log"
	nethttp "net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"kosmos-worm/server"
	"kosmos-worm/server/internal/net/proto"
)

type HandlerConfig struct {
	Logger *log.Logger
	// CheckOrigin overrides the default allow-all origin policy.
	CheckOrigin func(r *nethttp.Request) bool
	// NewSessionID overrides uuid session ids, mainly for tests.
	NewSessionID func() string
}

// Handler upgrades /ws requests and runs one gateway session per
// connection.
type Handler struct {
	hub      *server.Hub
	logger   *log.Logger
	upgrader websocket.Upgrader
	newID    func() string
}

func NewHandler(hub *server.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	checkOrigin := cfg.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(r *nethttp.Request) bool {
			return true
		}
	}

	newID := cfg.NewSessionID
	if newID == nil {
		newID = uuid.NewString
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     checkOrigin,
	}

	return &Handler{
		hub:      hub,
		logger:   logger,
		upgrader: upgrader,
		newID:    newID,
	}
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	codec := proto.ParseCodec(r.URL.Query().Get("codec"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed from %s: %v", r.RemoteAddr, err)
		return
	}

	h.Serve(h.newID(), codec, conn)
}
