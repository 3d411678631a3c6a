package main

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// startFrameHub serves hub's /frames endpoint on addr in the background.
func startFrameHub(hub *frameHub, addr string, log *logrus.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/frames", hub.handleWS)
	go func() {
		log.Infof("serving /frames on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Warnf("websocket listener stopped: %v", err)
		}
	}()
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// frameEvent is broadcast once per validated frame, a live tail for a
// monitoring dashboard sitting outside the demux core.
type frameEvent struct {
	Parser string `json:"parser"`
	Length int    `json:"length"`
	Hex    string `json:"hex"`
}

// frameHub fans out frameEvents to every connected /frames websocket client.
type frameHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	log     *logrus.Logger
}

func newFrameHub(log *logrus.Logger) *frameHub {
	return &frameHub{clients: map[*websocket.Conn]bool{}, log: log}
}

func (h *frameHub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			if err := conn.Close(); err != nil {
				h.log.Warnf("closing websocket client: %v", err)
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (h *frameHub) broadcast(parser string, frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) == 0 {
		return
	}

	shown := frame
	if len(shown) > 32 {
		shown = shown[:32]
	}
	msg, err := json.Marshal(frameEvent{Parser: parser, Length: len(frame), Hex: hex.EncodeToString(shown)})
	if err != nil {
		return
	}
	for c := range h.clients {
		_ = c.WriteMessage(websocket.TextMessage, msg)
	}
}
