package main

import (
	"encoding/binary"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// upgrader accepts any origin: this server is meant to sit behind a reverse
// proxy that enforces its own access policy, matching the teacher's
// websocket listener.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// DecodeServer serves one websocket connection per live SSTV decode
// session: the client streams mono PCM16 audio frames in, the server
// streams binary protocol frames (audio_extensions/sstv/protocol.go) back.
type DecodeServer struct {
	modeName string
	metrics  *DecodeMetrics
	mqtt     *MQTTPublisher
}

// NewDecodeServer builds a server that mints a fresh DecodeSession for
// every accepted connection.
func NewDecodeServer(modeName string, metrics *DecodeMetrics, mqtt *MQTTPublisher) *DecodeServer {
	return &DecodeServer{modeName: modeName, metrics: metrics, mqtt: mqtt}
}

// ServeHTTP upgrades the request to a websocket and runs the session until
// the client disconnects.
func (s *DecodeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sessionID := uuid.New().String()
	session, err := NewDecodeSession(s.modeName, s.metrics, s.mqtt)
	if err != nil {
		log.Printf("websocket[%s]: %v", sessionID, err)
		return
	}
	log.Printf("websocket[%s]: session started (mode %s)", sessionID, s.modeName)
	defer log.Printf("websocket[%s]: session ended", sessionID)

	if s.metrics != nil {
		s.metrics.sessionsActive.Inc()
		defer s.metrics.sessionsActive.Dec()
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	go s.pingLoop(conn, done)
	defer close(done)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket: read error: %v", err)
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		pcm := decodeLittleEndianPCM16(data)
		resp := session.Feed(pcm)

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.BinaryMessage, resp); err != nil {
			log.Printf("websocket: write error: %v", err)
			return
		}
	}
}

func (s *DecodeServer) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// decodeLittleEndianPCM16 reinterprets a raw byte frame as little-endian
// mono PCM16 samples, the wire format the browser AudioWorklet side of this
// protocol sends.
func decodeLittleEndianPCM16(b []byte) []int16 {
	n := len(b) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return out
}
