package ws

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

type studentNotification struct {
	studentID string
	payload   []byte
}

// StudentHub keeps at most one connection per student; a new connection replaces the old one.
type StudentHub struct {
	register   chan *studentClient
	unregister chan *studentClient
	notify     chan studentNotification
	clients    map[string]*studentClient
}

type studentClient struct {
	client
	studentID string
}

func NewStudentHub() *StudentHub {
	return &StudentHub{
		register:   make(chan *studentClient),
		unregister: make(chan *studentClient),
		notify:     make(chan studentNotification, sendBufferSize),
		clients:    make(map[string]*studentClient),
	}
}

func (h *StudentHub) Run() {
	for {
		select {
		case c := <-h.register:
			if existing, ok := h.clients[c.studentID]; ok {
				close(existing.send)
			}
			h.clients[c.studentID] = c
		case c := <-h.unregister:
			if stored, ok := h.clients[c.studentID]; ok && stored == c {
				delete(h.clients, c.studentID)
				close(c.send)
			}
		case msg := <-h.notify:
			if c, ok := h.clients[msg.studentID]; ok {
				select {
				case c.send <- msg.payload:
				default:
					delete(h.clients, msg.studentID)
					close(c.send)
				}
			}
		}
	}
}

func (h *StudentHub) Notify(studentID string, evt ApplicationEvent) {
	if h == nil || studentID == "" {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		log.Error().Err(err).Msg("ws: failed to marshal student event")
		return
	}
	h.notify <- studentNotification{studentID: studentID, payload: data}
}
