package ws

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

type staffMessage struct {
	department string
	payload    []byte
}

// StaffHub delivers application events to staff dashboards, scoped to the
// student departments each staff member's group covers.
type StaffHub struct {
	register   chan *staffClient
	unregister chan *staffClient
	broadcast  chan staffMessage
	clients    map[*staffClient]struct{}
}

type staffClient struct {
	client
	departments map[string]struct{}
}

func NewStaffHub() *StaffHub {
	return &StaffHub{
		register:   make(chan *staffClient),
		unregister: make(chan *staffClient),
		broadcast:  make(chan staffMessage, sendBufferSize),
		clients:    make(map[*staffClient]struct{}),
	}
}

func (h *StaffHub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				if _, ok := c.departments[msg.department]; !ok {
					continue
				}
				select {
				case c.send <- msg.payload:
				default:
					// Slow consumer; drop it rather than block the hub.
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

func (h *StaffHub) Broadcast(evt ApplicationEvent) {
	if h == nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		log.Error().Err(err).Msg("ws: failed to marshal staff event")
		return
	}
	h.broadcast <- staffMessage{department: evt.Department, payload: data}
}
