package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Any origin; the connection is authorized by the bearer token.
		return true
	},
}

type Hubs struct {
	Staff   *StaffHub
	Student *StudentHub
}

func NewHubs() *Hubs {
	return &Hubs{
		Staff:   NewStaffHub(),
		Student: NewStudentHub(),
	}
}

// Run starts both hub loops. They run for the life of the process.
func (h *Hubs) Run() {
	if h == nil {
		return
	}
	go h.Staff.Run()
	go h.Student.Run()
}

// ApplicationChanged fans an event out to staff dashboards and the owning student.
// Safe to call on a nil *Hubs.
func (h *Hubs) ApplicationChanged(evt ApplicationEvent) {
	if h == nil {
		return
	}
	h.Staff.Broadcast(evt)
	h.Student.Notify(evt.StudentID, evt)
}

// client is one websocket connection; send is drained by writePump.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *client) readPump(done func()) {
	defer done()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
