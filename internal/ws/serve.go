package ws

import (
	"errors"
	"net/http"
)

var errHubUnavailable = errors.New("realtime not available")

// ServeStaff upgrades the request and streams events for the given student
// departments until the connection closes.
func (h *StaffHub) ServeStaff(w http.ResponseWriter, r *http.Request, departments []string) error {
	if h == nil {
		return errHubUnavailable
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	allowed := make(map[string]struct{}, len(departments))
	for _, d := range departments {
		allowed[d] = struct{}{}
	}
	c := &staffClient{
		client:      client{conn: conn, send: make(chan []byte, sendBufferSize)},
		departments: allowed,
	}
	h.register <- c

	go c.writePump()
	c.readPump(func() { h.unregister <- c })
	return nil
}

// ServeStudent upgrades the request and streams events about studentID's applications.
func (h *StudentHub) ServeStudent(w http.ResponseWriter, r *http.Request, studentID string) error {
	if h == nil {
		return errHubUnavailable
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &studentClient{
		client:    client{conn: conn, send: make(chan []byte, 64)},
		studentID: studentID,
	}
	h.register <- c

	go c.writePump()
	c.readPump(func() { h.unregister <- c })
	return nil
}
