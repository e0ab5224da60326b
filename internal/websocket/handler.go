package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs attaches one surface connection to the hub.
func ServeWs(hub *Hub, c *websocket.Conn) {
	client := &Client{Hub: hub, Conn: c, SurfaceID: uuid.New(), Send: make(chan []byte, 256)}
	client.Hub.register <- client

	// writePump runs in its own goroutine; readPump blocks this handler
	// until the surface disconnects.
	go client.writePump()
	client.readPump()
}
