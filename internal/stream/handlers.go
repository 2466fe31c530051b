package stream

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// The feed is one-directional: the server pushes events, the client only
// keeps the connection alive. The read pump exists to notice disconnects.
func RegisterRoutes(r fiber.Router, hub *Hub) {
	r.Get("/ws/:code", websocket.New(func(c *websocket.Conn) {
		client := hub.Register(c.Params("code"))

		done := make(chan struct{})
		go writePump(c, client, done)
		readPump(c)

		// Unregister closes Send, which ends the write pump.
		hub.Unregister(client)
		<-done
	}))
}

func writePump(c *websocket.Conn, client *Client, done chan<- struct{}) {
	defer close(done)
	for msg := range client.Send {
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func readPump(c *websocket.Conn) {
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}
