package realtime

import (
	"bufio"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
)

const keepAlive = 25 * time.Second

// EventsHandler streams hub events as server-sent events.
func EventsHandler(hub *Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")
		c.Set("X-Accel-Buffering", "no")

		events, cancel := hub.Subscribe()
		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer cancel()
			ticker := time.NewTicker(keepAlive)
			defer ticker.Stop()

			fmt.Fprint(w, ": connected\n\n")
			if err := w.Flush(); err != nil {
				return
			}
			for {
				select {
				case ev, ok := <-events:
					if !ok {
						return
					}
					data, err := sonic.Marshal(ev)
					if err != nil {
						continue
					}
					fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
				case <-ticker.C:
					fmt.Fprint(w, ": ping\n\n")
				}
				// a failed flush means the client went away
				if err := w.Flush(); err != nil {
					return
				}
			}
		})
		return nil
	}
}
