package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"campusphere/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

const ssePingInterval = 5 * time.Second

func removeStreamClient(bc *Broadcaster) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Query("key", "")
		bc.RemoveClient(key)
		return c.Status(fiber.StatusOK).SendString("OK")
	}
}

// streamPosts pushes every created post to the client as a create-post event
func streamPosts(bc *Broadcaster) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("Transfer-Encoding", "chunked")

		key := uuid.New().String()
		createPostChannel := make(chan models.CreatePostEvent, 10)
		bc.AddClient(key, createPostChannel)
		sseClients.Inc()

		cleanup := func() {
			log.Infof("Cleaning up SSE stream for client: %s", key)
			sseClients.Dec()
			bc.RemoveClient(key)
		}

		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			defer cleanup()

			alive := time.NewTicker(ssePingInterval)
			defer alive.Stop()

			fmt.Fprintf(w, "event: init\ndata: %s\n\n", key)
			if err := w.Flush(); err != nil {
				log.Errorf("Failed to send init event: %v", err)
				return
			}

			for {
				select {
				case <-alive.C:
					if _, err := fmt.Fprintf(w, "event: ping\ndata: \n\n"); err != nil {
						log.Warnf("Failed to send ping to client %s: %v", key, err)
						return
					}
					if err := w.Flush(); err != nil {
						log.Warnf("Failed to flush ping for client %s: %v", key, err)
						return
					}

				case event, ok := <-createPostChannel:
					if !ok {
						log.Warnf("CreatePostChannel closed for client %s", key)
						return
					}
					data, err := json.Marshal(event.Post)
					if err != nil {
						log.Errorf("Error marshalling post for client %s: %v", key, err)
						continue
					}
					if _, err := fmt.Fprintf(w, "event: create-post\ndata: %s\n\n", data); err != nil {
						log.Warnf("Failed to send create-post event to client %s: %v", key, err)
						return
					}
					if err := w.Flush(); err != nil {
						log.Warnf("Failed to flush create-post event for client %s: %v", key, err)
						return
					}
				}
			}
		}))

		return nil
	}
}
