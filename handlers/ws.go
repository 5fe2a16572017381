package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"photopro/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WebSocket registers the connection with the notification hub and answers
// ping frames until the client goes away. Events pushed by the hub share the
// connection; there is no replay for events sent before the client connected.
func WebSocket(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		fmt.Printf("WebSocket upgrade failed for user %d: %v\n", userID, err)
		return
	}

	client := services.Notifier.Register(userID, conn)
	defer func() {
		services.Notifier.Unregister(userID, client)
		client.Close()
		fmt.Printf("User %d disconnected\n", userID)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		if msg.Type == "ping" {
			pong, _ := json.Marshal(map[string]string{
				"type":      "pong",
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			// Through the client's write lock: hub broadcasts share this conn.
			if err := client.Write(pong); err != nil {
				return
			}
		}
	}
}
