package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"unihub/internal/middleware"
	"unihub/internal/models"
	"unihub/internal/notifications"
	"unihub/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// StreamFrame is the websocket envelope for conversation updates. Snapshot
// frames carry the chat's complete message set; clients replace, never
// merge.
type StreamFrame struct {
	Type     string            `json:"type"`
	ChatID   uint              `json:"chat_id,omitempty"`
	State    string            `json:"state,omitempty"`
	Messages []*models.Message `json:"messages,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// WebSocketChatHandler streams message snapshots for one conversation per
// connection. Each connection owns a ChatStore bound to the authenticated
// user; incoming frames drive its operations and every applied snapshot is
// pushed back as a full-replace frame.
func (s *Server) WebSocketChatHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		userIDVal := conn.Locals("userID")
		if userIDVal == nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","error":"unauthorized"}`))
			_ = conn.Close()
			return
		}
		userID := userIDVal.(uint)

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		chatStore := store.NewChatStore(s.chats, s.users, s.streams, s.notifier,
			func() (uint, bool) { return userID, true })
		defer chatStore.Cleanup()

		chatStore.OnSnapshot(func(chatID uint, msgs []*models.Message) {
			frame, err := json.Marshal(StreamFrame{
				Type:     "snapshot",
				ChatID:   chatID,
				State:    string(chatStore.State()),
				Messages: msgs,
			})
			if err != nil {
				return
			}
			client.TrySend(frame)
		})

		client.IncomingHandler = func(c *notifications.Client, message []byte) {
			var frame struct {
				Type      string `json:"type"`
				ChatID    uint   `json:"chat_id"`
				UserID    uint   `json:"user_id"`
				Text      string `json:"text"`
				FileURL   string `json:"file_url"`
				FileType  string `json:"file_type"`
				MessageID uint   `json:"message_id"`
			}
			if err := json.Unmarshal(message, &frame); err != nil {
				s.sendError(c, "invalid frame")
				return
			}

			switch frame.Type {
			case "open":
				if err := chatStore.OpenChat(ctx, frame.ChatID); err != nil {
					s.sendError(c, err.Error())
				}

			case "start":
				chatID, err := chatStore.StartChat(ctx, frame.UserID)
				if err != nil {
					s.sendError(c, err.Error())
					return
				}
				if ack, err := json.Marshal(StreamFrame{Type: "started", ChatID: chatID}); err == nil {
					c.TrySend(ack)
				}

			case "send":
				id := fmt.Sprintf("user:%d", userID)
				allowed, _ := middleware.CheckRateLimit(ctx, s.redis, "send_chat", id, 15, time.Minute)
				if !allowed {
					s.sendError(c, "Rate limit exceeded. Please wait a moment.")
					return
				}
				if err := chatStore.SendMessage(ctx, frame.Text, frame.FileURL, frame.FileType); err != nil {
					s.sendError(c, err.Error())
				}

			case "read":
				if err := chatStore.MarkAsRead(ctx, frame.MessageID); err != nil {
					s.sendError(c, err.Error())
				}

			case "close":
				chatStore.Cleanup()
			}
		}

		if welcome, err := json.Marshal(StreamFrame{Type: "connected"}); err == nil {
			client.TrySend(welcome)
		}

		go client.WritePump()
		client.ReadPump()
	})
}

// WebSocketNotifyHandler delivers notification events fanned out from the
// Redis user channels.
func (s *Server) WebSocketNotifyHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userIDVal := conn.Locals("userID")
		if userIDVal == nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userIDVal.(uint), conn)
		if err != nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}

func (s *Server) sendError(c *notifications.Client, msg string) {
	if frame, err := json.Marshal(StreamFrame{Type: "error", Error: msg}); err == nil {
		c.TrySend(frame)
	}
}
