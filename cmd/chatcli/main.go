// Command chatcli is a terminal client for the portal's realtime message
// stream. It logs in over HTTP, opens the websocket stream for one chat and
// prints every full-replace snapshot; lines typed on stdin are sent as
// messages.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID          uint   `json:"id"`
		DisplayName string `json:"display_name"`
	} `json:"user"`
}

type streamFrame struct {
	Type     string `json:"type"`
	ChatID   uint   `json:"chat_id,omitempty"`
	State    string `json:"state,omitempty"`
	Error    string `json:"error,omitempty"`
	Messages []struct {
		ID       uint   `json:"id"`
		SenderID uint   `json:"sender_id"`
		Text     string `json:"text"`
	} `json:"messages,omitempty"`
}

func main() {
	host := flag.String("host", "localhost:8640", "gateway host")
	email := flag.String("email", "student1@unihub.local", "account email")
	password := flag.String("password", "secret1", "account password")
	chatID := flag.Uint("chat", 0, "chat id to open (0: start a chat with -with)")
	withUser := flag.Uint("with", 0, "user id to start a chat with")
	flag.Parse()

	auth, err := login(*host, *email, *password)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}
	log.Printf("logged in as %s (user %d)", auth.User.DisplayName, auth.User.ID)

	u := url.URL{Scheme: "ws", Host: *host, Path: "/api/ws/chat", RawQuery: "token=" + auth.Token}
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("websocket dial failed: %v", err)
	}
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() { _ = conn.Close() }()

	if *chatID != 0 {
		send(conn, map[string]any{"type": "open", "chat_id": *chatID})
	} else if *withUser != 0 {
		send(conn, map[string]any{"type": "start", "user_id": *withUser})
	} else {
		log.Fatal("pass -chat or -with")
	}

	done := make(chan struct{})
	go readLoop(conn, auth.User.ID, done)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if line == "" {
				continue
			}
			send(conn, map[string]any{"type": "send", "text": line})
		}
	}
}

func login(host, email, password string) (*authResponse, error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := http.Post(fmt.Sprintf("http://%s/api/auth/login", host),
		"application/json", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login failed with status %d", resp.StatusCode)
	}
	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

func send(conn *websocket.Conn, frame map[string]any) {
	payload, _ := json.Marshal(frame)
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Printf("write failed: %v", err)
	}
}

func readLoop(conn *websocket.Conn, selfID uint, done chan<- struct{}) {
	defer close(done)
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame streamFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			continue
		}

		switch frame.Type {
		case "snapshot":
			fmt.Printf("--- chat %d (%s, %d messages) ---\n", frame.ChatID, frame.State, len(frame.Messages))
			for _, m := range frame.Messages {
				who := "them"
				if m.SenderID == selfID {
					who = "you"
				}
				fmt.Printf("[%s] %s\n", who, m.Text)
			}
		case "started":
			log.Printf("chat %d opened", frame.ChatID)
		case "error":
			log.Printf("server error: %s", frame.Error)
		}
	}
}
