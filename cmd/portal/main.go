// Command portal is a terminal portal client that composes the four state
// stores in-process: it talks to the same Postgres/Redis as the gateway but
// drives the stores directly, with the session and task list persisted to a
// device-local database.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"unihub/internal/auth"
	"unihub/internal/cache"
	"unihub/internal/config"
	"unihub/internal/database"
	"unihub/internal/email"
	"unihub/internal/localstate"
	"unihub/internal/models"
	"unihub/internal/notifications"
	"unihub/internal/repository"
	"unihub/internal/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	cache.InitRedis(cfg.RedisURL)
	rdb := cache.GetClient()

	local, err := localstate.Open(cfg.LocalStatePath)
	if err != nil {
		log.Fatalf("Failed to open local state: %v", err)
	}
	defer func() { _ = local.Close() }()

	userRepo := repository.NewUserRepository(db)
	chatRepo := repository.NewChatRepository(db)
	mail := email.FromConfig(cfg.SendGridAPIKey, "UniHub", cfg.EmailFrom)
	authSvc := auth.NewService(userRepo, rdb, mail, cfg.JWTSecret, cfg.ResetURLBase)

	sessions := store.NewSessionStore(authSvc, local)
	if err := sessions.Restore(); err != nil {
		log.Printf("session restore failed: %v", err)
	}

	chatStore := store.NewChatStore(chatRepo, userRepo,
		notifications.NewStreams(rdb, chatRepo),
		notifications.NewNotifier(rdb),
		sessions.CurrentUserID)
	defer chatStore.Cleanup()

	tasks, err := store.NewTaskStore(local)
	if err != nil {
		log.Fatalf("Failed to load tasks: %v", err)
	}
	notifs := store.NewNotificationStore()

	chatStore.OnSnapshot(func(chatID uint, msgs []*models.Message) {
		fmt.Printf("\n--- chat %d: %d messages ---\n", chatID, len(msgs))
		for _, m := range msgs {
			fmt.Printf("  [%d] %s\n", m.SenderID, m.Text)
		}
		fmt.Print("> ")
	})

	ctx := context.Background()
	if sess := sessions.Session(); sess != nil {
		fmt.Printf("welcome back, %s\n", sess.User.DisplayName)
	} else {
		fmt.Println("not signed in; use: login <email> <password>")
	}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		run(ctx, strings.Fields(scanner.Text()), sessions, chatStore, tasks, notifs)
		fmt.Print("> ")
	}
}

func run(ctx context.Context, args []string, sessions *store.SessionStore,
	chats *store.ChatStore, tasks *store.TaskStore, notifs *store.NotificationStore) {
	if len(args) == 0 {
		return
	}

	fail := func(err error) {
		if err != nil {
			fmt.Printf("error: %v\n", err)
			notifs.Add("Operation failed", err.Error(), models.NotifyError, "")
		}
	}

	switch args[0] {
	case "login":
		if len(args) != 3 {
			fmt.Println("usage: login <email> <password>")
			return
		}
		sess, err := sessions.Login(ctx, args[1], args[2])
		if err != nil {
			fail(err)
			return
		}
		fmt.Printf("signed in as %s (%s)\n", sess.User.DisplayName, sess.User.Role)

	case "register":
		if len(args) < 4 {
			fmt.Println("usage: register <email> <password> <display name...>")
			return
		}
		sess, err := sessions.Register(ctx, auth.SignUpInput{
			Email:       args[1],
			Password:    args[2],
			DisplayName: strings.Join(args[3:], " "),
		})
		if err != nil {
			fail(err)
			return
		}
		fmt.Printf("account created, signed in as %s\n", sess.User.DisplayName)

	case "logout":
		fail(sessions.Logout(ctx))

	case "search":
		if len(args) != 2 {
			fmt.Println("usage: search <name prefix>")
			return
		}
		users, err := chats.SearchUsers(ctx, args[1])
		if err != nil {
			fail(err)
			return
		}
		for _, u := range users {
			fmt.Printf("  %d  %s (%s)\n", u.ID, u.DisplayName, u.Role)
		}

	case "chat":
		if len(args) != 2 {
			fmt.Println("usage: chat <user id>")
			return
		}
		id, _ := strconv.ParseUint(args[1], 10, 32)
		chatID, err := chats.StartChat(ctx, uint(id))
		if err != nil {
			fail(err)
			return
		}
		fmt.Printf("chat %d active\n", chatID)

	case "say":
		fail(chats.SendMessage(ctx, strings.Join(args[1:], " "), "", ""))

	case "task":
		if len(args) < 2 {
			fmt.Println("usage: task <title...>")
			return
		}
		id, err := tasks.Add(strings.Join(args[1:], " "), "", "", "", models.PriorityMedium)
		if err != nil {
			fail(err)
			return
		}
		fmt.Printf("task %s added\n", id)

	case "tasks":
		for _, t := range tasks.Tasks() {
			mark := " "
			if t.Completed {
				mark = "x"
			}
			fmt.Printf("  [%s] %s  %s (%s)\n", mark, t.ID, t.Title, t.Status)
		}

	case "done":
		if len(args) != 2 {
			fmt.Println("usage: done <task id>")
			return
		}
		t, err := tasks.ToggleComplete(args[1])
		if err != nil {
			fail(err)
			return
		}
		fmt.Printf("%s -> %s\n", t.Title, t.Status)

	case "notifs":
		for _, n := range notifs.Notifications() {
			fmt.Printf("  [%s] %s: %s\n", n.Type, n.Title, n.Message)
		}
		fmt.Printf("  %d unread\n", notifs.UnreadCount())

	case "quit", "exit":
		os.Exit(0)

	default:
		fmt.Println("commands: login register logout search chat say task tasks done notifs quit")
	}
}
