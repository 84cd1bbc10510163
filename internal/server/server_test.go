package server

import (
	"fmt"
	"testing"

	"unihub/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoints(t *testing.T) {
	_, app := newTestServer(t)

	resp := request(t, app, fiber.MethodGet, "/health/live", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = request(t, app, fiber.MethodGet, "/health", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Status string `json:"status"`
		Checks struct {
			Database string `json:"database"`
			Redis    string `json:"redis"`
		} `json:"checks"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Checks.Database)
	assert.Equal(t, "healthy", body.Checks.Redis)
}

func TestAuthFlow(t *testing.T) {
	_, app := newTestServer(t)

	t.Run("signup then login", func(t *testing.T) {
		ar := signup(t, app, "Ada Lovelace", "ada@unihub.local")
		assert.Equal(t, models.RoleStudent, ar.User.Role)

		resp := request(t, app, fiber.MethodPost, "/api/auth/login", "", LoginRequest{
			Email:    "ada@unihub.local",
			Password: "secret1",
		})
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var login AuthResponse
		decodeBody(t, resp, &login)
		assert.Equal(t, ar.User.ID, login.User.ID)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		resp := request(t, app, fiber.MethodPost, "/api/auth/signup", "", SignupRequest{
			DisplayName: "Ada Again",
			Email:       "ada@unihub.local",
			Password:    "secret1",
		})
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		resp := request(t, app, fiber.MethodPost, "/api/auth/login", "", LoginRequest{
			Email:    "ada@unihub.local",
			Password: "wrong-password",
		})
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("admin role not assignable", func(t *testing.T) {
		resp := request(t, app, fiber.MethodPost, "/api/auth/signup", "", SignupRequest{
			DisplayName: "Eve",
			Email:       "eve@unihub.local",
			Password:    "secret1",
			Role:        "admin",
		})
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("protected route requires token", func(t *testing.T) {
		resp := request(t, app, fiber.MethodGet, "/api/users/me", "", nil)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("profile readable with token", func(t *testing.T) {
		ar := signup(t, app, "Grace Hopper", "grace@unihub.local")

		resp := request(t, app, fiber.MethodGet, "/api/users/me", ar.Token, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var me models.User
		decodeBody(t, resp, &me)
		assert.Equal(t, "grace@unihub.local", me.Email)
		assert.Empty(t, me.Password, "password hash must never be serialized")
	})

	t.Run("password reset is uniform for unknown emails", func(t *testing.T) {
		resp := request(t, app, fiber.MethodPost, "/api/auth/password-reset", "",
			fiber.Map{"email": "nobody@unihub.local"})
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
}

func TestUserSearchExcludesSelf(t *testing.T) {
	_, app := newTestServer(t)

	alice := signup(t, app, "Alice", "alice@unihub.local")
	signup(t, app, "Alina", "alina@unihub.local")

	resp := request(t, app, fiber.MethodGet, "/api/users/search?q=Al", alice.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var results []*models.User
	decodeBody(t, resp, &results)
	require.Len(t, results, 1)
	assert.Equal(t, "Alina", results[0].DisplayName)
}

func TestChatEndpoints(t *testing.T) {
	_, app := newTestServer(t)

	alice := signup(t, app, "Alice", "alice@unihub.local")
	bob := signup(t, app, "Bob", "bob@unihub.local")
	mallory := signup(t, app, "Mallory", "mallory@unihub.local")

	var chat models.Chat

	t.Run("start chat", func(t *testing.T) {
		resp := request(t, app, fiber.MethodPost, "/api/chats", alice.Token,
			StartChatRequest{UserID: bob.User.ID})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
		decodeBody(t, resp, &chat)
		assert.True(t, chat.Has(alice.User.ID))
		assert.True(t, chat.Has(bob.User.ID))
	})

	t.Run("starting again returns the same conversation", func(t *testing.T) {
		resp := request(t, app, fiber.MethodPost, "/api/chats", bob.Token,
			StartChatRequest{UserID: alice.User.ID})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)

		var again models.Chat
		decodeBody(t, resp, &again)
		assert.Equal(t, chat.ID, again.ID)
	})

	t.Run("self chat rejected", func(t *testing.T) {
		resp := request(t, app, fiber.MethodPost, "/api/chats", alice.Token,
			StartChatRequest{UserID: alice.User.ID})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown user not found", func(t *testing.T) {
		resp := request(t, app, fiber.MethodPost, "/api/chats", alice.Token,
			StartChatRequest{UserID: 9999})
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("send and list messages", func(t *testing.T) {
		resp := request(t, app, fiber.MethodPost,
			fmt.Sprintf("/api/chats/%d/messages", chat.ID), alice.Token,
			SendMessageRequest{Text: "hello"})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)

		var sent models.Message
		decodeBody(t, resp, &sent)
		assert.Equal(t, alice.User.ID, sent.SenderID)
		assert.Equal(t, bob.User.ID, sent.ReceiverID)

		resp = request(t, app, fiber.MethodGet,
			fmt.Sprintf("/api/chats/%d/messages", chat.ID), bob.Token, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var msgs []*models.Message
		decodeBody(t, resp, &msgs)
		require.Len(t, msgs, 1)
		assert.Equal(t, "hello", msgs[0].Text)
	})

	t.Run("empty message rejected", func(t *testing.T) {
		resp := request(t, app, fiber.MethodPost,
			fmt.Sprintf("/api/chats/%d/messages", chat.ID), alice.Token,
			SendMessageRequest{})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("outsider forbidden", func(t *testing.T) {
		resp := request(t, app, fiber.MethodGet,
			fmt.Sprintf("/api/chats/%d/messages", chat.ID), mallory.Token, nil)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("mark read", func(t *testing.T) {
		var msgs []*models.Message
		resp := request(t, app, fiber.MethodGet,
			fmt.Sprintf("/api/chats/%d/messages", chat.ID), bob.Token, nil)
		decodeBody(t, resp, &msgs)
		require.NotEmpty(t, msgs)

		resp = request(t, app, fiber.MethodPost,
			fmt.Sprintf("/api/chats/%d/messages/%d/read", chat.ID, msgs[0].ID), bob.Token, nil)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	})

	t.Run("read flags cannot be flipped through another chat", func(t *testing.T) {
		var msgs []*models.Message
		resp := request(t, app, fiber.MethodGet,
			fmt.Sprintf("/api/chats/%d/messages", chat.ID), alice.Token, nil)
		decodeBody(t, resp, &msgs)
		require.NotEmpty(t, msgs)

		// Mallory opens a legitimate chat with Alice and aims the read
		// route at a message from the Alice-Bob conversation.
		resp = request(t, app, fiber.MethodPost, "/api/chats", mallory.Token,
			StartChatRequest{UserID: alice.User.ID})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
		var malloryChat models.Chat
		decodeBody(t, resp, &malloryChat)

		resp = request(t, app, fiber.MethodPost,
			fmt.Sprintf("/api/chats/%d/messages/%d/read", malloryChat.ID, msgs[0].ID),
			mallory.Token, nil)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("unread counter follows message and read writes", func(t *testing.T) {
		resp := request(t, app, fiber.MethodPost,
			fmt.Sprintf("/api/chats/%d/messages", chat.ID), alice.Token,
			SendMessageRequest{Text: "unread for bob"})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
		var sent models.Message
		decodeBody(t, resp, &sent)

		unread := func() int {
			var chats []*models.Chat
			resp := request(t, app, fiber.MethodGet, "/api/chats", bob.Token, nil)
			require.Equal(t, fiber.StatusOK, resp.StatusCode)
			decodeBody(t, resp, &chats)
			for _, c := range chats {
				if c.ID == chat.ID {
					return c.UnreadCount
				}
			}
			t.Fatal("chat missing from list")
			return 0
		}
		require.Positive(t, unread())

		resp = request(t, app, fiber.MethodPost,
			fmt.Sprintf("/api/chats/%d/messages/%d/read", chat.ID, sent.ID), bob.Token, nil)
		require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
		assert.Zero(t, unread())
	})

	t.Run("delete chat removes messages", func(t *testing.T) {
		resp := request(t, app, fiber.MethodDelete,
			fmt.Sprintf("/api/chats/%d", chat.ID), alice.Token, nil)
		require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

		resp = request(t, app, fiber.MethodGet, "/api/chats", alice.Token, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		var chats []*models.Chat
		decodeBody(t, resp, &chats)
		assert.Empty(t, chats)
	})
}

func TestTaskEndpoints(t *testing.T) {
	_, app := newTestServer(t)
	user := signup(t, app, "Tasker", "tasker@unihub.local")

	resp := request(t, app, fiber.MethodPost, "/api/tasks", user.Token, CreateTaskRequest{
		Title:   "Finish lab report",
		Subject: "Physics",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &created)
	require.NotEmpty(t, created.ID)

	resp = request(t, app, fiber.MethodPost, "/api/tasks/"+created.ID+"/toggle", user.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var toggled models.Task
	decodeBody(t, resp, &toggled)
	assert.True(t, toggled.Completed)
	assert.Equal(t, models.StatusCompleted, toggled.Status)

	resp = request(t, app, fiber.MethodGet, "/api/tasks", user.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var tasks []*models.Task
	decodeBody(t, resp, &tasks)
	require.Len(t, tasks, 1)

	resp = request(t, app, fiber.MethodPost, "/api/tasks", user.Token, CreateTaskRequest{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestNotificationEndpoints(t *testing.T) {
	_, app := newTestServer(t)
	user := signup(t, app, "Notified", "notified@unihub.local")

	resp := request(t, app, fiber.MethodPost, "/api/notifications", user.Token,
		AddNotificationRequest{Title: "Welcome", Message: "Hello there"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var added struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &added)
	require.NotEmpty(t, added.ID)

	var list struct {
		Notifications []*models.Notification `json:"notifications"`
		UnreadCount   int                    `json:"unread_count"`
	}
	resp = request(t, app, fiber.MethodGet, "/api/notifications", user.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &list)
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, 1, list.UnreadCount)
	assert.Equal(t, models.NotifyInfo, list.Notifications[0].Type)

	resp = request(t, app, fiber.MethodPost, "/api/notifications/"+added.ID+"/read", user.Token, nil)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp = request(t, app, fiber.MethodGet, "/api/notifications", user.Token, nil)
	decodeBody(t, resp, &list)
	assert.Equal(t, 0, list.UnreadCount)

	// Another user never sees this list.
	other := signup(t, app, "Other", "other@unihub.local")
	resp = request(t, app, fiber.MethodGet, "/api/notifications", other.Token, nil)
	decodeBody(t, resp, &list)
	assert.Empty(t, list.Notifications)
}
