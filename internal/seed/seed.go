// Package seed populates a development database with demo accounts and
// conversations.
package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"

	"unihub/internal/models"
	"unihub/internal/notifications"
	"unihub/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password for every seeded account.
const DemoPassword = "secret1"

var faculties = []string{
	"Computer Science", "Economics", "Law", "Design", "Engineering", "Medicine",
}

// Run creates demo users, pairwise chats and a spread of messages. Safe to
// run repeatedly: existing emails are skipped.
func Run(ctx context.Context, db *gorm.DB, userCount int) error {
	users := repository.NewUserRepository(db)
	chats := repository.NewChatRepository(db)

	hashed, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	seeded := make([]*models.User, 0, userCount)
	for i := 0; i < userCount; i++ {
		email := fmt.Sprintf("student%d@unihub.local", i+1)
		existing, err := users.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			seeded = append(seeded, existing)
			continue
		}

		role := models.RoleStudent
		if i%5 == 4 {
			role = models.RoleTeacher
		}
		u := &models.User{
			Email:       email,
			Password:    string(hashed),
			DisplayName: gofakeit.Name(),
			Role:        role,
			University:  gofakeit.Company() + " University",
			Faculty:     faculties[rand.Intn(len(faculties))],
			Year:        fmt.Sprintf("%d", 1+rand.Intn(4)),
			Phone:       gofakeit.Phone(),
			About:       gofakeit.Sentence(10),
		}
		if err := users.Create(ctx, u); err != nil {
			return err
		}
		seeded = append(seeded, u)
	}

	for i := 0; i+1 < len(seeded); i += 2 {
		a, b := seeded[i], seeded[i+1]
		chat, err := chats.GetOrCreate(ctx, a.ID, b.ID)
		if err != nil {
			return err
		}

		count, err := chats.CountMessages(ctx, chat.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		for m := 0; m < 3+rand.Intn(5); m++ {
			sender, receiver := a, b
			if m%2 == 1 {
				sender, receiver = b, a
			}
			msg := &models.Message{
				ChatID:     chat.ID,
				SenderID:   sender.ID,
				ReceiverID: receiver.ID,
				Text:       gofakeit.Sentence(6 + rand.Intn(10)),
			}
			if err := chats.CreateMessage(ctx, msg); err != nil {
				return err
			}
		}
	}

	log.Printf("Seeded %d users (password %q), %d chats", len(seeded), DemoPassword, len(seeded)/2)
	return nil
}

// ChannelsHint logs the pub/sub channels of the seeded chats, handy when
// watching Redis during development.
func ChannelsHint(ctx context.Context, db *gorm.DB) {
	var ids []uint
	db.WithContext(ctx).Model(&models.Chat{}).Pluck("id", &ids)
	for _, id := range ids {
		log.Printf("chat %d -> %s", id, notifications.ChatChannel(id))
	}
}
