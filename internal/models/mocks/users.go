package mocks

import (
	"context"
	"time"

	"github.com/mabego/chat-mysql/internal/models"
)

var mockUsers = []*models.User{
	{ID: 1, Name: "Alice", Email: "alice@example.com", Created: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)},
	{ID: 42, Name: "Bob", Email: "bob@example.com", Created: time.Date(2024, 2, 3, 11, 30, 0, 0, time.UTC)},
}

type UserModel struct{}

func (m *UserModel) Insert(name, email, password string) error {
	switch email {
	case "dupe@example.com":
		return models.ErrDuplicateEmail
	default:
		return nil
	}
}

func (m *UserModel) Authenticate(email, password string) (int, error) {
	if email == "alice@example.com" && password == "pa$$word" {
		return 1, nil
	}

	return 0, models.ErrInvalidCredentials
}

func (m *UserModel) Exists(_ context.Context, id int) (bool, error) {
	for _, u := range mockUsers {
		if u.ID == id {
			return true, nil
		}
	}

	return false, nil
}

func (m *UserModel) Get(id int) (*models.User, error) {
	for _, u := range mockUsers {
		if u.ID == id {
			return u, nil
		}
	}

	return nil, models.ErrNoRecord
}

func (m *UserModel) List(excludeID int) ([]*models.User, error) {
	var users []*models.User
	for _, u := range mockUsers {
		if u.ID != excludeID {
			users = append(users, u)
		}
	}

	return users, nil
}
