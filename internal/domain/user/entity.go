package user

import "time"

// User はユーザーエンティティを表す
type User struct {
	ID          string
	Name        string
	Email       string
	PhoneNumber string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewUser は新しいユーザーを作成する
func NewUser(name, email, phoneNumber string) *User {
	now := time.Now()
	return &User{
		Name:        name,
		Email:       email,
		PhoneNumber: phoneNumber,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate はユーザーの検証を行う
func (u *User) Validate() error {
	if u.Name == "" {
		return ErrUserNameRequired
	}
	if u.Email == "" {
		return ErrEmailRequired
	}
	return nil
}
