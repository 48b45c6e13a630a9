package models

import "time"

type UserRole string

const (
	RolePlayer  UserRole = "player"
	RoleArbiter UserRole = "arbiter"
	RoleAdmin   UserRole = "admin"
)

type User struct {
	ID           int      `json:"id"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	Nickname     string   `json:"nickname"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"`
	Role         UserRole `json:"role"`
	// WalletBalance is stored in the smallest currency unit.
	WalletBalance int64 `json:"wallet_balance"`
	Wins          int   `json:"wins"`
	// TelegramChatID is set when the user has linked the Telegram bot.
	TelegramChatID *int64    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
