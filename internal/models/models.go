package models

import "time"

type User struct {
	UserID       int64     `json:"user_id"`
	Paid         bool      `json:"paid"`
	MessagesUsed int       `json:"messages_used"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Memory struct {
	UserID    int64     `json:"user_id"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}
