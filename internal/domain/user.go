package domain

import "time"

// User is a bot end user, identified by the platform's numeric id.
type User struct {
	TelegramID int64     `json:"telegram_id" db:"telegram_id"`
	Username   string    `json:"username" db:"username"`
	JoinedDate time.Time `json:"joined_date" db:"joined_date"`
	LastActive time.Time `json:"last_active" db:"last_active"`
}

// UserStats summarizes the user base for the status report.
type UserStats struct {
	TotalUsers  int `json:"total_users"`
	ActiveToday int `json:"active_today"`
}
