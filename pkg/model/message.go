package model

import "time"

// GroupMessage is a persisted room broadcast. ID is the store-order token
// assigned on insert; history reads sort by it, not by SentAt.
type GroupMessage struct {
	ID       int64     `json:"id"`
	Room     string    `json:"room"`
	FromUser string    `json:"from_user"`
	Message  string    `json:"message"`
	SentAt   time.Time `json:"date_sent"`
}

// PrivateMessage is a persisted direct message between two users. It is
// room-independent and queried by the unordered username pair.
type PrivateMessage struct {
	ID       int64     `json:"id"`
	FromUser string    `json:"from_user"`
	ToUser   string    `json:"to_user"`
	Message  string    `json:"message"`
	SentAt   time.Time `json:"date_sent"`
}
