package domain

import "time"

// Strategy is a user-defined trading strategy that orders and runs may reference.
type Strategy struct {
	ID         int64     `json:"id"`
	AccountID  int64     `json:"account_id"`
	Name       string    `json:"name"`
	Market     string    `json:"market"`
	Symbol     string    `json:"symbol"`
	Timeframe  string    `json:"timeframe"`
	ConfigJSON string    `json:"config_json"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
