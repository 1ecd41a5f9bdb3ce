package models

import "time"

type Team struct {
	ID          int       `json:"id" db:"id"`
	Division    int       `json:"division" db:"division"`
	Subdivision string    `json:"subdivision" db:"subdivision"`
	Name        string    `json:"name" db:"name"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
