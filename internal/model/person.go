package model

import "time"

type Person struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	HouseholdID       int64     `json:"household_id"`
	RemoteID          string    `json:"remote_id"`
	RemoteHouseholdID string    `json:"remote_household_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
