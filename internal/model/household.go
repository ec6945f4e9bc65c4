package model

import "time"

type Household struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
	RemoteID     string    `json:"remote_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Synced reports whether the household has been mirrored to the remote store.
func (h *Household) Synced() bool {
	return h.RemoteID != ""
}
