package entities

import "time"

// Device represents a physical sender in the device registry. Every stored
// reading is attributed to exactly one device.
type Device struct {
	ID        string    `json:"id"` // unique device identifier
	Name      string    `json:"name"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
