package models

import "time"

type RefreshToken struct {
	ID               string
	UserID           string
	Token            string
	PreviousToken    string
	DeviceIdentifier string
	IPAddress        string
	Expires          time.Time
	CreatedAt        time.Time
}
