package common

import (
	"github.com/google/uuid"
)

// NewTripID generates a unique trip ID with the "trip_" prefix
func NewTripID() string {
	return "trip_" + uuid.New().String()
}

// NewDestinationID generates a unique destination ID with the "dest_" prefix
func NewDestinationID() string {
	return "dest_" + uuid.New().String()
}

// NewMessageID generates a unique chat message ID with the "msg_" prefix
func NewMessageID() string {
	return "msg_" + uuid.New().String()
}
