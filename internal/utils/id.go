package utils

import "github.com/google/uuid"

// NewID returns a random UUID v4 string.  All entity ids (shop, user,
// catalog rows, plans) come from here so concurrent creates never collide.
func NewID() string {
	return uuid.NewString()
}
