package models

import (
	"time"

	"github.com/google/uuid"
)

// CartData maps product ID -> size -> quantity, mirroring the stored cart
// document. A nil map and an empty map are both an empty cart.
type CartData map[string]map[string]int

// Cart is a user's stored cart document. There is at most one per user and it
// is only ever replaced wholesale by single-row updates.
type Cart struct {
	UserID    uuid.UUID `json:"user_id"`
	Data      CartData  `json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
}
