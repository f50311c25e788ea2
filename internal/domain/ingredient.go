package domain

import "time"

// Ingredient is a user-owned ingredient that can be attached to recipes.
// Like tags, ingredients are private to their owner and unique per user by
// case-insensitive name.
type Ingredient struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Touch updates the UpdatedAt timestamp.
func (i *Ingredient) Touch() {
	i.UpdatedAt = time.Now()
}
