package domain

import "time"

// Tag is a user-owned label for categorizing recipes ("vegan", "dessert").
// Tags are private to the user that created them. Names are unique per user,
// compared case-insensitively.
type Tag struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Touch updates the UpdatedAt timestamp.
func (t *Tag) Touch() {
	t.UpdatedAt = time.Now()
}
