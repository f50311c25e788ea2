package domain

import "time"

// Recipe is the central entity: a user-owned recipe with optional tags,
// ingredients, and an uploaded image.
type Recipe struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	Title       string  `json:"title"`
	TimeMinutes int     `json:"time_minutes"`
	Price       float64 `json:"price"`
	Description string  `json:"description,omitempty"`
	Link        string  `json:"link,omitempty"`

	// Image metadata. ImagePath is the filename under the image storage
	// directory; empty means no image has been uploaded.
	ImagePath     string `json:"image_path,omitempty"`
	ImageBlurHash string `json:"image_blurhash,omitempty"`

	Tags        []Tag        `json:"tags"`
	Ingredients []Ingredient `json:"ingredients"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Touch updates the UpdatedAt timestamp.
func (r *Recipe) Touch() {
	r.UpdatedAt = time.Now()
}

// HasImage reports whether an image has been uploaded for the recipe.
func (r *Recipe) HasImage() bool {
	return r.ImagePath != ""
}

// TagIDs returns the IDs of the recipe's tags, in order.
func (r *Recipe) TagIDs() []string {
	ids := make([]string, len(r.Tags))
	for i, t := range r.Tags {
		ids[i] = t.ID
	}
	return ids
}

// IngredientIDs returns the IDs of the recipe's ingredients, in order.
func (r *Recipe) IngredientIDs() []string {
	ids := make([]string, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		ids[i] = ing.ID
	}
	return ids
}
