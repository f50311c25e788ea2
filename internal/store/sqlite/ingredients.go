package sqlite

import (
	"context"
	"database/sql"

	"github.com/ladleapp/ladle-server/internal/domain"
	"github.com/ladleapp/ladle-server/internal/store"
)

// ingredientColumns is the ordered list of columns selected in ingredient queries.
// Must match the scan order in scanIngredient.
const ingredientColumns = `id, user_id, name, created_at, updated_at`

// scanIngredient scans a sql.Row (or sql.Rows via its Scan method) into a domain.Ingredient.
func scanIngredient(scanner interface{ Scan(dest ...any) error }) (*domain.Ingredient, error) {
	var ing domain.Ingredient

	var (
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&ing.ID,
		&ing.UserID,
		&ing.Name,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	ing.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	ing.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &ing, nil
}

// CreateIngredient inserts a new ingredient into the database.
// Returns store.ErrAlreadyExists if the user already has an ingredient with
// the same name (case-insensitive).
func (s *Store) CreateIngredient(ctx context.Context, ing *domain.Ingredient) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingredients (id, user_id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		ing.ID,
		ing.UserID,
		ing.Name,
		formatTime(ing.CreatedAt),
		formatTime(ing.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetIngredient retrieves an ingredient owned by the given user.
// Returns store.ErrNotFound if no such ingredient exists for this user.
func (s *Store) GetIngredient(ctx context.Context, userID, ingredientID string) (*domain.Ingredient, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+ingredientColumns+` FROM ingredients WHERE id = ? AND user_id = ?`,
		ingredientID, userID)

	ing, err := scanIngredient(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ing, nil
}

// GetIngredientsByIDs returns the user's ingredients matching the given IDs.
// IDs that don't exist or belong to another user are silently absent from
// the result; callers compare lengths to detect them.
func (s *Store) GetIngredientsByIDs(ctx context.Context, userID string, ingredientIDs []string) ([]*domain.Ingredient, error) {
	if len(ingredientIDs) == 0 {
		return []*domain.Ingredient{}, nil
	}

	args := make([]any, 0, len(ingredientIDs)+1)
	args = append(args, userID)
	for _, id := range ingredientIDs {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ingredientColumns+` FROM ingredients WHERE user_id = ? AND id IN (`+placeholders(len(ingredientIDs))+`)`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ingredients []*domain.Ingredient
	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, err
		}
		ingredients = append(ingredients, ing)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if ingredients == nil {
		ingredients = []*domain.Ingredient{}
	}

	return ingredients, nil
}

// ListIngredients returns the user's ingredients ordered by name descending.
func (s *Store) ListIngredients(ctx context.Context, userID string) ([]*domain.Ingredient, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ingredientColumns+` FROM ingredients WHERE user_id = ? ORDER BY name DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ingredients []*domain.Ingredient
	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, err
		}
		ingredients = append(ingredients, ing)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if ingredients == nil {
		ingredients = []*domain.Ingredient{}
	}

	return ingredients, nil
}

// UpdateIngredient persists changes to an existing ingredient, scoped to its owner.
// Returns store.ErrNotFound if the ingredient does not exist for this user,
// or store.ErrAlreadyExists on a name collision.
func (s *Store) UpdateIngredient(ctx context.Context, ing *domain.Ingredient) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ingredients SET name = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		ing.Name,
		formatTime(ing.UpdatedAt),
		ing.ID,
		ing.UserID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteIngredient removes an ingredient owned by the given user.
// Associations in recipe_ingredients are removed by ON DELETE CASCADE.
// Returns store.ErrNotFound if no such ingredient exists for this user.
func (s *Store) DeleteIngredient(ctx context.Context, userID, ingredientID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM ingredients WHERE id = ? AND user_id = ?`, ingredientID, userID)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}
