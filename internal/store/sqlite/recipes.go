package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ladleapp/ladle-server/internal/domain"
	"github.com/ladleapp/ladle-server/internal/store"
)

// recipeColumns is the ordered list of columns selected in recipe queries.
// Must match the scan order in scanRecipe.
const recipeColumns = `id, user_id, title, time_minutes, price, description, link, image_path, image_blurhash, created_at, updated_at`

// scanRecipe scans a sql.Row (or sql.Rows via its Scan method) into a domain.Recipe.
// Tags and Ingredients are left nil; callers load them separately.
func scanRecipe(scanner interface{ Scan(dest ...any) error }) (*domain.Recipe, error) {
	var r domain.Recipe

	var (
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&r.ID,
		&r.UserID,
		&r.Title,
		&r.TimeMinutes,
		&r.Price,
		&r.Description,
		&r.Link,
		&r.ImagePath,
		&r.ImageBlurHash,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	r.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &r, nil
}

// CreateRecipe inserts a new recipe and its tag/ingredient associations in a
// single transaction.
func (s *Store) CreateRecipe(ctx context.Context, r *domain.Recipe) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO recipes (id, user_id, title, time_minutes, price, description, link, image_path, image_blurhash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.UserID,
		r.Title,
		r.TimeMinutes,
		r.Price,
		r.Description,
		r.Link,
		r.ImagePath,
		r.ImageBlurHash,
		formatTime(r.CreatedAt),
		formatTime(r.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("insert recipe: %w", err)
	}

	if err := replaceRecipeAssociations(ctx, tx, r); err != nil {
		return err
	}

	return tx.Commit()
}

// GetRecipe retrieves a recipe owned by the given user, with its tags and
// ingredients loaded.
// Returns store.ErrNotFound if no such recipe exists for this user.
func (s *Store) GetRecipe(ctx context.Context, userID, recipeID string) (*domain.Recipe, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recipeColumns+` FROM recipes WHERE id = ? AND user_id = ?`,
		recipeID, userID)

	r, err := scanRecipe(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadRecipeAssociations(ctx, []*domain.Recipe{r}); err != nil {
		return nil, err
	}

	return r, nil
}

// ListRecipes returns the user's recipes, newest first, with associations
// loaded. Filter tag and ingredient IDs are each ORed internally; a recipe
// must satisfy both filters when both are present.
func (s *Store) ListRecipes(ctx context.Context, userID string, filter store.RecipeFilter) ([]*domain.Recipe, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + recipeColumns + ` FROM recipes r WHERE r.user_id = ?`)
	args := []any{userID}

	if len(filter.TagIDs) > 0 {
		sb.WriteString(` AND EXISTS (
			SELECT 1 FROM recipe_tags rt
			WHERE rt.recipe_id = r.id AND rt.tag_id IN (` + placeholders(len(filter.TagIDs)) + `))`)
		for _, id := range filter.TagIDs {
			args = append(args, id)
		}
	}

	if len(filter.IngredientIDs) > 0 {
		sb.WriteString(` AND EXISTS (
			SELECT 1 FROM recipe_ingredients ri
			WHERE ri.recipe_id = r.id AND ri.ingredient_id IN (` + placeholders(len(filter.IngredientIDs)) + `))`)
		for _, id := range filter.IngredientIDs {
			args = append(args, id)
		}
	}

	sb.WriteString(` ORDER BY r.created_at DESC, r.id DESC`)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipes []*domain.Recipe
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if recipes == nil {
		recipes = []*domain.Recipe{}
	}

	if err := s.loadRecipeAssociations(ctx, recipes); err != nil {
		return nil, err
	}

	return recipes, nil
}

// UpdateRecipe persists changes to an existing recipe and replaces its
// associations, scoped to the owner, in a single transaction.
// Returns store.ErrNotFound if the recipe does not exist for this user.
func (s *Store) UpdateRecipe(ctx context.Context, r *domain.Recipe) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE recipes
		SET title = ?, time_minutes = ?, price = ?, description = ?, link = ?, image_path = ?, image_blurhash = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		r.Title,
		r.TimeMinutes,
		r.Price,
		r.Description,
		r.Link,
		r.ImagePath,
		r.ImageBlurHash,
		formatTime(r.UpdatedAt),
		r.ID,
		r.UserID,
	)
	if err != nil {
		return fmt.Errorf("update recipe: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrNotFound
	}

	if err := replaceRecipeAssociations(ctx, tx, r); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteRecipe removes a recipe owned by the given user. Association rows
// are removed by ON DELETE CASCADE.
// Returns store.ErrNotFound if no such recipe exists for this user.
func (s *Store) DeleteRecipe(ctx context.Context, userID, recipeID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM recipes WHERE id = ? AND user_id = ?`, recipeID, userID)
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

// SetRecipeImage updates just the image metadata for a recipe, scoped to
// the owner. Pass empty strings to clear the image.
// Returns store.ErrNotFound if no such recipe exists for this user.
func (s *Store) SetRecipeImage(ctx context.Context, userID, recipeID, imagePath, blurHash string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE recipes SET image_path = ?, image_blurhash = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		imagePath,
		blurHash,
		formatTime(nowUTC()),
		recipeID,
		userID,
	)
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

// replaceRecipeAssociations deletes and reinserts the recipe's tag and
// ingredient rows inside the caller's transaction.
func replaceRecipeAssociations(ctx context.Context, tx *sql.Tx, r *domain.Recipe) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_tags WHERE recipe_id = ?`, r.ID); err != nil {
		return fmt.Errorf("delete recipe_tags: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id = ?`, r.ID); err != nil {
		return fmt.Errorf("delete recipe_ingredients: %w", err)
	}

	now := formatTime(time.Now().UTC())
	for _, t := range r.Tags {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO recipe_tags (recipe_id, tag_id, created_at)
			VALUES (?, ?, ?)`,
			r.ID, t.ID, now,
		)
		if err != nil {
			return fmt.Errorf("insert recipe_tag: %w", err)
		}
	}
	for _, ing := range r.Ingredients {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO recipe_ingredients (recipe_id, ingredient_id, created_at)
			VALUES (?, ?, ?)`,
			r.ID, ing.ID, now,
		)
		if err != nil {
			return fmt.Errorf("insert recipe_ingredient: %w", err)
		}
	}

	return nil
}

// loadRecipeAssociations populates Tags and Ingredients for the given
// recipes in two batched queries.
func (s *Store) loadRecipeAssociations(ctx context.Context, recipes []*domain.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Recipe, len(recipes))
	args := make([]any, 0, len(recipes))
	for _, r := range recipes {
		r.Tags = []domain.Tag{}
		r.Ingredients = []domain.Ingredient{}
		byID[r.ID] = r
		args = append(args, r.ID)
	}
	ph := placeholders(len(recipes))

	rows, err := s.db.QueryContext(ctx, `
		SELECT rt.recipe_id, t.id, t.user_id, t.name, t.created_at, t.updated_at
		FROM recipe_tags rt
		JOIN tags t ON t.id = rt.tag_id
		WHERE rt.recipe_id IN (`+ph+`)
		ORDER BY t.name ASC`, args...)
	if err != nil {
		return fmt.Errorf("query recipe tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var recipeID string
		var t domain.Tag
		var createdAt, updatedAt string
		if err := rows.Scan(&recipeID, &t.ID, &t.UserID, &t.Name, &createdAt, &updatedAt); err != nil {
			return fmt.Errorf("scan recipe tag: %w", err)
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return err
		}
		if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return err
		}
		if r, ok := byID[recipeID]; ok {
			r.Tags = append(r.Tags, t)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	ingRows, err := s.db.QueryContext(ctx, `
		SELECT ri.recipe_id, i.id, i.user_id, i.name, i.created_at, i.updated_at
		FROM recipe_ingredients ri
		JOIN ingredients i ON i.id = ri.ingredient_id
		WHERE ri.recipe_id IN (`+ph+`)
		ORDER BY i.name ASC`, args...)
	if err != nil {
		return fmt.Errorf("query recipe ingredients: %w", err)
	}
	defer ingRows.Close()

	for ingRows.Next() {
		var recipeID string
		var ing domain.Ingredient
		var createdAt, updatedAt string
		if err := ingRows.Scan(&recipeID, &ing.ID, &ing.UserID, &ing.Name, &createdAt, &updatedAt); err != nil {
			return fmt.Errorf("scan recipe ingredient: %w", err)
		}
		if ing.CreatedAt, err = parseTime(createdAt); err != nil {
			return err
		}
		if ing.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return err
		}
		if r, ok := byID[recipeID]; ok {
			r.Ingredients = append(r.Ingredients, ing)
		}
	}
	return ingRows.Err()
}
