package images

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"log/slog"

	_ "golang.org/x/image/webp" // Register WebP decoder
)

// jpegQuality is used when normalizing uploads to JPEG.
const jpegQuality = 85

// Processor validates uploaded images and stores them as normalized JPEGs.
type Processor struct {
	storage *Storage
	logger  *slog.Logger
}

// NewProcessor creates a new Processor instance.
func NewProcessor(storage *Storage, logger *slog.Logger) *Processor {
	return &Processor{
		storage: storage,
		logger:  logger,
	}
}

// Decode parses uploaded image bytes. The format is detected from the
// payload itself, not from the filename or Content-Type. Returns the
// decoded image and the detected format name (jpeg, png, gif, webp).
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("image data cannot be empty")
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	return img, format, nil
}

// Process validates, normalizes, and stores an uploaded image for a recipe.
// All uploads are re-encoded as JPEG so the stored file matches its
// extension regardless of the upload format. Returns the stored filename
// and the BlurHash placeholder string.
func (p *Processor) Process(recipeID string, data []byte) (string, string, error) {
	img, format, err := Decode(data)
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", "", fmt.Errorf("encode jpeg: %w", err)
	}

	if err := p.storage.Save(recipeID, buf.Bytes()); err != nil {
		return "", "", fmt.Errorf("save image: %w", err)
	}

	hash, err := ComputeBlurHash(img)
	if err != nil {
		// The image is already stored, a missing placeholder is not fatal.
		p.logger.Warn("failed to compute blurhash",
			"recipe_id", recipeID,
			"error", err,
		)
		hash = ""
	}

	p.logger.Debug("processed recipe image",
		"recipe_id", recipeID,
		"format", format,
		"size", buf.Len(),
	)

	return p.storage.Filename(recipeID), hash, nil
}

// Remove deletes the stored image for a recipe, if any.
func (p *Processor) Remove(recipeID string) error {
	return p.storage.Delete(recipeID)
}

// Image returns the stored image bytes for a recipe.
func (p *Processor) Image(recipeID string) ([]byte, error) {
	return p.storage.Get(recipeID)
}

// ImageHash returns the SHA256 hash of the stored image, for ETag headers.
func (p *Processor) ImageHash(recipeID string) (string, error) {
	return p.storage.Hash(recipeID)
}
