package providers

import (
	"github.com/samber/do/v2"

	"github.com/ladleapp/ladle-server/internal/config"
	"github.com/ladleapp/ladle-server/internal/logger"
	"github.com/ladleapp/ladle-server/internal/media/images"
)

// ImageStorages groups the image storage directories.
type ImageStorages struct {
	RecipeImages *images.Storage
}

// ProvideImageStorages provides the on-disk image storage.
func ProvideImageStorages(i do.Injector) (*ImageStorages, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	recipeImages, err := images.NewStorage(cfg.Data.BasePath)
	if err != nil {
		return nil, err
	}

	log.Info("Image storage initialized", "base_path", cfg.Data.BasePath)

	return &ImageStorages{RecipeImages: recipeImages}, nil
}

// ProvideImageProcessor provides the recipe image processor.
func ProvideImageProcessor(i do.Injector) (*images.Processor, error) {
	storages := do.MustInvoke[*ImageStorages](i)
	log := do.MustInvoke[*logger.Logger](i)

	return images.NewProcessor(storages.RecipeImages, log.Logger), nil
}
