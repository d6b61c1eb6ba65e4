package config

import (
	"fmt"
	"os"

	"github.com/BartekS5/crmmigrate/pkg/models"
)

// LoadCatalog reads the entity catalog file at filePath. An empty path gives
// the default Copper catalog.
func LoadCatalog(filePath string) (*models.Catalog, error) {
	if filePath == "" {
		return models.DefaultCatalog(), nil
	}

	// 1. Read the file from disk
	bytes, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file '%s': %w", filePath, err)
	}

	// 2. Parse it over the defaults
	catalog, err := models.ParseCatalog(bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog file '%s': %w", filePath, err)
	}
	return catalog, nil
}
