package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/EvgeniyStrigo/skyscanner-app/pkg/engine"
)

// journeysFile is the on-disk shape of a journey definition file.
type journeysFile struct {
	Journeys []engine.Journey `yaml:"journeys" validate:"required,min=1,dive"`
}

// LoadJourneys reads and validates a journey definition file.
func LoadJourneys(path string) ([]engine.Journey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read journeys file: %w", err)
	}

	var file journeysFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse journeys file: %w", err)
	}

	if err := validator.New().Struct(&file); err != nil {
		return nil, fmt.Errorf("invalid journeys file: %w", err)
	}

	return file.Journeys, nil
}
