package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateFlatten(); err != nil {
		return err
	}
	if err := c.validateDataset(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateFlatten() error {
	if c.Flatten.ProgressFirst < 0 {
		return errors.New("flatten.progress_first must not be negative")
	}
	if c.Flatten.ProgressEvery < 1 {
		return errors.New("flatten.progress_every must be at least 1")
	}
	for category, n := range c.Flatten.Expected {
		if n < 0 {
			return fmt.Errorf("flatten.expected.%s must not be negative", category)
		}
	}
	return nil
}

func (c *Config) validateDataset() error {
	if c.Dataset.Name == "" {
		return errors.New("dataset.name must be set")
	}
	if c.Dataset.LabelField == "" {
		return errors.New("dataset.label_field must be set")
	}
	if c.Dataset.Extension == c.Dataset.SceneExtension {
		return fmt.Errorf("dataset.scene_extension %q must differ from dataset.extension", c.Dataset.SceneExtension)
	}
	if c.Dataset.StorePath == "" {
		return errors.New("dataset.store_path must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
