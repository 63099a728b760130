package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.Flatten.Extension = normalizeExt(c.Flatten.Extension, defaultExtension)
	c.Dataset.Extension = normalizeExt(c.Dataset.Extension, defaultExtension)
	c.Dataset.SceneExtension = normalizeExt(c.Dataset.SceneExtension, defaultSceneExt)
	if c.Flatten.Expected == nil {
		c.Flatten.Expected = map[string]int{}
	}
	c.Dataset.Name = strings.TrimSpace(c.Dataset.Name)
	c.Dataset.LabelField = strings.TrimSpace(c.Dataset.LabelField)

	if env := strings.TrimSpace(os.Getenv(StoreEnv)); env != "" {
		c.Dataset.StorePath = env
	}
	var err error
	if c.Dataset.StorePath, err = expandPath(c.Dataset.StorePath); err != nil {
		return fmt.Errorf("dataset.store_path: %w", err)
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}

func normalizeExt(ext, fallback string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return fallback
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
