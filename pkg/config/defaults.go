package config

const (
	defaultConfigPath  = "~/.config/crops3d/config.toml"
	projectConfigName  = "crops3d.toml"
	defaultSource      = "Crops3D/Crops3D"
	defaultTarget      = "."
	defaultExtension   = ".ply"
	defaultSceneExt    = ".fo3d"
	defaultProgress1st = 5
	defaultProgressN   = 50
	defaultDatasetDir  = "."
	defaultDatasetName = "crops3d"
	defaultLabelField  = "crop_type"
	defaultStorePath   = "~/.local/share/crops3d/datasets.db"
	defaultLogFormat   = "console"
	defaultLogLevel    = "info"
)

// DefaultExpected returns the per-category file counts published with the
// Crops3D release.
func DefaultExpected() map[string]int {
	return map[string]int{
		"Maize":    225,
		"Cabbage":  196,
		"Cotton":   176,
		"Rapeseed": 150,
		"Wheat":    148,
		"Potato":   118,
		"Rice":     84,
		"Tomato":   83,
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Flatten: Flatten{
			Source:        defaultSource,
			Target:        defaultTarget,
			Extension:     defaultExtension,
			ProgressFirst: defaultProgress1st,
			ProgressEvery: defaultProgressN,
			Expected:      DefaultExpected(),
		},
		Dataset: Dataset{
			Dir:            defaultDatasetDir,
			Name:           defaultDatasetName,
			LabelField:     defaultLabelField,
			Extension:      defaultExtension,
			SceneExtension: defaultSceneExt,
			Overwrite:      true,
			StorePath:      defaultStorePath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
