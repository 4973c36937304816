package datalake

// MountPath is the settings section the data lake reads.
const MountPath = "datalake"

// Config describes where the data lake keeps its files and how records are
// keyed. Unknown keys are kept in Extra.
type Config struct {
	DataDirectory    string         `koanf:"data_directory" validate:"required"`
	TimeseriesColumn string         `koanf:"timeseries_column" validate:"required"`
	KeyColumn        string         `koanf:"key_column" validate:"required"`
	SupportedTypes   []string       `koanf:"supported_types" validate:"required,min=1,dive,required"`
	Extra            map[string]any `koanf:",remain,omitempty"`
}

func (*Config) RootMountPath() string { return MountPath }
