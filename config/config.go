package config

// Defaults is implemented by config sections that provide default values
// written back to the config file on first boot.
type Defaults interface {
	Defaults() map[string]any
}

// Validator is implemented by config sections that check themselves after
// unmarshalling.
type Validator interface {
	Validate() error
}

type Config struct {
	Core CoreConfig `mapstructure:"core"`
}

type Manager interface {
	Init() error
	Config() *Config
	Save() error
	ConfigFile() string
	ConfigDir() string
}
