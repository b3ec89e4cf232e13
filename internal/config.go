package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config is the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Workspace DirConfig         `yaml:"workspace"`
	Output    DirConfig         `yaml:"output"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	Export    ExportConfig      `yaml:"export"`
}

func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Workspace.Validate(); err != nil {
		return fmt.Errorf("workspace: %w", err)
	}
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if err := c.SQLite.Validate(); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	if err := c.Export.Validate(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds process-level settings.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns the listen address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// DirConfig points at a directory. Workspace holds model sources, output
// receives MDL files; they may be the same directory.
type DirConfig struct {
	Path string `yaml:"path"`
}

func (c *DirConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// ExportConfig tunes MDL exports.
type ExportConfig struct {
	// HeaderTitle is written into the leading comment block of every file.
	HeaderTitle string `yaml:"header_title"`
	// MaxBufferBytes caps the size of one exported file. Zero means no cap.
	MaxBufferBytes int `yaml:"max_buffer_bytes"`
	Concurrency    int `yaml:"concurrency"`
	// Watch re-exports sources when they change on disk.
	Watch bool `yaml:"watch"`
}

func (c *ExportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxBufferBytes, validation.Min(0)),
		validation.Field(&c.Concurrency, validation.Required, validation.Min(1), validation.Max(64)),
	)
}

// AuthConfig controls API authentication. Mode "disabled" (the default)
// lets every request through; "token" requires a Bearer token.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled reports whether requests must carry a token.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns the configuration used when no file overrides it.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP:     HTTPConfig{Port: 8080},
		},
		Workspace: DirConfig{Path: "./models"},
		Output:    DirConfig{Path: "./export"},
		SQLite:    SQLiteConfig{Path: "./mdlforge.db"},
		Auth:      AuthConfig{Mode: AuthModeDisabled},
		Export: ExportConfig{
			HeaderTitle:    "Exported by mdlforge",
			MaxBufferBytes: 64 << 20,
			Concurrency:    4,
			Watch:          true,
		},
	}
}
