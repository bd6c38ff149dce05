package config

// DefaultDestinationFormat is the strftime-style template handed to
// exiftool when the operator does not override it. %%-uc is exiftool's
// collision counter and %%e the inferred extension; duplicate elimination
// only runs against names produced by this exact template.
const DefaultDestinationFormat = `%Y/%m/%Y%m%d_%H%M%S%%-uc.%%e`

// Config holds the application configuration.
type Config struct {
	SourcePath      string     `yaml:"sourcePath" validate:"required"`
	DestinationPath string     `yaml:"destinationPath" validate:"required"`
	Rename          Rename     `yaml:"rename"`
	Watcher         Watcher    `yaml:"watcher"`
	Logger          Logger     `yaml:"logger"`
	Server          Server     `yaml:"server"`
	History         History    `yaml:"history"`
	Telegram        Telegram   `yaml:"telegram"`
	Thumbnails      Thumbnails `yaml:"thumbnails"`
	Jobs            Jobs       `yaml:"jobs"`
}

// Rename holds the settings consumed by the rename-and-dedup executor.
type Rename struct {
	// Format is the destination filename template, relative to
	// DestinationPath. Overridable with the FORMAT env var.
	Format string `yaml:"format"`
	// DeleteDuplicates enables removal of byte-identical collision copies.
	// Overridable with the DELETE_DUPLICATE env var.
	DeleteDuplicates bool `yaml:"delete_duplicates"`
	// Locale is forced into LC_ALL for the exiftool subprocess.
	// Overridable with the LOCALE env var.
	Locale       string `yaml:"locale"`
	ExiftoolPath string `yaml:"exiftool_path"`
	Workers      int    `yaml:"workers" validate:"gte=1"`
}

// Watcher holds the stability detector timings.
type Watcher struct {
	// QuietPeriodSeconds is how long a file must stay unchanged before it
	// is judged complete.
	QuietPeriodSeconds int `yaml:"quiet_period_seconds" validate:"gte=1"`
	// RecheckSeconds is the delay before re-running the stability sweep
	// while files are still settling.
	RecheckSeconds int `yaml:"recheck_seconds" validate:"gte=1"`
}

// Logger holds the configuration for the app logging
type Logger struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
}

// Server holds the configuration for the Fiber server
type Server struct {
	Enabled     bool   `yaml:"enabled"`
	PrintRoutes bool   `yaml:"show_routes"`
	Port        uint32 `yaml:"port"`
}

// History holds the configuration for the rename history store
type History struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type Telegram struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  int64  `yaml:"chat_id"`
}

// Thumbnails holds the configuration for preview generation
type Thumbnails struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Size    int    `yaml:"size"`
	Quality int    `yaml:"quality"`
}

type Jobs struct {
	Log     bool   `yaml:"log"`
	LogPath string `yaml:"log_path"`
}
