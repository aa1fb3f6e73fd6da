package config

import "strings"

// Config is the immutable per-map configuration. It is built once by the
// loader and passed to every component constructor.
type Config struct {
	// DataSource is loaded from the file named by datasource.file.
	DataSource DataSourceConfig

	// Templates maps a template key (e.g. "print", "instagram") to the
	// template file path.
	Templates map[string]string

	Output  OutputConfig
	Profile ProfileConfig

	// FieldMapping maps placeholder name to field name (profile_map section).
	FieldMapping map[string]string

	// Defaults supplies placeholder values used when the mapped field
	// resolves empty (profile_defaults section).
	Defaults map[string]string

	Logging LoggingConfig
}

// OutputConfig describes where and how poster files are written.
type OutputConfig struct {
	Folder     string
	FilePrefix string
	Formats    []string
}

// ProfileConfig describes the field list, cache location and derived fields.
type ProfileConfig struct {
	// Fields is the ordered column-to-field association. An empty entry
	// marks an unused column.
	Fields []string

	// CacheDir is the profile cache directory. Empty disables the cache.
	// Must not carry a trailing path separator.
	CacheDir string

	// AgeFrom names the field holding a birth year; when set, the derived
	// placeholder "age" is computed from it.
	AgeFrom string
}

// DataSourceConfig is the second configuration layer, read from the file
// named by datasource.file in the map configuration.
type DataSourceConfig struct {
	File     string
	Provider ProviderConfig
	Sheet    SheetConfig
	Account  AccountConfig
	CSV      CSVConfig
	Postgres PostgresConfig
}

type ProviderConfig struct {
	Name    string
	Handler string
}

type SheetConfig struct {
	ID             string
	PageName       string
	ColumnNamesRow int
}

type AccountConfig struct {
	KeysFile string
}

type CSVConfig struct {
	Path string
}

type PostgresConfig struct {
	DSN   string
	Table string
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string
	Format string
}

// RootConfig is the top-level configuration pointing at the maps folder.
type RootConfig struct {
	MapsFolder string
	Logging    LoggingConfig
}

// CaseIDPlaceholder is the one mapping entry every profile_map must carry.
const CaseIDPlaceholder = "case_id"

// AgePlaceholder is the derived placeholder produced by profile.age_from.
const AgePlaceholder = "age"

// KnownFormats are the output formats the converter supports.
var KnownFormats = []string{"svg", "png", "pdf"}

// IsKnownFormat reports whether f names a supported output format.
func IsKnownFormat(f string) bool {
	for _, k := range KnownFormats {
		if strings.EqualFold(f, k) {
			return true
		}
	}
	return false
}
