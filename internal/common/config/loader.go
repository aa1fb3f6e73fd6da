package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "postergen/internal/common/errors"
)

// LoadRoot reads the top-level configuration file (INI) that names the maps
// folder and logging settings.
func LoadRoot(path string) (*RootConfig, error) {
	loadEnvFile()

	v, err := readINI(path)
	if err != nil {
		return nil, err
	}

	cfg := &RootConfig{
		MapsFolder: v.GetString("maps.folder"),
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}
	if cfg.MapsFolder == "" {
		cfg.MapsFolder = "./maps"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	return cfg, nil
}

// LoadMap reads one map configuration file (INI) plus the data-source file it
// points at, and validates the result. All relative paths inside the map are
// resolved against the map file's directory.
func LoadMap(path string) (*Config, error) {
	loadEnvFile()

	v, err := readINI(path)
	if err != nil {
		return nil, err
	}
	baseDir := filepath.Dir(path)

	cfg := &Config{
		Templates:    map[string]string{},
		FieldMapping: v.GetStringMapString("profile_map"),
		Defaults:     v.GetStringMapString("profile_defaults"),
		Output: OutputConfig{
			Folder:     v.GetString("output.folder"),
			FilePrefix: v.GetString("output.file_prefix"),
			Formats:    splitList(v.GetString("output.formats")),
		},
		Profile: ProfileConfig{
			Fields:   splitFields(v.GetString("profile.fields")),
			CacheDir: v.GetString("profile.cache"),
			AgeFrom:  v.GetString("profile.age_from"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	for key, p := range v.GetStringMapString("input_templates") {
		cfg.Templates[key] = resolvePath(baseDir, p)
	}

	dsFile := v.GetString("datasource.file")
	if dsFile == "" {
		return nil, apperrors.NewConfigInvalidError("datasource.file is required")
	}
	dsFile = resolvePath(baseDir, dsFile)

	ds, err := loadDataSource(dsFile)
	if err != nil {
		return nil, err
	}
	cfg.DataSource = *ds

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDataSource reads the per-provider configuration layer.
func loadDataSource(path string) (*DataSourceConfig, error) {
	v, err := readINI(path)
	if err != nil {
		return nil, err
	}
	baseDir := filepath.Dir(path)

	ds := &DataSourceConfig{
		File: path,
		Provider: ProviderConfig{
			Name:    v.GetString("provider.name"),
			Handler: v.GetString("provider.handler"),
		},
		Sheet: SheetConfig{
			ID:             v.GetString("sheet.id"),
			PageName:       v.GetString("sheet.page_name"),
			ColumnNamesRow: v.GetInt("sheet.column_names_row"),
		},
		Account: AccountConfig{
			KeysFile: v.GetString("account.keys_file"),
		},
		CSV: CSVConfig{
			Path: v.GetString("csv.path"),
		},
		Postgres: PostgresConfig{
			DSN:   v.GetString("postgres.dsn"),
			Table: v.GetString("postgres.table"),
		},
	}
	if ds.Account.KeysFile != "" {
		ds.Account.KeysFile = resolvePath(baseDir, ds.Account.KeysFile)
	}
	if ds.CSV.Path != "" {
		ds.CSV.Path = resolvePath(baseDir, ds.CSV.Path)
	}
	return ds, nil
}

func readINI(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, apperrors.NewConfigInvalidError(fmt.Sprintf("read %s: %v", path, err))
	}
	return v, nil
}

// loadEnvFile loads a .env file when present; system environment wins.
func loadEnvFile() {
	for _, p := range []string{".env", "../.env"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Output.Folder == "" {
		cfg.Output.Folder = "."
	}
	if len(cfg.Output.Formats) == 0 {
		cfg.Output.Formats = append([]string(nil), KnownFormats...)
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.DataSource.Sheet.ColumnNamesRow == 0 {
		cfg.DataSource.Sheet.ColumnNamesRow = 1
	}
}

// validate rejects structurally broken configuration before any I/O happens.
func validate(cfg *Config) error {
	if cfg.DataSource.Provider.Handler == "" {
		return apperrors.NewConfigInvalidError("provider.handler is required")
	}
	if len(cfg.Templates) == 0 {
		return apperrors.NewConfigInvalidError("input_templates must name at least one template")
	}
	if len(cfg.Profile.Fields) == 0 {
		return apperrors.NewConfigInvalidError("profile.fields is required")
	}
	if d := cfg.Profile.CacheDir; d != "" && strings.HasSuffix(d, string(os.PathSeparator)) {
		return apperrors.NewConfigInvalidError("profile.cache must not end in a path separator")
	}
	for _, f := range cfg.Output.Formats {
		if !IsKnownFormat(f) {
			return apperrors.NewConfigInvalidError(fmt.Sprintf("unknown output format %q", f))
		}
	}
	if len(cfg.FieldMapping) == 0 {
		return apperrors.NewConfigInvalidError("profile_map must not be empty")
	}
	return nil
}

// splitFields splits the order-significant field list, keeping empty entries.
// A leading empty entry marks an unused first column.
func splitFields(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// splitList splits a comma list, dropping empty entries.
func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}

func resolvePath(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
