package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postergen/internal/common/config"
	apperrors "postergen/internal/common/errors"
)

// ==========================
// Test Helper Functions
// ==========================

func testConfig() *config.Config {
	return &config.Config{
		Profile: config.ProfileConfig{
			Fields: []string{"", "Case ID", "Given Name", "Year of Birth"},
		},
		FieldMapping: map[string]string{
			"case_id": "Case ID",
			"name":    "Given Name",
		},
	}
}

func newTestMapper(t *testing.T, cfg *config.Config) *Mapper {
	t.Helper()
	m, err := NewMapper(cfg)
	require.NoError(t, err)
	return m
}

// ==========================
// Construction Tests
// ==========================

func TestNewMapper_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *config.Config)
		wantErr bool
	}{
		{
			name:   "valid mapping",
			mutate: func(cfg *config.Config) {},
		},
		{
			name: "missing case_id entry",
			mutate: func(cfg *config.Config) {
				delete(cfg.FieldMapping, "case_id")
			},
			wantErr: true,
		},
		{
			name: "placeholder references unknown field",
			mutate: func(cfg *config.Config) {
				cfg.FieldMapping["city"] = "Home Town"
			},
			wantErr: true,
		},
		{
			name: "age_from references unknown field",
			mutate: func(cfg *config.Config) {
				cfg.Profile.AgeFrom = "Birth Year"
			},
			wantErr: true,
		},
		{
			name: "age_from references known field",
			mutate: func(cfg *config.Config) {
				cfg.Profile.AgeFrom = "Year of Birth"
			},
		},
		{
			name: "case_id spelled with different case",
			mutate: func(cfg *config.Config) {
				delete(cfg.FieldMapping, "case_id")
				cfg.FieldMapping["Case_ID"] = "Case ID"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			_, err := NewMapper(cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsMappingInvalid(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMapper_KeyColumn(t *testing.T) {
	m := newTestMapper(t, testConfig())
	col, err := m.KeyColumn()
	require.NoError(t, err)
	assert.Equal(t, 2, col, "key column is 1-based")
	assert.Equal(t, 4, m.FieldCount())
}

// ==========================
// Record Building Tests
// ==========================

func TestMapper_BuildRecord(t *testing.T) {
	m := newTestMapper(t, testConfig())

	rec, err := m.BuildRecord([]string{"ignored", "2021-05-04", "Jane Doe", "1980"})
	require.NoError(t, err)

	assert.Equal(t, "2021-05-04", rec["Case ID"])
	assert.Equal(t, "Jane Doe", rec["Given Name"])
	_, hasUnused := rec[""]
	assert.False(t, hasUnused, "empty field names mark skipped columns")
}

func TestMapper_BuildRecord_WidthMismatch(t *testing.T) {
	m := newTestMapper(t, testConfig())

	for _, row := range [][]string{
		{"a", "b", "c"},
		{"a", "b", "c", "d", "e"},
		{},
	} {
		_, err := m.BuildRecord(row)
		require.Error(t, err)
		assert.True(t, apperrors.IsSchemaMismatch(err))
	}
}

func TestMapper_CaseID(t *testing.T) {
	m := newTestMapper(t, testConfig())

	id, err := m.CaseID(Record{"Case ID": "2021-05-04"})
	require.NoError(t, err)
	assert.Equal(t, "2021-05-04", id)

	_, err = m.CaseID(Record{"Case ID": ""})
	assert.True(t, apperrors.IsMappingInvalid(err))
}

// ==========================
// Placeholder Derivation Tests
// ==========================

func TestMapper_DerivePlaceholders(t *testing.T) {
	cfg := testConfig()
	cfg.Profile.AgeFrom = "Year of Birth"
	cfg.Defaults = map[string]string{"name": "Unknown"}

	m := newTestMapper(t, cfg)
	m.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

	table, err := m.DerivePlaceholders(Record{
		"Case ID":       "2021-05-04",
		"Given Name":    "Jane Doe",
		"Year of Birth": "1980",
	})
	require.NoError(t, err)
	assert.Equal(t, "2021-05-04", table["case_id"])
	assert.Equal(t, "Jane Doe", table["name"])
	assert.Equal(t, "44", table["age"])
}

func TestMapper_DerivePlaceholders_DefaultFillsEmpty(t *testing.T) {
	cfg := testConfig()
	cfg.Defaults = map[string]string{"name": "Unknown"}
	m := newTestMapper(t, cfg)

	table, err := m.DerivePlaceholders(Record{
		"Case ID":       "2021-05-04",
		"Given Name":    "",
		"Year of Birth": "",
	})
	require.NoError(t, err)
	assert.Equal(t, "Unknown", table["name"])
}

func TestMapper_DerivePlaceholders_EmptyCaseID(t *testing.T) {
	m := newTestMapper(t, testConfig())

	_, err := m.DerivePlaceholders(Record{
		"Case ID":    "",
		"Given Name": "Jane Doe",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsMappingInvalid(err))
}

func TestMapper_DerivePlaceholders_MissingField(t *testing.T) {
	m := newTestMapper(t, testConfig())

	// A cached record written by an older field list can miss a field the
	// current mapping references.
	_, err := m.DerivePlaceholders(Record{"Case ID": "2021-05-04"})
	require.Error(t, err)
	assert.True(t, apperrors.IsMappingInvalid(err))
}

func TestMapper_DeriveAge_Unparseable(t *testing.T) {
	cfg := testConfig()
	cfg.Profile.AgeFrom = "Year of Birth"
	m := newTestMapper(t, cfg)

	table, err := m.DerivePlaceholders(Record{
		"Case ID":       "2021-05-04",
		"Given Name":    "Jane Doe",
		"Year of Birth": "circa 1980",
	})
	require.NoError(t, err)
	assert.Equal(t, "", table["age"], "unparseable birth years derive an empty age")
}

// ==========================
// Template Usage Validation Tests
// ==========================

func TestMapper_Validate(t *testing.T) {
	m := newTestMapper(t, testConfig())

	tests := []struct {
		name    string
		tokens  map[string][]string
		wantErr bool
	}{
		{
			name:   "all placeholders used",
			tokens: map[string][]string{"print": {"name"}},
		},
		{
			name:   "used across templates",
			tokens: map[string][]string{"print": {"NAME"}, "web": {}},
		},
		{
			name:    "mapping entry no template uses",
			tokens:  map[string][]string{"print": {"other"}},
			wantErr: true,
		},
		{
			name: "case_id never needs to appear in a template",
			tokens: map[string][]string{
				"print": {"name"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Validate(tt.tokens)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsMappingInvalid(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
