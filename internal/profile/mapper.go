// Package profile turns raw positional rows into named records and derives
// the placeholder table used for template substitution.
package profile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"postergen/internal/common/config"
	apperrors "postergen/internal/common/errors"
)

// Record maps field name to raw value for one case. Built once per pipeline
// invocation and treated as immutable afterwards.
type Record map[string]string

// Mapper owns the ordered field list and the placeholder mapping for one
// configured map. Placeholder names are case-insensitive; field names are
// not.
type Mapper struct {
	fields   []string
	mapping  map[string]string
	defaults map[string]string
	ageFrom  string

	// now is swappable for tests of the derived age.
	now func() time.Time
}

// NewMapper validates the structural mapping invariants that need no
// template contents: a case_id entry must exist and every referenced field
// must appear in the field list.
func NewMapper(cfg *config.Config) (*Mapper, error) {
	m := &Mapper{
		fields:   cfg.Profile.Fields,
		mapping:  make(map[string]string, len(cfg.FieldMapping)),
		defaults: make(map[string]string, len(cfg.Defaults)),
		ageFrom:  cfg.Profile.AgeFrom,
		now:      time.Now,
	}
	for ph, field := range cfg.FieldMapping {
		m.mapping[strings.ToLower(ph)] = field
	}
	for ph, val := range cfg.Defaults {
		m.defaults[strings.ToLower(ph)] = val
	}

	if _, ok := m.mapping[config.CaseIDPlaceholder]; !ok {
		return nil, apperrors.NewMappingInvalidError("profile_map is missing the case_id entry")
	}

	known := make(map[string]bool, len(m.fields))
	for _, f := range m.fields {
		if f != "" {
			known[f] = true
		}
	}
	for ph, field := range m.mapping {
		if !known[field] {
			return nil, apperrors.NewMappingInvalidError(
				fmt.Sprintf("placeholder %q references field %q which is not in profile.fields", ph, field))
		}
	}
	if m.ageFrom != "" && !known[m.ageFrom] {
		return nil, apperrors.NewMappingInvalidError(
			fmt.Sprintf("profile.age_from references field %q which is not in profile.fields", m.ageFrom))
	}
	return m, nil
}

// FieldCount returns the configured field list length, the expected row width.
func (m *Mapper) FieldCount() int {
	return len(m.fields)
}

// KeyColumn returns the 1-based column holding case identifiers, derived
// from the case_id mapping entry.
func (m *Mapper) KeyColumn() (int, error) {
	field := m.mapping[config.CaseIDPlaceholder]
	for i, f := range m.fields {
		if f == field {
			return i + 1, nil
		}
	}
	return 0, apperrors.NewMappingInvalidError(
		fmt.Sprintf("case_id field %q is not in profile.fields", field))
}

// BuildRecord zips the field list with a raw row by position. Unused (empty)
// field names produce no record entry. Length mismatch is a schema error.
func (m *Mapper) BuildRecord(row []string) (Record, error) {
	if len(row) != len(m.fields) {
		return nil, apperrors.NewSchemaMismatchError(len(m.fields), len(row))
	}
	rec := make(Record, len(m.fields))
	for i, field := range m.fields {
		if field == "" {
			continue
		}
		rec[field] = row[i]
	}
	return rec, nil
}

// CaseID extracts the case identifier from a record via the case_id mapping
// entry. An empty identifier is a mapping error.
func (m *Mapper) CaseID(rec Record) (string, error) {
	field := m.mapping[config.CaseIDPlaceholder]
	id, ok := rec[field]
	if !ok || id == "" {
		return "", apperrors.NewMappingInvalidError(
			fmt.Sprintf("case_id field %q resolved to an empty value", field))
	}
	return id, nil
}

// DerivePlaceholders builds the placeholder table for a record. Every
// mapping key is present in the table; values may be empty. A field absent
// from the record is a configuration inconsistency.
func (m *Mapper) DerivePlaceholders(rec Record) (map[string]string, error) {
	table := make(map[string]string, len(m.mapping)+1)
	for ph, field := range m.mapping {
		val, ok := rec[field]
		if !ok {
			return nil, apperrors.NewMappingInvalidError(
				fmt.Sprintf("placeholder %q references field %q which is absent from the record", ph, field))
		}
		table[ph] = val
	}
	if table[config.CaseIDPlaceholder] == "" {
		return nil, apperrors.NewMappingInvalidError("case_id resolved to an empty value")
	}

	if m.ageFrom != "" {
		table[config.AgePlaceholder] = m.deriveAge(rec[m.ageFrom])
	}

	for ph, def := range m.defaults {
		if table[ph] == "" {
			table[ph] = def
		}
	}
	return table, nil
}

// Validate runs the eager mapping validation pass across all configured
// templates, before any rendering begins. tokens maps template key to the
// placeholder tokens found in that template. A mapping entry no template
// uses indicates configuration drift and is rejected; a template token with
// no mapping entry is fine (it stays literal in the output).
func (m *Mapper) Validate(tokens map[string][]string) error {
	used := make(map[string]bool)
	for _, names := range tokens {
		for _, n := range names {
			used[strings.ToLower(n)] = true
		}
	}
	for ph := range m.mapping {
		// case_id names the output files; it does not have to appear
		// inside a template.
		if ph == config.CaseIDPlaceholder {
			continue
		}
		if !used[ph] {
			return apperrors.NewMappingInvalidError(
				fmt.Sprintf("placeholder %q is not used by any configured template", ph))
		}
	}
	return nil
}

func (m *Mapper) deriveAge(birthYear string) string {
	year, err := strconv.Atoi(strings.TrimSpace(birthYear))
	if err != nil || year <= 0 {
		return ""
	}
	return strconv.Itoa(m.now().Year() - year)
}
