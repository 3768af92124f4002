// Package config loads formset definitions from JSON or YAML files. A file
// maps formset names to the prefix, container and bounds of a formset on a
// page, plus optional row template markup and calendar field mapping:
//
//	formsets:
//	  colles:
//	    prefix: form
//	    container: calendrier_colleur_formset
//	    max: 40
//	    originalRows: persisted
//	    calendar:
//	      timezone: Europe/Paris
package config

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store holds the formsets loaded from one or more files.
type Store struct {
	formsets map[string]Formset
}

// Formset configures one registry.
type Formset struct {
	Name   string `json:"-" yaml:"-"`
	Source string `json:"-" yaml:"-"`

	Prefix string `json:"prefix" yaml:"prefix"`
	// Container is the id of the formset element. Tables resolve to their
	// body.
	Container string `json:"container" yaml:"container"`
	// Min and Max override MIN_NUM_FORMS and MAX_NUM_FORMS when set.
	Min *int `json:"min,omitempty" yaml:"min,omitempty"`
	Max *int `json:"max,omitempty" yaml:"max,omitempty"`
	// EnforceMin toggles the removal floor. Nil keeps the default (on).
	EnforceMin *bool `json:"enforceMin,omitempty" yaml:"enforceMin,omitempty"`
	// OriginalRows is "all" (default) or "persisted".
	OriginalRows string `json:"originalRows,omitempty" yaml:"originalRows,omitempty"`
	// Template is row markup in Django template syntax.
	Template    string    `json:"template,omitempty" yaml:"template,omitempty"`
	AddLabel    string    `json:"addLabel,omitempty" yaml:"addLabel,omitempty"`
	DeleteLabel string    `json:"deleteLabel,omitempty" yaml:"deleteLabel,omitempty"`
	Calendar    *Calendar `json:"calendar,omitempty" yaml:"calendar,omitempty"`

	templates fs.FS
}

// Calendar maps row fields onto calendar events.
type Calendar struct {
	Start           string `json:"start,omitempty" yaml:"start,omitempty"`
	End             string `json:"end,omitempty" yaml:"end,omitempty"`
	Duration        string `json:"duration,omitempty" yaml:"duration,omitempty"`
	StudentDuration string `json:"studentDuration,omitempty" yaml:"studentDuration,omitempty"`
	Title           string `json:"title,omitempty" yaml:"title,omitempty"`
	NewTitle        string `json:"newTitle,omitempty" yaml:"newTitle,omitempty"`
	Timezone        string `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

type documentFile struct {
	Formsets map[string]Formset `json:"formsets" yaml:"formsets"`
}

// LoadFS walks fsys and parses every .json, .yaml and .yml file. A nil fsys
// yields an empty store.
func LoadFS(fsys fs.FS) (*Store, error) {
	store := &Store{formsets: make(map[string]Formset)}
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isConfigFile(path) {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("config: read %s: %w", path, err)
		}
		return store.add(data, path, fsys)
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// LoadFile parses a single configuration file.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	store := &Store{formsets: make(map[string]Formset)}
	if err := store.add(data, path, os.DirFS(filepath.Dir(path))); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Store) add(data []byte, source string, templates fs.FS) error {
	doc, err := parseDocument(data, source)
	if err != nil {
		return err
	}
	for name, raw := range doc.Formsets {
		id := strings.TrimSpace(name)
		if id == "" {
			return fmt.Errorf("config: file %s defines a formset with an empty name", source)
		}
		if _, exists := s.formsets[id]; exists {
			return fmt.Errorf("config: duplicate formset %q (file %s)", id, source)
		}
		entry, err := normaliseFormset(raw, id, source)
		if err != nil {
			return err
		}
		entry.templates = templates
		s.formsets[id] = entry
	}
	return nil
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return documentFile{}, fmt.Errorf("config: file %s is empty", source)
	}
	if err := json.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}
	return documentFile{}, fmt.Errorf("config: parse %s: invalid JSON or YAML", source)
}

func normaliseFormset(raw Formset, name, source string) (Formset, error) {
	out := raw
	out.Name = name
	out.Source = source
	out.Prefix = strings.TrimSpace(raw.Prefix)
	out.Container = strings.TrimSpace(raw.Container)
	out.OriginalRows = strings.ToLower(strings.TrimSpace(raw.OriginalRows))

	if out.Prefix == "" {
		return Formset{}, fmt.Errorf("config: formset %q (file %s) has no prefix", name, source)
	}
	for label, bound := range map[string]*int{"min": out.Min, "max": out.Max} {
		if bound != nil && *bound < 0 {
			return Formset{}, fmt.Errorf("config: formset %q (file %s) has negative %s", name, source, label)
		}
	}
	if out.Min != nil && out.Max != nil && *out.Min > *out.Max {
		return Formset{}, fmt.Errorf("config: formset %q (file %s) has min %d above max %d", name, source, *out.Min, *out.Max)
	}
	switch out.OriginalRows {
	case "", OriginalAll, OriginalPersisted:
	default:
		return Formset{}, fmt.Errorf("config: formset %q (file %s) has unknown originalRows %q", name, source, raw.OriginalRows)
	}
	if raw.Calendar != nil {
		cal := *raw.Calendar
		out.Calendar = &cal
	}
	return out, nil
}

// With returns a copy of the store with f added under f.Name.
func (s *Store) With(f Formset) (*Store, error) {
	out := &Store{formsets: make(map[string]Formset)}
	if s != nil {
		for name, entry := range s.formsets {
			out.formsets[name] = entry
		}
	}
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return nil, fmt.Errorf("config: formset with an empty name")
	}
	if _, exists := out.formsets[name]; exists {
		return nil, fmt.Errorf("config: duplicate formset %q", name)
	}
	entry, err := normaliseFormset(f, name, f.Source)
	if err != nil {
		return nil, err
	}
	out.formsets[name] = entry
	return out, nil
}

// Formset returns the formset configured under name.
func (s *Store) Formset(name string) (Formset, bool) {
	if s == nil {
		return Formset{}, false
	}
	entry, ok := s.formsets[name]
	return entry, ok
}

// ByPrefix returns the formset configured for a prefix.
func (s *Store) ByPrefix(prefix string) (Formset, bool) {
	if s == nil {
		return Formset{}, false
	}
	for _, name := range s.Names() {
		if entry := s.formsets[name]; entry.Prefix == prefix {
			return entry, true
		}
	}
	return Formset{}, false
}

// Names lists the configured formsets in lexical order.
func (s *Store) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.formsets))
	for name := range s.formsets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Empty reports whether the store holds any formset.
func (s *Store) Empty() bool {
	return s == nil || len(s.formsets) == 0
}

func isConfigFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
