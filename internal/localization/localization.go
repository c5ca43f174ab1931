// Package localization holds the user-facing texts the server writes itself:
// handoff notices, placeholder names, fallback answers and operator alerts.
package localization

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
)

//go:embed locales/*.json
var builtin embed.FS

// DefaultLanguage is used when a key is missing in the requested language.
const DefaultLanguage = "en"

// Localizer maps language -> key -> text.
type Localizer struct {
	mu           sync.RWMutex
	translations map[string]map[string]string
}

// NewLocalizer loads every "<lang>.json" file found in dir of fsys.
func NewLocalizer(fsys fs.FS, dir string) (*Localizer, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read locales %s: %w", dir, err)
	}

	l := &Localizer{translations: make(map[string]map[string]string, len(entries))}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || path.Ext(name) != ".json" {
			continue
		}
		raw, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", name, err)
		}
		catalog := map[string]string{}
		if err := json.Unmarshal(raw, &catalog); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", name, err)
		}
		l.translations[strings.TrimSuffix(name, ".json")] = catalog
	}
	return l, nil
}

// Default returns a Localizer over the catalog compiled into the binary.
func Default() *Localizer {
	l, err := NewLocalizer(builtin, "locales")
	if err != nil {
		// the embedded catalog is validated by tests
		panic(err)
	}
	return l
}

// GetString looks key up in lang, then in DefaultLanguage. An unknown key
// is returned as is so a missing translation stays visible in the UI.
func (l *Localizer) GetString(lang, key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, candidate := range []string{lang, DefaultLanguage} {
		if value, ok := l.translations[candidate][key]; ok {
			return value
		}
	}
	return key
}

// Lang binds a language to the Localizer.
func (l *Localizer) Lang(lang string) Texts {
	return Texts{l: l, lang: lang}
}

// Texts is a Localizer fixed to one language.
type Texts struct {
	l    *Localizer
	lang string
}

func (t Texts) Get(key string) string {
	if t.l == nil {
		return key
	}
	return t.l.GetString(t.lang, key)
}
