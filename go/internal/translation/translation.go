// Package translation provides the display strings sent to scoreboards.
//
// Catalogs are flat YAML maps named after their BCP 47 tag (en.yaml, fr.yaml). The
// built-in catalogs can be overridden or extended from a directory. Missing keys fall
// back to English.
package translation

import (
	"embed"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed catalogs/*.yaml
var builtin embed.FS

// Fallback is the language every catalog is completed from.
var Fallback = language.English

// Catalog is the translation map for one locale. It is immutable once built.
type Catalog struct {
	tag     language.Tag
	entries map[string]string
}

// Load builds the catalog best matching locale from the built-in catalogs and, when
// dir is not empty, the YAML files found there.
func Load(locale, dir string) (*Catalog, error) {
	catalogs, err := readCatalogs(builtin, "catalogs")
	if err != nil {
		return nil, fmt.Errorf("read built-in catalogs: %w", err)
	}
	if dir != "" {
		overrides, err := readCatalogs(os.DirFS(dir), ".")
		if err != nil {
			return nil, fmt.Errorf("read catalogs in %s: %w", dir, err)
		}
		for tag, entries := range overrides {
			if catalogs[tag] == nil {
				catalogs[tag] = map[string]string{}
			}
			maps.Copy(catalogs[tag], entries)
		}
	}

	want := Fallback
	if locale != "" {
		want, err = language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("parse locale %q: %w", locale, err)
		}
	}

	// the fallback goes first so that it is chosen when nothing matches
	tags := []language.Tag{Fallback}
	for tag := range catalogs {
		if tag != Fallback {
			tags = append(tags, tag)
		}
	}
	_, idx, confidence := language.NewMatcher(tags).Match(want)
	chosen := tags[idx]
	if confidence == language.No {
		chosen = Fallback
	}

	entries := maps.Clone(catalogs[Fallback])
	if entries == nil {
		entries = map[string]string{}
	}
	if chosen != Fallback {
		maps.Copy(entries, catalogs[chosen])
	}

	log.Debug().
		Str("requested", want.String()).
		Str("locale", chosen.String()).
		Int("entries", len(entries)).
		Msg("loaded translations")

	return &Catalog{tag: chosen, entries: entries}, nil
}

func readCatalogs(fsys fs.FS, root string) (map[language.Tag]map[string]string, error) {
	out := map[language.Tag]map[string]string{}
	files, err := fs.Glob(fsys, filepath.ToSlash(filepath.Join(root, "*.yaml")))
	if err != nil {
		return nil, err
	}
	for _, name := range files {
		base := strings.TrimSuffix(filepath.Base(name), ".yaml")
		tag, err := language.Parse(base)
		if err != nil {
			log.Warn().Str("file", name).Msg("skipping catalog with unknown language")
			continue
		}
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		var entries map[string]string
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		out[tag] = entries
	}
	return out, nil
}

// Tag is the language the catalog was built for.
func (c *Catalog) Tag() language.Tag { return c.tag }

// Locale is the BCP 47 form of Tag.
func (c *Catalog) Locale() string { return c.tag.String() }

// Get returns the translation of key, or the key itself when it is unknown.
func (c *Catalog) Get(key string) string {
	if v, ok := c.entries[key]; ok {
		return v
	}
	return key
}

// TranslationMap returns a copy of all entries.
func (c *Catalog) TranslationMap() map[string]string {
	return maps.Clone(c.entries)
}
