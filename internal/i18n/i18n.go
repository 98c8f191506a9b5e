// Package i18n loads the English and Urdu message catalogs and composes the
// bilingual texts the bot sends.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var embedded embed.FS

const (
	localesDir = "locales"

	// Divider separates the English and Urdu halves of a bilingual message.
	Divider = "\n\n─────────────────\n\n"
)

// Args fills {placeholders} in a message.
type Args map[string]string

// Translator renders messages in one language.
type Translator interface {
	T(key string) string
	Format(key string, args Args) string
	Lang() string
}

// catalog maps dotted message keys to text.
type catalog map[string]string

// Manager holds one catalog per language code.
type Manager struct {
	translations map[string]catalog
	defaultLang  string
}

// Load reads the embedded en/ur catalogs.
func Load(defaultLang string) (*Manager, error) {
	return LoadFS(embedded, localesDir, defaultLang)
}

// LoadFS reads every *.yaml file in dir. Each file holds top-level language
// codes with nested message keys; later files extend earlier ones.
func LoadFS(fsys fs.FS, dir, defaultLang string) (*Manager, error) {
	files, err := fs.Glob(fsys, path.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("i18n: list %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("i18n: no catalogs in %s", dir)
	}

	m := &Manager{translations: make(map[string]catalog), defaultLang: defaultLang}
	if m.defaultLang == "" {
		m.defaultLang = "en"
	}

	for _, file := range files {
		if err := m.merge(fsys, file); err != nil {
			return nil, err
		}
	}

	if len(m.translations[m.defaultLang]) == 0 {
		return nil, fmt.Errorf("i18n: default language %q has no messages", m.defaultLang)
	}
	return m, nil
}

func (m *Manager) merge(fsys fs.FS, file string) error {
	data, err := fs.ReadFile(fsys, file)
	if err != nil {
		return fmt.Errorf("i18n: read %s: %w", file, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("i18n: parse %s: %w", file, err)
	}
	if len(doc.Content) == 0 {
		return nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("i18n: %s: expected language codes at the top level", file)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		lang := strings.ToLower(strings.TrimSpace(root.Content[i].Value))
		if lang == "" {
			continue
		}
		if m.translations[lang] == nil {
			m.translations[lang] = make(catalog)
		}
		m.translations[lang].collect("", root.Content[i+1])
	}
	return nil
}

// collect flattens nested mappings into dotted keys. Non-string leaves are ignored.
func (c catalog) collect(prefix string, node *yaml.Node) {
	switch node.Kind {
	case yaml.ScalarNode:
		if prefix != "" && node.Tag == "!!str" {
			c[prefix] = node.Value
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			if prefix != "" {
				key = prefix + "." + key
			}
			c.collect(key, node.Content[i+1])
		}
	}
}

// Translator returns the translator for lang, or for the default language when lang is unknown.
func (m *Manager) Translator(lang string) Translator {
	if m == nil {
		return translator{}
	}

	lang = strings.ToLower(strings.TrimSpace(lang))
	if _, ok := m.translations[lang]; !ok {
		lang = m.defaultLang
	}
	return translator{lang: lang, own: m.translations[lang], fallback: m.translations[m.defaultLang]}
}

// Bilingual renders key in English and Urdu joined by Divider.
func (m *Manager) Bilingual(key string, args Args) string {
	return m.Translator("en").Format(key, args) + Divider + m.Translator("ur").Format(key, args)
}

// BilingualFor is Bilingual with arguments computed per language.
func (m *Manager) BilingualFor(key string, argsFor func(lang string) Args) string {
	return m.Translator("en").Format(key, argsFor("en")) + Divider + m.Translator("ur").Format(key, argsFor("ur"))
}

// Welcome renders the bilingual greeting; an empty business name uses each catalog's default.
func (m *Manager) Welcome(business string) string {
	return m.BilingualFor(Welcome, func(lang string) Args {
		name := business
		if name == "" {
			name = m.Translator(lang).T("defaults.business")
		}
		return Args{"business": name}
	})
}

type translator struct {
	lang     string
	own      catalog
	fallback catalog
}

func (t translator) Lang() string { return t.lang }

// T returns the message for key, the default language's message, or the key itself.
func (t translator) T(key string) string {
	if v, ok := t.own[key]; ok {
		return v
	}
	if v, ok := t.fallback[key]; ok {
		return v
	}
	return key
}

func (t translator) Format(key string, args Args) string {
	text := t.T(key)
	if len(args) == 0 {
		return text
	}

	pairs := make([]string, 0, len(args)*2)
	for name, value := range args {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
