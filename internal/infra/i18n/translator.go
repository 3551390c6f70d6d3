package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

const DefaultLang = "en"

type Translator struct {
	lang         string
	translations map[string]string
}

// NewTranslator reads locales/<langCode>.yaml from fsys.
func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	filePath := path.Join("locales", fmt.Sprintf("%s.yaml", langCode))
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	t, err := newTranslatorFromBytes(data)
	if err != nil {
		return nil, err
	}
	t.lang = langCode
	return t, nil
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	return &Translator{translations: translations}, nil
}

func (t *Translator) Lang() string { return t.lang }

// T returns key itself when no translation exists.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

// Catalog holds one translator per language.
type Catalog struct {
	byLang  map[string]*Translator
	langs   []string
	matcher language.Matcher
}

// NewCatalog loads every language in langs; DefaultLang is always included
// and is the fallback for unmatched requests.
func NewCatalog(fsys fs.FS, langs ...string) (*Catalog, error) {
	c := &Catalog{byLang: map[string]*Translator{}}
	var tags []language.Tag
	for _, lang := range append([]string{DefaultLang}, langs...) {
		if _, ok := c.byLang[lang]; ok {
			continue
		}
		t, err := NewTranslator(fsys, lang)
		if err != nil {
			return nil, err
		}
		c.byLang[lang] = t
		c.langs = append(c.langs, lang)
		tags = append(tags, language.Make(lang))
	}
	c.matcher = language.NewMatcher(tags)
	return c, nil
}

// Match picks the best supported language for an Accept-Language header.
func (c *Catalog) Match(acceptLanguage string) *Translator {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return c.byLang[DefaultLang]
	}
	_, idx, conf := c.matcher.Match(tags...)
	if conf == language.No {
		return c.byLang[DefaultLang]
	}
	return c.byLang[c.langs[idx]]
}

// MustCatalog is NewCatalog that panics on a broken embedded catalog.
func MustCatalog(fsys fs.FS, langs ...string) *Catalog {
	c, err := NewCatalog(fsys, langs...)
	if err != nil {
		panic(err)
	}
	return c
}
