// Package i18n loads localized strings and formats them through
// golang.org/x/text/message.
//
// Catalog files live at locales/<locale>/<namespace>.yaml:
//
//	locale: en-US
//	namespace: jukebox
//	messages:
//	  jukebox-menu-title: Jukebox
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the locale every key must exist in.
const BaseLocale = "en-US"

//go:embed locales/*/*.yaml
var embedded embed.FS

// Localizer resolves message keys to display strings.
type Localizer interface {
	GetString(key string, args ...any) string
}

type catalogFile struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

// Catalog holds every loaded locale.
type Catalog struct {
	builder  *catalog.Builder
	messages map[string]map[string]string
	base     *Printer
}

// LoadEmbedded loads the catalogs shipped with the binary.
func LoadEmbedded() (*Catalog, error) {
	return LoadFromFS(embedded)
}

// LoadFromFS loads every locales/*/*.yaml file in fsys.
func LoadFromFS(fsys fs.FS) (*Catalog, error) {
	paths, err := fs.Glob(fsys, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	c := &Catalog{
		builder:  catalog.NewBuilder(catalog.Fallback(language.MustParse(BaseLocale))),
		messages: make(map[string]map[string]string),
	}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if err := c.add(p, file); err != nil {
			return nil, err
		}
	}
	if _, ok := c.messages[BaseLocale]; !ok {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	c.base = c.Printer(BaseLocale)
	return c, nil
}

func (c *Catalog) add(p string, file catalogFile) error {
	localeFromPath := path.Base(path.Dir(p))
	namespaceFromPath := strings.TrimSuffix(path.Base(p), path.Ext(p))

	locale := strings.TrimSpace(file.Locale)
	if locale != localeFromPath {
		return fmt.Errorf("catalog %s: locale %q must match path locale %q", p, locale, localeFromPath)
	}
	if ns := strings.TrimSpace(file.Namespace); ns != namespaceFromPath {
		return fmt.Errorf("catalog %s: namespace %q must match filename namespace %q", p, ns, namespaceFromPath)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return fmt.Errorf("catalog %s: %w", p, err)
	}

	msgs, ok := c.messages[locale]
	if !ok {
		msgs = make(map[string]string)
		c.messages[locale] = msgs
	}
	for key, value := range file.Messages {
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("catalog %s: message key cannot be blank", p)
		}
		if _, dup := msgs[key]; dup {
			return fmt.Errorf("catalog %s: duplicate key %q in locale %q", p, key, locale)
		}
		msgs[key] = value
		if err := c.builder.SetString(tag, key, value); err != nil {
			return fmt.Errorf("catalog %s: %s: %w", p, key, err)
		}
	}
	return nil
}

// Locales lists the loaded locales.
func (c *Catalog) Locales() []string {
	out := make([]string, 0, len(c.messages))
	for l := range c.messages {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Has reports whether key is defined for locale or the base locale.
func (c *Catalog) Has(locale, key string) bool {
	_, ok := c.lookup(locale, key)
	return ok
}

// GetString formats key in the base locale.
func (c *Catalog) GetString(key string, args ...any) string {
	return c.base.GetString(key, args...)
}

// Printer returns a Localizer bound to locale. Unknown locales fall back to
// the base locale.
func (c *Catalog) Printer(locale string) *Printer {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse(BaseLocale)
	}
	return &Printer{
		catalog: c,
		locale:  tag.String(),
		p:       message.NewPrinter(tag, message.Catalog(c.builder)),
	}
}

// Printer formats messages for one locale.
type Printer struct {
	catalog *Catalog
	locale  string
	p       *message.Printer
}

// GetString formats key with args. Keys missing from the printer's locale
// use the base locale text; keys missing everywhere are returned verbatim.
func (p *Printer) GetString(key string, args ...any) string {
	value, ok := p.catalog.lookup(p.locale, key)
	if !ok {
		return key
	}
	return p.p.Sprintf(message.Key(key, value), args...)
}

func (c *Catalog) lookup(locale, key string) (string, bool) {
	if v, ok := c.messages[locale][key]; ok {
		return v, true
	}
	v, ok := c.messages[BaseLocale][key]
	return v, ok
}
