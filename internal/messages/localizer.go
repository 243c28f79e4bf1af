// Package messages turns backend response codes into localized notice text.
package messages

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// Codes used by the application itself.
const (
	CodeGeneric           = "GENERIC_ERROR"
	CodeSaveSucceeded     = "SAVE_SUCCEEDED"
	CodeStructureSaved    = "STRUCTURE_SAVED"
	CodeSaveFailed        = "SAVE_FAILED"
	CodeRollbackSucceeded = "ROLLBACK_SUCCEEDED"
	CodeRollbackFailed    = "ROLLBACK_FAILED"
	CodeLimitsLoadFailed  = "LIMITS_LOAD_FAILED"
)

//go:embed catalog.yaml
var embedded []byte

type catalogFile struct {
	Default   string                       `yaml:"default"`
	Languages []string                     `yaml:"languages"`
	Messages  map[string]map[string]string `yaml:"messages"`
}

// Localizer resolves notice text for a language.
type Localizer struct {
	fallback  language.Tag
	supported []language.Tag
	matcher   language.Matcher
	catalog   *catalog.Builder
	known     map[string]struct{}
}

// Default parses the embedded catalog.
func Default() (*Localizer, error) {
	return Parse(embedded)
}

// Parse builds a Localizer from a YAML catalog document.
func Parse(data []byte) (*Localizer, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("messages: decode catalog: %w", err)
	}
	if len(file.Languages) == 0 {
		return nil, errors.New("messages: catalog lists no languages")
	}

	supported := make([]language.Tag, 0, len(file.Languages))
	for _, raw := range file.Languages {
		tag, err := language.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("messages: language %q: %w", raw, err)
		}
		supported = append(supported, tag)
	}
	fallback := supported[0]
	if file.Default != "" {
		tag, err := language.Parse(file.Default)
		if err != nil {
			return nil, fmt.Errorf("messages: default language %q: %w", file.Default, err)
		}
		fallback = tag
	}
	// the matcher prefers its first tag when nothing matches
	ordered := []language.Tag{fallback}
	for _, tag := range supported {
		if tag != fallback {
			ordered = append(ordered, tag)
		}
	}

	builder := catalog.NewBuilder(catalog.Fallback(fallback))
	known := make(map[string]struct{}, len(file.Messages))
	for code, texts := range file.Messages {
		code = normalizeCode(code)
		for raw, text := range texts {
			tag, err := language.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("messages: %s: language %q: %w", code, raw, err)
			}
			if err := builder.SetString(tag, code, escape(text)); err != nil {
				return nil, fmt.Errorf("messages: %s/%s: %w", code, raw, err)
			}
		}
		known[code] = struct{}{}
	}
	if _, ok := known[CodeGeneric]; !ok {
		return nil, fmt.Errorf("messages: catalog misses %s", CodeGeneric)
	}

	return &Localizer{
		fallback:  fallback,
		supported: ordered,
		matcher:   language.NewMatcher(ordered),
		catalog:   builder,
		known:     known,
	}, nil
}

// Match picks the best supported language for an Accept-Language header value.
func (l *Localizer) Match(accept string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return l.fallback
	}
	_, idx, _ := l.matcher.Match(tags...)
	return l.supported[idx]
}

// Fallback returns the language used when nothing else matches.
func (l *Localizer) Fallback() language.Tag {
	return l.fallback
}

// Known reports whether code has catalog text.
func (l *Localizer) Known(code string) bool {
	_, ok := l.known[normalizeCode(code)]
	return ok
}

// Notice returns the text for code in lang. Unknown codes yield fallback, or the
// generic error text when fallback is empty.
func (l *Localizer) Notice(lang language.Tag, code, fallback string) string {
	key := normalizeCode(code)
	if _, ok := l.known[key]; !ok {
		if fallback != "" {
			return fallback
		}
		key = CodeGeneric
	}
	p := message.NewPrinter(lang, message.Catalog(l.catalog))
	return p.Sprintf(key)
}

type languageKey struct{}

// WithLanguage stores the notice language in ctx.
func WithLanguage(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, languageKey{}, tag)
}

// LanguageFrom returns the notice language stored in ctx, if any.
func LanguageFrom(ctx context.Context) (language.Tag, bool) {
	tag, ok := ctx.Value(languageKey{}).(language.Tag)
	return tag, ok
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func escape(text string) string {
	return strings.ReplaceAll(text, "%", "%%")
}
