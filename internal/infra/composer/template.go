package composer

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"birthday-courier/internal/domain/entity"
)

// fallbackLanguage is used when the roster carries a language with no
// template set.
const fallbackLanguage = "en"

// defaultTemplates ships a built-in greeting per supported language. The
// {name} placeholder is replaced with the recipient's name.
var defaultTemplates = map[string][]string{
	"en": {
		"Happy birthday, {name}! Wishing you a wonderful day and a fantastic year ahead.",
		"Happy birthday, {name}! Hope your day is full of joy and good company.",
	},
	"es": {
		"¡Feliz cumpleaños, {name}! Te deseamos un día maravilloso y un gran año por delante.",
	},
	"fr": {
		"Joyeux anniversaire, {name} ! Nous te souhaitons une merveilleuse journée.",
	},
	"de": {
		"Alles Gute zum Geburtstag, {name}! Wir wünschen dir einen wunderschönen Tag.",
	},
	"pt": {
		"Feliz aniversário, {name}! Desejamos um dia maravilhoso e um ótimo ano pela frente.",
	},
	"ja": {
		"{name}さん、お誕生日おめでとうございます！素晴らしい一年になりますように。",
	},
}

// Template generates greetings from static per-language templates. It needs
// no upstream service, which makes it the escape hatch when no AI provider
// is configured.
type Template struct {
	templates map[string][]string
}

// templateFile is the YAML shape of an external template set:
//
//	en:
//	  - "Happy birthday, {name}!"
//	es:
//	  - "¡Feliz cumpleaños, {name}!"
type templateFile map[string][]string

// NewTemplate creates a template generator. When path is non-empty the YAML
// file at that path replaces the built-in set per language; languages the
// file does not mention keep their defaults.
func NewTemplate(path string) (*Template, error) {
	templates := make(map[string][]string, len(defaultTemplates))
	for lang, variants := range defaultTemplates {
		templates[lang] = variants
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("NewTemplate: read template file: %w", err)
		}

		var loaded templateFile
		if err := yaml.Unmarshal(data, &loaded); err != nil {
			return nil, fmt.Errorf("NewTemplate: parse template file: %w", err)
		}

		for lang, variants := range loaded {
			if len(variants) == 0 {
				return nil, fmt.Errorf("NewTemplate: language %q has no templates", lang)
			}
			templates[strings.ToLower(lang)] = variants
		}

		slog.Info("Loaded greeting templates from file",
			slog.String("path", path),
			slog.Int("languages", len(loaded)))
	}

	if len(templates[fallbackLanguage]) == 0 {
		return nil, fmt.Errorf("NewTemplate: fallback language %q has no templates", fallbackLanguage)
	}

	return &Template{templates: templates}, nil
}

// Compose renders a greeting for the recipient. Variant selection hashes
// the recipient ID, so retries within a cycle produce identical text.
func (t *Template) Compose(ctx context.Context, recipient *entity.Recipient) (string, error) {
	variants := t.templates[strings.ToLower(recipient.Language)]
	if len(variants) == 0 {
		slog.Warn("no templates for language, falling back",
			slog.String("recipient_id", recipient.ID),
			slog.String("language", recipient.Language),
			slog.String("fallback", fallbackLanguage))
		variants = t.templates[fallbackLanguage]
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(recipient.ID))
	template := variants[int(h.Sum32())%len(variants)]

	return strings.ReplaceAll(template, "{name}", recipient.Name), nil
}

// Ping always succeeds: templates have no upstream.
func (t *Template) Ping(ctx context.Context) error {
	return nil
}
