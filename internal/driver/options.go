package driver

import (
	"fmt"
	"maps"
	"strings"

	"github.com/go-playground/validator/v10"

	"content_import/internal/domain"
)

var validate = validator.New()

// Options is what a driver receives for one run: the importer's content
// settings plus the opaque driver specific values.
type Options struct {
	ContentModel    string
	ContentAuthor   string
	ContentStatus   string
	ContentLanguage string
	ContentSection  int64
	Extra           map[string]string
}

// OptionsFor merges the importer's stored driver options with its content settings.
func OptionsFor(imp *domain.Importer) Options {
	return Options{
		ContentModel:    imp.ContentModel,
		ContentAuthor:   imp.ContentAuthor,
		ContentStatus:   imp.ContentStatus,
		ContentLanguage: imp.ContentLanguage,
		ContentSection:  imp.ContentSection,
		Extra:           maps.Clone(imp.DriverOpts),
	}
}

func (o Options) Get(key string) string {
	return o.Extra[key]
}

// Rule is a validation applied to an option value.
type Rule string

const (
	RuleNone  Rule = ""
	RuleURL   Rule = "url"
	RuleEmail Rule = "email"
)

// Field describes one driver option. Label is a message key, see Translate.
type Field struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	Rule     Rule   `json:"rule,omitempty"`
}

// Schema is the option descriptor a driver exposes to administration tools.
type Schema struct {
	Fields []Field `json:"fields"`
}

// Validate checks values against the schema. Unknown keys pass through.
func (s Schema) Validate(values map[string]string) error {
	var problems []string

	for _, f := range s.Fields {
		v := strings.TrimSpace(values[f.Name])
		if v == "" {
			if f.Required {
				problems = append(problems, fmt.Sprintf("%s is required", f.Name))
			}
			continue
		}
		if f.Rule == RuleNone {
			continue
		}
		if err := validate.Var(v, string(f.Rule)); err != nil {
			problems = append(problems, fmt.Sprintf("%s must be a valid %s", f.Name, f.Rule))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidOptions, strings.Join(problems, "; "))
	}
	return nil
}
