package main

import (
	"fmt"

	"golang.org/x/text/language"
)

// normalizeLanguage reduces a BCP 47 tag to its base language code.
func normalizeLanguage(tag string) (string, error) {
	t, err := language.Parse(tag)
	if err != nil {
		return "", fmt.Errorf("invalid language %q: %w", tag, err)
	}
	base, _ := t.Base()
	return base.String(), nil
}

// languageFilter maps the --language flag of listing commands to a store
// filter: "*" lists every language, empty means the default language.
func languageFilter(flag, defaultLanguage string) (string, error) {
	switch flag {
	case "*":
		return "", nil
	case "":
		return defaultLanguage, nil
	default:
		return normalizeLanguage(flag)
	}
}
