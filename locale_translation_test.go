package main

import (
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

// TestAllLocalesHaveTranslations checks that locale files carry actual
// translations and not leftover message keys pasted as values.
func TestAllLocalesHaveTranslations(t *testing.T) {
	// Message keys are dotted lowercase identifiers like "main_menu.header".
	// A msgstr that still looks like one was never translated.
	keyLikePattern := regexp.MustCompile(`^[a-z_]+(\.[a-z_]+)+$`)

	localeDir := "./locales/all"
	poFiles, err := filepath.Glob(filepath.Join(localeDir, "*.po"))
	if err != nil {
		t.Fatalf("Failed to find .po files: %v", err)
	}

	if len(poFiles) == 0 {
		t.Fatal("No .po files found in locales/all directory")
	}

	referenceEntries, err := parsePOFile(filepath.Join(localeDir, "en.po"))
	if err != nil {
		t.Fatalf("Failed to parse reference file en.po: %v", err)
	}
	delete(referenceEntries, "")

	t.Logf("Testing %d translation keys across %d locales", len(referenceEntries), len(poFiles))

	for _, poFile := range poFiles {
		baseName := filepath.Base(poFile)
		langCode := strings.TrimSuffix(baseName, ".po")

		entries, err := parsePOFile(poFile)
		if err != nil {
			t.Errorf("Failed to parse %s: %v", baseName, err)
			continue
		}
		delete(entries, "")

		missing := 0
		for key := range referenceEntries {
			translation, exists := entries[key]

			switch {
			case !exists:
				missing++
				t.Errorf("Locale %s: key '%s' is missing entirely", langCode, key)
			case translation == "":
				missing++
				t.Errorf("Locale %s: key '%s' has empty translation", langCode, key)
			case keyLikePattern.MatchString(translation):
				missing++
				t.Errorf("Locale %s: key '%s' returned untranslated value: '%s'",
					langCode, key, translation)
			}
		}

		if missing == 0 {
			t.Logf("✓ all translations present in %s", langCode)
		}
	}
}
