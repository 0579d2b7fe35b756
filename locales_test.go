package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// parsePOFile parses a .po file and returns msgid -> msgstr for all entries
func parsePOFile(filename string) (map[string]string, error) {
	entries := make(map[string]string)

	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var currentMsgid string
	var currentMsgstr string
	inMsgid := false
	inMsgstr := false

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		// Skip comments and empty lines
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if strings.HasPrefix(trimmed, "msgid ") {
			// Save previous entry if exists
			if currentMsgid != "" {
				entries[currentMsgid] = currentMsgstr
			}

			currentMsgid = extractQuotedString(trimmed[6:])
			currentMsgstr = ""
			inMsgid = true
			inMsgstr = false
		} else if strings.HasPrefix(trimmed, "msgstr ") {
			currentMsgstr = extractQuotedString(trimmed[7:])
			inMsgid = false
			inMsgstr = true
		} else if strings.HasPrefix(trimmed, "\"") {
			// Continuation lines
			continuation := extractQuotedString(trimmed)
			if inMsgid {
				currentMsgid += continuation
			} else if inMsgstr {
				currentMsgstr += continuation
			}
		}
	}

	if currentMsgid != "" {
		entries[currentMsgid] = currentMsgstr
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// extractQuotedString extracts the string from quotes
func extractQuotedString(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// TestLocaleConsistency ensures all locale files carry the same key set as en.po
func TestLocaleConsistency(t *testing.T) {
	localesDir := "locales/all"

	poFiles, err := filepath.Glob(filepath.Join(localesDir, "*.po"))
	if err != nil {
		t.Fatalf("Failed to find .po files: %v", err)
	}

	if len(poFiles) == 0 {
		t.Fatal("No .po files found in locales/all directory")
	}

	referencePath := filepath.Join(localesDir, "en.po")
	referenceEntries, err := parsePOFile(referencePath)
	if err != nil {
		t.Fatalf("Failed to parse reference file en.po: %v", err)
	}

	// Drop the header entry
	delete(referenceEntries, "")

	t.Logf("Reference locale (en.po) has %d keys", len(referenceEntries))

	var allErrors []string

	for _, poFile := range poFiles {
		baseName := filepath.Base(poFile)
		if baseName == "en.po" {
			continue
		}

		entries, err := parsePOFile(poFile)
		if err != nil {
			t.Errorf("Failed to parse %s: %v", baseName, err)
			continue
		}
		delete(entries, "")

		var missingKeys []string
		var emptyTranslations []string

		for msgid, msgstr := range referenceEntries {
			if _, exists := entries[msgid]; !exists {
				missingKeys = append(missingKeys, msgid)
			} else if entries[msgid] == "" && msgstr != "" {
				emptyTranslations = append(emptyTranslations, msgid)
			}
		}

		var extraKeys []string
		for msgid := range entries {
			if _, exists := referenceEntries[msgid]; !exists {
				extraKeys = append(extraKeys, msgid)
			}
		}

		if len(missingKeys) > 0 {
			errorMsg := fmt.Sprintf("\n%s is missing %d keys:", baseName, len(missingKeys))
			for _, key := range missingKeys {
				errorMsg += fmt.Sprintf("\n  - %s", key)
			}
			allErrors = append(allErrors, errorMsg)
		}

		if len(emptyTranslations) > 0 {
			errorMsg := fmt.Sprintf("\n%s has %d empty translations:", baseName, len(emptyTranslations))
			for _, key := range emptyTranslations {
				errorMsg += fmt.Sprintf("\n  - %s", key)
			}
			allErrors = append(allErrors, errorMsg)
		}

		if len(extraKeys) > 0 {
			errorMsg := fmt.Sprintf("\n%s has %d extra keys not in reference:", baseName, len(extraKeys))
			for _, key := range extraKeys {
				errorMsg += fmt.Sprintf("\n  - %s", key)
			}
			allErrors = append(allErrors, errorMsg)
		}

		if len(missingKeys) == 0 && len(emptyTranslations) == 0 && len(extraKeys) == 0 {
			t.Logf("✓ %s is consistent with reference (has %d keys)", baseName, len(entries))
		}
	}

	if len(allErrors) > 0 {
		t.Errorf("\nLocale consistency check failed! Found %d locale(s) with issues:%s",
			len(allErrors), strings.Join(allErrors, "\n"))
		t.Fatal("Fix the above locale inconsistencies before proceeding")
	}

	t.Logf("\n✅ All %d locale files are consistent!", len(poFiles))
}

// TestLocaleFormatDirectives ensures translations keep the same fmt verbs as
// the English reference, in the same order. A translation with a missing or
// reordered %d silently corrupts the rendered message at runtime.
func TestLocaleFormatDirectives(t *testing.T) {
	localesDir := "locales/all"

	referenceEntries, err := parsePOFile(filepath.Join(localesDir, "en.po"))
	if err != nil {
		t.Fatalf("Failed to parse reference file en.po: %v", err)
	}
	delete(referenceEntries, "")

	poFiles, err := filepath.Glob(filepath.Join(localesDir, "*.po"))
	if err != nil {
		t.Fatalf("Failed to find .po files: %v", err)
	}

	for _, poFile := range poFiles {
		baseName := filepath.Base(poFile)
		if baseName == "en.po" {
			continue
		}

		entries, err := parsePOFile(poFile)
		if err != nil {
			t.Errorf("Failed to parse %s: %v", baseName, err)
			continue
		}

		for msgid, refStr := range referenceEntries {
			translation, exists := entries[msgid]
			if !exists {
				continue // consistency test reports this
			}

			refVerbs := extractFormatVerbs(refStr)
			gotVerbs := extractFormatVerbs(translation)

			if strings.Join(refVerbs, ",") != strings.Join(gotVerbs, ",") {
				t.Errorf("%s: key '%s' has format verbs %v, reference has %v",
					baseName, msgid, gotVerbs, refVerbs)
			}
		}
	}
}

// extractFormatVerbs returns the fmt verbs (%s, %d, %.1f) of a msgstr in order
func extractFormatVerbs(s string) []string {
	var verbs []string
	for i := 0; i < len(s)-1; i++ {
		if s[i] != '%' {
			continue
		}
		j := i + 1
		for j < len(s) && (s[j] == '.' || (s[j] >= '0' && s[j] <= '9')) {
			j++
		}
		if j < len(s) && strings.ContainsRune("sdfv", rune(s[j])) {
			verbs = append(verbs, s[i:j+1])
			i = j
		}
	}
	return verbs
}
