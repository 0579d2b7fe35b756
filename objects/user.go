package objects

import (
	"fmt"
	"log"
	"strings"

	"github.com/leonelquinteros/gotext"
)

type MenuId int

const (
	Menu_Init        MenuId = 100
	Menu_AskLocation MenuId = 200 // Ask for user's location
	Menu_Main        MenuId = 400 // Main menu, ready to post or browse
	Menu_PostGive    MenuId = 500 // Waiting for "what I give" input
	Menu_PostNeed    MenuId = 510 // Waiting for "what I need" input
	Menu_Ban         MenuId = 999999
)

type User struct {
	UserId       int64
	MenuId       MenuId
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
	Lon          float64 // Longitude
	Lat          float64 // Latitude
	SearchRadiusKm *int  // Search radius in kilometers (nullable)

	// Rating aggregate, maintained transactionally by the completion flow.
	// Never decremented.
	AverageRating      float64
	TotalRatings       int
	CompletedExchanges int

	po *gotext.Po // Direct Po object for translations
}

// DisplayName returns the name shown to the partner in notifications and
// history rows.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return fmt.Sprintf("user %d", u.UserId)
}

// HasLocation reports whether the user shared a location. Without one,
// proximity filtering is disabled and the feed falls back to unfiltered.
func (u *User) HasLocation() bool {
	return u.Lat != 0 || u.Lon != 0
}

// GetSupportedLanguageCode returns the supported language code for the user
// Falls back to English if the user's language is not supported
func (u *User) GetSupportedLanguageCode() string {
	// Languages with a .po file in locales/all
	supportedLanguages := map[string]bool{
		"en":  true, // English
		"fil": true, // Filipino
		"ru":  true, // Russian
		"es":  true, // Spanish
	}

	// Tagalog reports as "tl" on some clients
	lang := strings.ToLower(u.LanguageCode)
	if lang == "tl" {
		return "fil"
	}

	// Check exact match first
	if supportedLanguages[u.LanguageCode] {
		return u.LanguageCode
	}

	// Check language family (e.g. pt-br -> pt)
	if len(u.LanguageCode) >= 2 {
		langFamily := u.LanguageCode[:2]
		if supportedLanguages[langFamily] {
			return langFamily
		}
	}

	// Default to English
	log.Printf("[USER] Language '%s' not supported, defaulting to English", u.LanguageCode)
	return "en"
}

// Locale returns the gotext Po for the user (not actually a Locale, but Po has the same Get() method)
func (u *User) Locale() *gotext.Po {
	if u.po == nil {
		lang := u.GetSupportedLanguageCode()
		log.Printf("[USER] Loading locale for user %d: %s", u.UserId, lang)

		// Use Po directly instead of Locale, since our files are in ./locales/all/*.po
		// not in the gotext expected structure of ./locales/LANG/LC_MESSAGES/DOMAIN.po
		u.po = gotext.NewPo()
		poFile := fmt.Sprintf("./locales/all/%s.po", lang)
		u.po.ParseFile(poFile)

		log.Printf("[USER] Loaded po file: %s", poFile)
	}
	return u.po
}
