// Package i18n provides the localized weekday and date labels used by the
// week-stats view. The app ships English and Turkish; anything else falls
// back to English. Counting logic never depends on locale.
package i18n

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

var supported = []language.Tag{
	language.English, // fallback
	language.Turkish,
}

var matcher = language.NewMatcher(supported)

var weekdayShort = map[language.Tag][7]string{
	language.English: {"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
	language.Turkish: {"Paz", "Pzt", "Sal", "Çar", "Per", "Cum", "Cmt"},
}

var monthShort = map[language.Tag][12]string{
	language.English: {"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
	language.Turkish: {"Oca", "Şub", "Mar", "Nis", "May", "Haz", "Tem", "Ağu", "Eyl", "Eki", "Kas", "Ara"},
}

// Match resolves a BCP 47 language string ("tr", "tr-TR", "en-US", ...) to a
// supported tag.
func Match(lang string) language.Tag {
	tag, _ := language.MatchStrings(matcher, lang)
	base, _ := tag.Base()
	for _, s := range supported {
		sb, _ := s.Base()
		if sb == base {
			return s
		}
	}
	return language.English
}

// PingTitle returns the push-notification title for an incoming ping in the
// receiver's language.
func PingTitle(lang string) string {
	if Match(lang) == language.Turkish {
		return "Yeni Ping! 🔔"
	}
	return "New Ping! 🔔"
}

// PingBody returns the push-notification body for an incoming ping.
func PingBody(lang, senderName string) string {
	if Match(lang) == language.Turkish {
		return fmt.Sprintf("%s sana ping attı!", senderName)
	}
	return fmt.Sprintf("%s pinged you!", senderName)
}

// DayName returns the short weekday label for t in the given language.
func DayName(lang string, t time.Time) string {
	return weekdayShort[Match(lang)][int(t.Weekday())]
}

// ShortDate returns the "Jan 2" style label for t in the given language.
// Turkish puts the day first, the way the platform formatter does.
func ShortDate(lang string, t time.Time) string {
	tag := Match(lang)
	month := monthShort[tag][int(t.Month())-1]
	if tag == language.Turkish {
		return fmt.Sprintf("%d %s", t.Day(), month)
	}
	return fmt.Sprintf("%s %d", month, t.Day())
}
