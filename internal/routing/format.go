package routing

import (
	"fmt"
	"math"
	"strings"
)

// DurationLocale holds the templates used to render a duration.
// HoursMinutes receives hours and minutes; MinutesOnly receives minutes.
type DurationLocale struct {
	Tag          string
	HoursMinutes string
	MinutesOnly  string
}

// Supported duration locales.
var (
	LocaleEnglish = DurationLocale{
		Tag:          "en",
		HoursMinutes: "%dh %dm",
		MinutesOnly:  "%dm",
	}
	LocaleVietnamese = DurationLocale{
		Tag:          "vi",
		HoursMinutes: "%dg%dp",
		MinutesOnly:  "%dp",
	}
)

// LocaleFor resolves a BCP 47 language tag such as "vi-VN" to a duration locale.
// Anything that is not Vietnamese falls back to English.
func LocaleFor(tag string) DurationLocale {
	lang := strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(lang, "-_"); i >= 0 {
		lang = lang[:i]
	}
	if lang == LocaleVietnamese.Tag {
		return LocaleVietnamese
	}
	return LocaleEnglish
}

// FormatDistance renders meters for display: "999m" below one kilometer,
// otherwise kilometers with one decimal place ("1.0km"). Negative and
// non-finite input renders as "0m".
func FormatDistance(meters float64) string {
	if !(meters >= 0) || math.IsInf(meters, 1) {
		meters = 0
	}
	if meters < 1000 {
		// 999.5 and above render as "1000m"
		return fmt.Sprintf("%dm", int64(math.Round(meters)))
	}
	return fmt.Sprintf("%.1fkm", meters/1000)
}

// maxDurationMinutes caps SplitDuration so huge inputs cannot overflow int.
const maxDurationMinutes = math.MaxInt32

// SplitDuration breaks seconds into whole hours and remaining whole minutes.
// Seconds past the last full minute are dropped. Negative and non-finite
// input yields 0, 0; very large input saturates instead of wrapping.
func SplitDuration(seconds float64) (hours, minutes int) {
	if !(seconds > 0) || math.IsInf(seconds, 1) {
		return 0, 0
	}
	total := math.Floor(seconds / 60)
	if total > maxDurationMinutes {
		total = maxDurationMinutes
	}
	m := int(total)
	return m / 60, m % 60
}

// FormatDuration renders seconds in English, e.g. "59m" or "1h 0m".
func FormatDuration(seconds float64) string {
	return FormatDurationLocale(seconds, LocaleEnglish)
}

// FormatDurationLocale renders seconds with the given locale's templates.
func FormatDurationLocale(seconds float64, locale DurationLocale) string {
	if locale.HoursMinutes == "" || locale.MinutesOnly == "" {
		locale = LocaleEnglish
	}
	hours, minutes := SplitDuration(seconds)
	if hours > 0 {
		return fmt.Sprintf(locale.HoursMinutes, hours, minutes)
	}
	return fmt.Sprintf(locale.MinutesOnly, minutes)
}
