package internal

import "strings"

const unknownLabel = "Unknown"

type token struct {
	needle string
	label  string
}

// Order matters: more specific tokens come first so that "Edg/" wins over
// "Chrome", "Chrome" wins over "Safari", and "Android" wins over "Linux".
var (
	deviceTokens = []token{
		{"ipad", "Tablet"},
		{"tablet", "Tablet"},
		{"mobile", "Mobile"},
		{"iphone", "Mobile"},
		{"android", "Mobile"},
	}
	osTokens = []token{
		{"windows", "Windows"},
		{"android", "Android"},
		{"iphone", "iOS"},
		{"ipad", "iOS"},
		{"ipod", "iOS"},
		{"mac os", "macOS"},
		{"macintosh", "macOS"},
		{"linux", "Linux"},
	}
	browserTokens = []token{
		{"edg/", "Edge"},
		{"edga/", "Edge"},
		{"edgios/", "Edge"},
		{"edge/", "Edge"},
		{"firefox/", "Firefox"},
		{"fxios/", "Firefox"},
		{"chrome/", "Chrome"},
		{"crios/", "Chrome"},
		{"safari/", "Safari"},
	}
)

// Classify derives a "{device} - {os} - {browser}" label from a User-Agent string.
// Unrecognised fields degrade to "Unknown"; Classify never fails.
func Classify(userAgent string) string {
	ua := strings.ToLower(strings.TrimSpace(userAgent))

	device := unknownLabel
	if ua != "" {
		device = match(ua, deviceTokens, "Desktop")
	}

	return device + " - " + match(ua, osTokens, unknownLabel) + " - " + match(ua, browserTokens, unknownLabel)
}

func match(ua string, tokens []token, fallback string) string {
	if ua == "" {
		return unknownLabel
	}
	for _, t := range tokens {
		if strings.Contains(ua, t.needle) {
			return t.label
		}
	}
	return fallback
}
