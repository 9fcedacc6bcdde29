package roster

// countryZones maps roster country names to a representative IANA timezone.
// For countries spanning several zones the most populous zone is used; a
// per-recipient timezone column always takes precedence. Countries missing
// from the table fall back to the configured default zone.
var countryZones = map[string]string{
	"Argentina":      "America/Argentina/Buenos_Aires",
	"Australia":      "Australia/Sydney",
	"Austria":        "Europe/Vienna",
	"Belgium":        "Europe/Brussels",
	"Brazil":         "America/Sao_Paulo",
	"Canada":         "America/Toronto",
	"Chile":          "America/Santiago",
	"China":          "Asia/Shanghai",
	"Colombia":       "America/Bogota",
	"Czech Republic": "Europe/Prague",
	"Denmark":        "Europe/Copenhagen",
	"Egypt":          "Africa/Cairo",
	"Finland":        "Europe/Helsinki",
	"France":         "Europe/Paris",
	"Germany":        "Europe/Berlin",
	"Greece":         "Europe/Athens",
	"India":          "Asia/Kolkata",
	"Indonesia":      "Asia/Jakarta",
	"Ireland":        "Europe/Dublin",
	"Israel":         "Asia/Jerusalem",
	"Italy":          "Europe/Rome",
	"Japan":          "Asia/Tokyo",
	"Kenya":          "Africa/Nairobi",
	"Mexico":         "America/Mexico_City",
	"Netherlands":    "Europe/Amsterdam",
	"New Zealand":    "Pacific/Auckland",
	"Nigeria":        "Africa/Lagos",
	"Norway":         "Europe/Oslo",
	"Peru":           "America/Lima",
	"Philippines":    "Asia/Manila",
	"Poland":         "Europe/Warsaw",
	"Portugal":       "Europe/Lisbon",
	"Singapore":      "Asia/Singapore",
	"South Africa":   "Africa/Johannesburg",
	"South Korea":    "Asia/Seoul",
	"Spain":          "Europe/Madrid",
	"Sweden":         "Europe/Stockholm",
	"Switzerland":    "Europe/Zurich",
	"Thailand":       "Asia/Bangkok",
	"Turkey":         "Europe/Istanbul",
	"United Kingdom": "Europe/London",
	"United States":  "America/New_York",
	"Vietnam":        "Asia/Ho_Chi_Minh",
}
