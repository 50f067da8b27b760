package contact

// Rules holds the fixed lists used to clean and classify addresses.
// A Rules value is built once and shared read-only by every component.
type Rules struct {
	// EmailBlacklist rejects an email containing any of these substrings.
	EmailBlacklist []string
	// AssetSuffixes reject matches such as "logo@2x.png" that are file names, not addresses.
	AssetSuffixes []string
	// GenericLocalParts are mailbox names that belong to a role, not a person.
	GenericLocalParts map[string]struct{}
	// GenericSuffixes mark a local part as generic when it ends with one of them.
	GenericSuffixes []string
	// Platforms is the ordered list of recognized social platforms.
	Platforms []Platform
	// PhoneRegion is the region numbers without a country code are validated against.
	PhoneRegion string
}

// DefaultPhoneRegion is used when Rules.PhoneRegion is empty.
const DefaultPhoneRegion = "US"

// DefaultRules returns the built-in rule set.
func DefaultRules() *Rules {
	generic := []string{
		"info", "contact", "contactus", "support", "sales", "noreply", "no-reply", "donotreply",
		"admin", "administrator", "hello", "hi", "help", "helpdesk", "office", "team", "mail",
		"email", "enquiries", "enquiry", "inquiries", "inquiry", "billing", "accounts",
		"accounting", "marketing", "press", "media", "news", "newsletter", "careers", "jobs",
		"hr", "recruiting", "webmaster", "postmaster", "hostmaster", "service", "services",
		"customerservice", "customercare", "care", "orders", "feedback", "privacy", "legal",
		"security", "abuse", "general", "reception", "bookings", "booking", "reservations",
		"events", "partners", "partnerships", "hiring", "finance", "invoices", "shop", "store",
		"reply", "root", "dev", "it", "ops", "compliance", "studio",
	}
	set := make(map[string]struct{}, len(generic))
	for _, g := range generic {
		set[g] = struct{}{}
	}
	return &Rules{
		EmailBlacklist: []string{
			"example.com", "test.com", "domain.com", "yoursite.com",
			"company.com", "sentry.io", "placeholder.com",
		},
		AssetSuffixes:     []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".css", ".js"},
		GenericLocalParts: set,
		GenericSuffixes:   []string{"relations"},
		Platforms: []Platform{
			PlatformLinkedIn, PlatformFacebook, PlatformTwitter, PlatformInstagram,
			PlatformYouTube, PlatformTikTok, PlatformPinterest,
		},
		PhoneRegion: DefaultPhoneRegion,
	}
}
