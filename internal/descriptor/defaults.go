package descriptor

// Built-in suite names.
const (
	SuiteWebsites         = "websites"
	SuiteInstantMessaging = "instant_messaging"
	SuiteCircumvention    = "circumvention"
	SuitePerformance      = "performance"
	SuiteExperimental     = "experimental"
)

// Defaults returns the built-in suites shipped with the client.
// The returned slice is freshly allocated on every call.
func Defaults() []Descriptor {
	return []Descriptor{
		{
			ID:               SuiteWebsites,
			Name:             "Websites",
			ShortDescription: "Test the blocking of websites",
			Color:            "#4c6ef5",
			NetTests: []NetTest{
				{Name: "web_connectivity", BackgroundRunEnabled: true, ManualRunEnabled: true},
			},
			Builtin: true,
		},
		{
			ID:               SuiteInstantMessaging,
			Name:             "Instant Messaging",
			ShortDescription: "Test the blocking of instant messaging apps",
			Color:            "#15aabf",
			NetTests: []NetTest{
				{Name: "whatsapp", BackgroundRunEnabled: true, ManualRunEnabled: true},
				{Name: "telegram", BackgroundRunEnabled: true, ManualRunEnabled: true},
				{Name: "facebook_messenger", BackgroundRunEnabled: true, ManualRunEnabled: true},
				{Name: "signal", BackgroundRunEnabled: true, ManualRunEnabled: true},
			},
			Builtin: true,
		},
		{
			ID:               SuiteCircumvention,
			Name:             "Circumvention",
			ShortDescription: "Test the blocking of censorship circumvention tools",
			Color:            "#e64980",
			NetTests: []NetTest{
				{Name: "psiphon", BackgroundRunEnabled: true, ManualRunEnabled: true},
				{Name: "tor", BackgroundRunEnabled: true, ManualRunEnabled: true},
				{Name: "torsf", ManualRunEnabled: true},
			},
			Builtin: true,
		},
		{
			ID:               SuitePerformance,
			Name:             "Performance",
			ShortDescription: "Test your network speed and performance",
			Color:            "#be4bdb",
			NetTests: []NetTest{
				{Name: "http_header_field_manipulation", BackgroundRunEnabled: true, ManualRunEnabled: true},
				{Name: "http_invalid_request_line", BackgroundRunEnabled: true, ManualRunEnabled: true},
			},
			LongRunningTests: []NetTest{
				{Name: "ndt", ManualRunEnabled: true},
				{Name: "dash", ManualRunEnabled: true},
			},
			Builtin: true,
		},
		{
			ID:               SuiteExperimental,
			Name:             "Experimental",
			ShortDescription: "Run new experimental tests",
			Color:            "#495057",
			NetTests: []NetTest{
				{Name: "stunreachability", BackgroundRunEnabled: true, ManualRunEnabled: true},
				{Name: "dnscheck", BackgroundRunEnabled: true, ManualRunEnabled: true},
				{Name: "riseupvpn", ManualRunEnabled: true},
				{Name: "echcheck", ManualRunEnabled: true},
			},
			Builtin: true,
		},
	}
}

// longRunningTests are net-tests that saturate the link for minutes and are
// never run in the background.
var longRunningTests = map[string]bool{
	"ndt":  true,
	"dash": true,
}

// IsLongRunning reports whether the named net-test is long-running.
func IsLongRunning(name string) bool {
	return longRunningTests[name]
}
