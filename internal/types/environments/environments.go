package environments

// Environment selects the logging and configuration profile the harness
// runs with. It comes from APP_ENV.
type Environment string

const (
	Production  Environment = "production"
	Development Environment = "development"
	Staging     Environment = "staging"
	Test        Environment = "test"
)

// Parse maps a raw APP_ENV value onto a known Environment. Unrecognized
// values fall back to Development, which is what operator machines run.
func Parse(raw string) Environment {
	switch Environment(raw) {
	case Production, Development, Staging, Test:
		return Environment(raw)
	default:
		return Development
	}
}
