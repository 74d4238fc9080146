package shared

// Version is stamped at build time with -ldflags "-X nuxthub/shared.Version=...".
var Version = "dev"

// Environment is a deployment environment of a project.
type Environment string

const (
	EnvProduction Environment = "production"
	EnvPreview    Environment = "preview"
	EnvLocal      Environment = "local"
)

func (e Environment) String() string { return string(e) }

// UserAgent identifies the CLI on outgoing requests.
func UserAgent() string {
	return "nuxthub-cli/" + Version
}
