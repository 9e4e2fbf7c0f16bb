// Package constants provides centralized definitions of constants used throughout the application
package constants

// Environment variable names
const (
	// EnvFork selects the external (forked) environment when non-empty
	EnvFork = "FORK"

	// EnvLogLevel is the logrus level name
	EnvLogLevel = "LOG_LEVEL"

	// EnvCatalog points at a YAML market catalog replacing the embedded default
	EnvCatalog = "TESTENV_CATALOG"

	// EnvNodeURL is the base URL of a simulated node; empty means in-process
	EnvNodeURL = "TESTENV_NODE_URL"

	// EnvLabel names the deployment inside the address book
	EnvLabel = "TESTENV_LABEL"

	// EnvDBDriver is either sqlite or postgres
	EnvDBDriver = "TESTENV_DB_DRIVER"

	// EnvDBPath is the sqlite database file
	EnvDBPath = "TESTENV_DB_PATH"

	// EnvProbe selects the external environment probe
	EnvProbe = "TESTENV_PROBE"

	// EnvProbeFile is the address-book YAML read by the file probe
	EnvProbeFile = "TESTENV_PROBE_FILE"

	// EnvPulumiStack is the fully qualified stack read by the pulumi probe
	EnvPulumiStack = "TESTENV_PULUMI_STACK"

	// EnvPulumiWorkDir is the pulumi project directory
	EnvPulumiWorkDir = "TESTENV_PULUMI_WORKDIR"
)
