package config

// EnvPrefix is empty because every variable carries the full CRYPTOCART_ name
// in its envconfig tag.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "CRYPTOCART_DB_DSN"
	EnvDBHost = "CRYPTOCART_DB_HOST"
	EnvDBUser = "CRYPTOCART_DB_USER"
	EnvDBName = "CRYPTOCART_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
