package config

const (
	// EnvPrefix is intentionally empty: every field names its variable explicitly.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "GOLDBRIDGE_DB_DSN"
	EnvDBHost = "GOLDBRIDGE_DB_HOST"
	EnvDBUser = "GOLDBRIDGE_DB_USER"
	EnvDBName = "GOLDBRIDGE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
