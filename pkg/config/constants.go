package config

const (
	EnvPrefix = "AMBERWAY"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "AMBERWAY_DB_DSN"
	EnvDBHost = "AMBERWAY_DB_HOST"
	EnvDBUser = "AMBERWAY_DB_USER"
	EnvDBName = "AMBERWAY_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
