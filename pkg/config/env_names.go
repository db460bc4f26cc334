package config

const (
	EnvPrefix = "OPENLOTS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "OPENLOTS_DB_DSN"
	EnvDBHost = "OPENLOTS_DB_HOST"
	EnvDBUser = "OPENLOTS_DB_USER"
	EnvDBName = "OPENLOTS_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
