package conf

import (
	"fmt"

	"launchpad/pkg/utils"
)

// Config holds the full process configuration, built once from the
// environment at startup and passed by reference into every module.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	AppsAPI  AppsAPIConfig
	Keycloak KeycloakConfig
	NATS     NATSConfig
	Redis    RedisConfig
	Presets  PresetsConfig

	// InstanceID is the app id of the launchpad deployment itself on the
	// apps api. Newly installed apps are announced to this instance's
	// output document.
	InstanceID string

	// SeedFile optionally points to a YAML file with template definitions
	// upserted into the template store on startup.
	SeedFile string

	// AuthMiddlewareName is the ingress middleware injected into service
	// deployments so their traffic passes through the authorize hook.
	AuthMiddlewareName string
}

type ServerConfig struct {
	Host string
	Port int
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DB       string
}

// DSN returns a lib/pq connection string
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.DB)
}

type AppsAPIConfig struct {
	URL     string
	Token   string
	Cluster string
	Org     string
	Project string
}

type KeycloakConfig struct {
	URL   string
	Realm string
}

// Issuer returns the expected `iss` claim of tokens minted by this realm.
func (c KeycloakConfig) Issuer() string {
	return fmt.Sprintf("%s/realms/%s", c.URL, c.Realm)
}

// CertsURL returns the JWKS endpoint of the realm.
func (c KeycloakConfig) CertsURL() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs", c.URL, c.Realm)
}

type NATSConfig struct {
	URL string
}

// PresetsConfig names the compute presets the built-in internal apps are
// installed on.
type PresetsConfig struct {
	LLMInference string
	Embeddings   string
	Postgres     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// Enabled reports whether a redis endpoint was configured at all.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

// FromEnv builds the configuration from environment variables.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: utils.GetEnvOrDefault("HOST", "0.0.0.0"),
			Port: utils.GetEnvIntOrDefault("PORT", 8080),
		},
		Postgres: PostgresConfig{
			Host:     utils.GetEnvOrDefault("POSTGRES_HOST", "localhost"),
			Port:     utils.GetEnvOrDefault("POSTGRES_PORT", "5432"),
			User:     utils.GetEnvOrDefault("POSTGRES_USER", "postgres"),
			Password: utils.GetEnvOrDefault("POSTGRES_PASSWORD", "password"),
			DB:       utils.GetEnvOrDefault("POSTGRES_DB", "launchpad"),
		},
		AppsAPI: AppsAPIConfig{
			URL:     utils.GetEnvOrDefault("APPS_API_URL", ""),
			Token:   utils.GetEnvOrDefault("APPS_API_TOKEN", ""),
			Cluster: utils.GetEnvOrDefault("APPS_API_CLUSTER", ""),
			Org:     utils.GetEnvOrDefault("APPS_API_ORG", ""),
			Project: utils.GetEnvOrDefault("APPS_API_PROJECT", ""),
		},
		Keycloak: KeycloakConfig{
			URL:   utils.GetEnvOrDefault("KEYCLOAK_URL", ""),
			Realm: utils.GetEnvOrDefault("KEYCLOAK_REALM", ""),
		},
		NATS: NATSConfig{
			URL: utils.GetEnvOrDefault("NATS_URL", ""),
		},
		Redis: RedisConfig{
			Host:     utils.GetEnvOrDefault("REDIS_HOST", ""),
			Port:     utils.GetEnvOrDefault("REDIS_PORT", "6379"),
			Password: utils.GetEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       utils.GetEnvIntOrDefault("REDIS_DB", 0),
		},
		Presets: PresetsConfig{
			LLMInference: utils.GetEnvOrDefault("PRESET_LLM_INFERENCE", "gpu-large"),
			Embeddings:   utils.GetEnvOrDefault("PRESET_EMBEDDINGS", "gpu-small"),
			Postgres:     utils.GetEnvOrDefault("PRESET_POSTGRES", "cpu-small"),
		},
		InstanceID:         utils.GetEnvOrDefault("LAUNCHPAD_INSTANCE_ID", ""),
		SeedFile:           utils.GetEnvOrDefault("LAUNCHPAD_SEED_FILE", ""),
		AuthMiddlewareName: utils.GetEnvOrDefault("AUTH_MIDDLEWARE_NAME", "launchpad-auth"),
	}

	if cfg.AppsAPI.URL == "" {
		return nil, fmt.Errorf("APPS_API_URL is required")
	}

	return cfg, nil
}
