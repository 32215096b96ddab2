package boot

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Env     string `env:"ENV,default=dev"`
	DataDir string `env:"DATA_DIR,default=."`
	Client  struct {
		BaseURL        string        `env:"API_BASE_URL,default=http://localhost:8080/api/facebook/posts"`
		Timeout        time.Duration `env:"API_TIMEOUT,default=30s"`
		CredentialFile string        `env:"CREDENTIAL_FILE"`
		NoticeTTL      time.Duration `env:"NOTICE_TTL,default=3s"`
		FallbackImage  string        `env:"FALLBACK_IMAGE,default=/placeholder.png"`
	}
	Server struct {
		Port         string `env:"PORT,default=8080"`
		MetricsPort  string `env:"METRICS_PORT,default=8081"`
		Origins      string `env:"ALLOWED_ORIGINS,default=*"`
		BasePath     string `env:"API_BASE_PATH,default=/api/facebook/posts"`
		TokenSecret  string `env:"TOKEN_SECRET,default=dev-secret"`
		SeedFile     string `env:"SEED_FILE"`
		DatabaseFile string `env:"DATABASE_FILE,default=posts.db"`
	}
}

func Load() (*Config, error) {
	return LoadFrom(envconfig.OsLookuper())
}

// LoadFrom reads the configuration from the given lookuper, which lets tests
// supply a map instead of the process environment.
func LoadFrom(lookuper envconfig.Lookuper) (*Config, error) {
	config := &Config{}
	if err := envconfig.ProcessWith(context.Background(), config, lookuper); err != nil {
		return nil, fmt.Errorf("parsing env vars: %w", err)
	}
	return config, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "prod"
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "dev"
}

func (c *Config) DataDirectory() string {
	return c.DataDir
}

// CredentialPath is where the client keeps its bearer token.
func (c *Config) CredentialPath() string {
	if c.Client.CredentialFile != "" {
		return c.Client.CredentialFile
	}
	return filepath.Join(c.DataDir, "credential")
}

// DatabasePath is the sqlite file used by the posts service. ":memory:" is
// passed through untouched.
func (c *Config) DatabasePath() string {
	file := c.Server.DatabaseFile
	if file == ":memory:" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(c.DataDir, file)
}
