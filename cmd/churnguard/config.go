package main

import (
	"errors"
	"fmt"
	"os"

	qhttp "churnguard/http"
	"churnguard/logging"
	"churnguard/ml"

	"gopkg.in/yaml.v2"
)

const (
	defaultConfigPath = "config.yaml"
	configEnv         = "CHURNGUARD_CONFIG"
)

type Config struct {
	HTTP     qhttp.ServerConfig `yaml:"http"`
	Log      logging.Config     `yaml:"log"`
	Artifact ArtifactSettings   `yaml:"artifact"`
	Database struct {
		// empty disables the prediction log
		Path string `yaml:"path"`
	} `yaml:"database"`
	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

// ArtifactSettings locates the artifact files and controls the change watcher.
type ArtifactSettings struct {
	ml.ArtifactConfig `yaml:",inline"`
	Watch             bool `yaml:"watch"`
}

func defaultConfig() *Config {
	cfg := &Config{
		HTTP: qhttp.DefaultServerConfig(),
		Log:  logging.DefaultConfig(),
		Artifact: ArtifactSettings{
			ArtifactConfig: ml.ArtifactConfig{
				Dir:    "./artifacts",
				Model:  "churn_model.json",
				Scaler: "churn_scaler.json",
				Schema: "schema.yaml",
			},
			Watch: true,
		},
	}
	cfg.Metrics.Enabled = true
	return cfg
}

// resolveConfigPath picks the flag, then the environment, then the default.
// The second result reports whether the file must exist.
func resolveConfigPath(flag string) (string, bool) {
	if flag != "" {
		return flag, true
	}
	if env := os.Getenv(configEnv); env != "" {
		return env, true
	}
	return defaultConfigPath, false
}

func loadConfig(path string, required bool) (*Config, error) {
	config := defaultConfig()

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return config, nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	dec := yaml.NewDecoder(file)
	dec.SetStrict(true)
	if err := dec.Decode(config); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.HTTP.Port)
	}
	if c.HTTP.Timeout < 0 {
		return errors.New("http.timeout must not be negative")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Artifact.Pipeline == "" && (c.Artifact.Model == "" || c.Artifact.Scaler == "" || c.Artifact.Schema == "") {
		return errors.New("artifact needs model, scaler and schema, or a pipeline")
	}
	return nil
}
