package cfg

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Accounts map[string]Account `yaml:"accounts"`
	// CacheDir holds the attachment registry database. Defaults to
	// ".cache" in the working directory.
	CacheDir string `yaml:"cacheDir"`
}

type Account struct {
	ServerURL           string  `yaml:"serverURL"`
	Username            string  `yaml:"username"`
	Password            string  `yaml:"password"`
	NoTLS               bool    `yaml:"noTLS"`
	StartTLS            bool    `yaml:"startTLS"`
	SkipTLSVerification bool    `yaml:"skipTLSVerification"`
	Proxy               string  `yaml:"proxy"`
	Bandwidth           float64 `yaml:"bandwidth"` // bytes per second, 0 = unlimited
	SMTPServerURL       string  `yaml:"smtpServerURL"`
	SMTPNoTLS           bool    `yaml:"smtpNoTLS"`
}

func newConfig() *Config {
	return &Config{}
}

// LoadFromFile loads the configuration from the file
func LoadFromFile(fileName string) (*Config, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	return load(file)
}

// load from a io.ReadCloser
func load(reader io.ReadCloser) (*Config, error) {
	defer reader.Close()
	decoder := yaml.NewDecoder(reader)
	config := newConfig()
	err := decoder.Decode(config)
	if err != nil {
		return nil, fmt.Errorf("cannot decode configuration: %w", err)
	}
	setDefaults(config)
	return config, nil
}

func setDefaults(config *Config) {
	if config.CacheDir == "" {
		wd, _ := os.Getwd()
		config.CacheDir = filepath.Join(wd, ".cache")
	}
}
