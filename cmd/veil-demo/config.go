package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/veil-protocol/veil-go/pkg/auth"
	"github.com/veil-protocol/veil-go/pkg/suite"
)

// FileConfig is the YAML configuration file schema. Every field has a
// flag equivalent; explicit flags win over file values.
type FileConfig struct {
	ClientAuth string   `yaml:"client_auth"`
	ServerAuth string   `yaml:"server_auth"`
	Suites     []string `yaml:"suites"`
	Chunk      int      `yaml:"chunk"`
	MaxSteps   int      `yaml:"max_steps"`
	LogLevel   string   `yaml:"log_level"`
}

func loadConfigFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &fc, nil
}

func parseMode(s string) (auth.Mode, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return auth.ModeNone, nil
	case "optional":
		return auth.ModeOptional, nil
	case "required":
		return auth.ModeRequired, nil
	default:
		return 0, fmt.Errorf("unknown auth mode: %s (use: none, optional, required)", s)
	}
}

func parseSuites(names []string) ([]suite.ID, error) {
	var ids []suite.ID
	for _, name := range names {
		found := false
		for _, s := range suite.Catalog() {
			if strings.EqualFold(s.Name, name) {
				ids = append(ids, s.ID)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown cipher suite: %s", name)
		}
	}
	return ids, nil
}
