package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"loanqa/internal/domain"
)

// Credentials are resolved once at startup and passed to the clients that need them.
type Credentials struct {
	APIKey  string
	BaseURL string
	// EmbeddingAPIKey is set when the embedding service has its own key variable.
	EmbeddingAPIKey string
}

// ResolveCredentials looks up the API key and base URL, first in the secrets
// file and then in the environment (after loading the optional .env file).
// When ec names its own key variable, that key is resolved the same way.
// A missing key is a configuration error.
func ResolveCredentials(sc SecretsConfig, ec EmbeddingConfig) (Credentials, error) {
	lookup, err := newLookup(sc)
	if err != nil {
		return Credentials{}, err
	}

	creds := Credentials{BaseURL: baseURL(sc, lookup)}
	if creds.APIKey, err = require(lookup, sc.APIKeyName, sc.Path); err != nil {
		return Credentials{}, err
	}
	if ec.Provider == "openai" && ec.APIKeyEnv != "" {
		if creds.EmbeddingAPIKey, err = require(lookup, ec.APIKeyEnv, sc.Path); err != nil {
			return Credentials{}, err
		}
	}
	return creds, nil
}

// ResolveEmbeddingCredentials resolves only what the embedder in ec needs,
// for commands that never call the completion endpoint. The local hash
// embedder needs nothing, so no secrets are read for it.
func ResolveEmbeddingCredentials(sc SecretsConfig, ec EmbeddingConfig) (Credentials, error) {
	if ec.Provider != "openai" {
		return Credentials{BaseURL: strings.TrimRight(sc.DefaultBaseURL, "/")}, nil
	}

	lookup, err := newLookup(sc)
	if err != nil {
		return Credentials{}, err
	}

	creds := Credentials{BaseURL: baseURL(sc, lookup)}
	if ec.APIKeyEnv != "" {
		creds.EmbeddingAPIKey, err = require(lookup, ec.APIKeyEnv, sc.Path)
	} else {
		creds.APIKey, err = require(lookup, sc.APIKeyName, sc.Path)
	}
	if err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

// newLookup returns a function resolving a name from the secrets file and
// then the environment.
func newLookup(sc SecretsConfig) (func(string) string, error) {
	secrets, err := readSecrets(sc.Path, sc.Section)
	if err != nil {
		return nil, err
	}

	if sc.DotEnv != "" {
		// godotenv never overrides variables already set in the process.
		if err := godotenv.Load(sc.DotEnv); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: load %s: %v", domain.ErrConfiguration, sc.DotEnv, err)
		}
	}

	return func(name string) string {
		if v := strings.TrimSpace(secrets[name]); v != "" {
			return v
		}
		return strings.TrimSpace(os.Getenv(name))
	}, nil
}

func require(lookup func(string) string, name, path string) (string, error) {
	v := lookup(name)
	if v == "" {
		return "", fmt.Errorf("%w: %s is not set in %s or the environment", domain.ErrConfiguration, name, path)
	}
	return v, nil
}

func baseURL(sc SecretsConfig, lookup func(string) string) string {
	u := lookup(sc.BaseURLName)
	if u == "" {
		u = sc.DefaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

// readSecrets returns the key/value pairs in the given section of the secrets
// file. A missing file yields an empty map.
func readSecrets(path, section string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read secrets: %v", domain.ErrConfiguration, err)
	}

	var doc map[string]map[string]string
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse secrets %s: %v", domain.ErrConfiguration, path, err)
	}
	return doc[section], nil
}
