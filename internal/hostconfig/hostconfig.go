// Package hostconfig is the C10/§6.3 host application configuration
// loader: a hierarchical key/value source built on koanf, layering a YAML
// file under environment-variable overrides, with "${NAME}" tokens in
// string values interpolated against os.Environ() before being handed to
// a caller.
package hostconfig

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/leapstack-labs/ingestiond/internal/model"
)

const delimiter = "."

var interpolationToken = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Config is the loaded, queryable host configuration.
type Config struct {
	k *koanf.Koanf
}

// ConnectionTemplate is one named connection string, possibly carrying
// "{vault:<path>}" placeholders for C2 to resolve.
type ConnectionTemplate struct {
	Name     string
	Template string
}

// Load builds a Config from defaults, an optional YAML file at path (skipped
// if it does not exist), and environment-variable overrides prefixed with
// envPrefix (e.g. "INGESTIOND_DATASETS_DIR" overrides "datasets.dir" when
// envPrefix is "INGESTIOND_"). The variable name after the prefix is
// lower-cased and every "_" becomes ".", so only all-lower-case keys
// without underscores can be overridden this way: a camelCase key such as
// "upload.fs.basePath" is not.
func Load(path string, envPrefix string, defaults map[string]any) (*Config, error) {
	k := koanf.New(delimiter)

	if len(defaults) > 0 {
		if err := k.Load(confmap.Provider(defaults, delimiter), nil); err != nil {
			return nil, fmt.Errorf("%w: loading config defaults: %v", model.ErrConfig, err)
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("%w: loading config file %q: %v", model.ErrConfig, path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: stat config file %q: %v", model.ErrConfig, path, err)
		}
	}

	if envPrefix != "" {
		envLoader := env.Provider(envPrefix, delimiter, func(s string) string {
			trimmed := strings.TrimPrefix(s, envPrefix)
			return strings.ToLower(strings.ReplaceAll(trimmed, "_", delimiter))
		})
		if err := k.Load(envLoader, nil); err != nil {
			return nil, fmt.Errorf("%w: loading env overrides: %v", model.ErrConfig, err)
		}
	}

	return &Config{k: k}, nil
}

// String returns the string value at key with "${NAME}" tokens
// interpolated against the process environment.
func (c *Config) String(key string) string {
	return interpolate(c.k.String(key))
}

// StringOr returns String(key), or fallback if the key is absent.
func (c *Config) StringOr(key, fallback string) string {
	if !c.k.Exists(key) {
		return fallback
	}
	return c.String(key)
}

// Bool returns the bool value at key.
func (c *Config) Bool(key string) bool { return c.k.Bool(key) }

// Int returns the int value at key.
func (c *Config) Int(key string) int { return c.k.Int(key) }

// IntOr returns Int(key), or fallback if the key is absent.
func (c *Config) IntOr(key string, fallback int) int {
	if !c.k.Exists(key) {
		return fallback
	}
	return c.k.Int(key)
}

// ConnectionTemplates returns every entry under "connections" as a
// ConnectionTemplate, keyed by its name under that map.
func (c *Config) ConnectionTemplates() []ConnectionTemplate {
	raw := c.k.StringMap("connections")
	out := make([]ConnectionTemplate, 0, len(raw))
	for name, tmpl := range raw {
		out = append(out, ConnectionTemplate{Name: name, Template: interpolate(tmpl)})
	}
	return out
}

// ConnectionTemplate returns one named template, resolved for environment
// interpolation but not yet for "{vault:...}" tokens (C2's job).
func (c *Config) ConnectionTemplate(name string) (string, bool) {
	key := "connections." + name
	if !c.k.Exists(key) {
		return "", false
	}
	return interpolate(c.k.String(key)), true
}

// Environment returns the service's current environment tag, used by C4's
// per-step environment gate.
func (c *Config) Environment() string { return c.StringOr("environment", "production") }

// DatasetsDir returns the directory C10 globs dataset-*.json from.
func (c *Config) DatasetsDir() string { return c.StringOr("datasets.dir", "./datasets") }

func interpolate(s string) string {
	if s == "" {
		return s
	}
	return interpolationToken.ReplaceAllStringFunc(s, func(tok string) string {
		name := interpolationToken.FindStringSubmatch(tok)[1]
		return os.Getenv(name)
	})
}
