package app

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnvKey names the env var that points at the YAML config file.
const ConfigFileEnvKey = "VIDTUBE_CONFIG_FILE"

// LoadConfigFile reads a flat YAML map of VIDTUBE_* keys and exports every
// key that is not already set in the environment. It returns the keys it set.
//
//	VIDTUBE_HTTP_ADDR: 127.0.0.1:8000
//	VIDTUBE_DB_MAX_CONNS: 20
//	VIDTUBE_AUTH_COOKIE_SECURE: false
func LoadConfigFile(path string) ([]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied path.
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrConfig, path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrConfig, path, err)
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var applied []string
	for _, k := range keys {
		key := strings.ToUpper(strings.TrimSpace(k))
		if !strings.HasPrefix(key, "VIDTUBE_") {
			return applied, fmt.Errorf("%w: %s: unknown key %q", ErrConfig, path, k)
		}
		if _, set := os.LookupEnv(key); set {
			continue
		}
		val, err := scalarString(raw[k])
		if err != nil {
			return applied, fmt.Errorf("%w: %s: key %s: %w", ErrConfig, path, key, err)
		}
		if err := os.Setenv(key, val); err != nil {
			return applied, err
		}
		applied = append(applied, key)
	}
	return applied, nil
}

func scalarString(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("expected a scalar, got %T", v)
	}
}
