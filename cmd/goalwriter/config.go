// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/goalwriter/internal/secrets"
	"github.com/pdiddy/goalwriter/pkg/types"
)

const envPrefix = "GOALWRITER"

// secretKeys are config keys that are empty by default but still need
// registering so environment overrides are seen.
var secretKeys = []string{"critic.api_key", "server.jwt_secret", "persistence.redis_password"}

// registerDefaults makes every AppConfig field a known viper key, so that
// GOALWRITER_CRITIC_MODEL and friends override the file.
func registerDefaults(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults, err := flatDefaults()
	if err != nil {
		panic(fmt.Sprintf("encoding default config: %v", err))
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for _, key := range secretKeys {
		v.SetDefault(key, "")
	}
}

// flatDefaults returns DefaultAppConfig as dotted keys in its YAML layout.
func flatDefaults() (map[string]any, error) {
	data, err := yaml.Marshal(types.DefaultAppConfig())
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	out := make(map[string]any)
	flatten("", tree, out)
	return out, nil
}

func flatten(prefix string, tree map[string]any, out map[string]any) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flatten(key, sub, out)
			continue
		}
		out[key] = v
	}
}

// loadAppConfig resolves the effective configuration from defaults, the
// config file, environment, and bound flags, then fills API keys and the
// signing secret from .secrets/ where configuration left them empty.
func loadAppConfig(v *viper.Viper, s secrets.Secrets) (types.AppConfig, error) {
	defaults, err := flatDefaults()
	if err != nil {
		return types.AppConfig{}, err
	}
	for _, key := range secretKeys {
		defaults[key] = ""
	}

	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tree := make(map[string]any)
	for _, key := range keys {
		var value any
		switch defaults[key].(type) {
		case int:
			value = v.GetInt(key)
		case bool:
			value = v.GetBool(key)
		case float64:
			value = v.GetFloat64(key)
		case string:
			value = v.GetString(key)
		default:
			value = v.Get(key)
		}
		setPath(tree, strings.Split(key, "."), value)
	}

	data, err := yaml.Marshal(tree)
	if err != nil {
		return types.AppConfig{}, fmt.Errorf("encoding config: %w", err)
	}
	cfg := types.DefaultAppConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return types.AppConfig{}, fmt.Errorf("parsing config: %w", err)
	}
	if _, err := types.ParseSternness(string(cfg.Critic.Sternness)); err != nil {
		return types.AppConfig{}, err
	}

	switch cfg.Critic.Backend {
	case types.BackendClaude:
		cfg.Critic.APIKey = s.Or(secrets.AnthropicAPIKey, cfg.Critic.APIKey)
	default:
		cfg.Critic.APIKey = s.Or(secrets.GeminiAPIKey, cfg.Critic.APIKey)
	}
	cfg.Server.JWTSecret = s.Or(secrets.JWTSecret, cfg.Server.JWTSecret)
	return cfg, nil
}

func setPath(tree map[string]any, path []string, value any) {
	for _, seg := range path[:len(path)-1] {
		sub, ok := tree[seg].(map[string]any)
		if !ok {
			sub = make(map[string]any)
			tree[seg] = sub
		}
		tree = sub
	}
	tree[path[len(path)-1]] = value
}
