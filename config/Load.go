package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables read by Load
const EnvPrefix = "HABITAT"

// Load builds a Config from the defaults, the YAML file at path (if
// path is not empty), environment variables, and the key=value
// overrides given in opts. Override values are typed by parsing them
// as YAML, so "num_updates=10" sets an integer and
// "video_option=[disk]" sets a list. The returned Config is validated
// and frozen.
func Load(path string, opts []string) (*Config, error) {
	v := newViper()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("load: could not read config file: %w",
					err)
			}
		}
	}

	c := &Config{v: v}
	if err := c.decode(); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	c.strict = true
	if err := c.Merge(opts); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	if len(opts) > 0 {
		if err := c.Set("cmd_trailing_opts", opts); err != nil {
			return nil, fmt.Errorf("load: %w", err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	c.Freeze()

	return c, nil
}

// FromMap builds a validated, frozen Config from the defaults overlaid
// with the nested settings map.
func FromMap(settings map[string]interface{}) (*Config, error) {
	c, err := fromSettings(settings)
	if err != nil {
		return nil, fmt.Errorf("fromMap: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("fromMap: %w", err)
	}
	c.Freeze()

	return c, nil
}

// FromYAML builds a frozen Config from serialized YAML settings, such
// as those stored in a checkpoint. The result is not validated.
func FromYAML(data []byte) (*Config, error) {
	settings := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("fromYAML: %w", err)
	}

	c, err := fromSettings(settings)
	if err != nil {
		return nil, fmt.Errorf("fromYAML: %w", err)
	}
	c.Freeze()

	return c, nil
}

// Merge applies key=value overrides to the Config. Keys must already
// exist when the Config is struct.
func (c *Config) Merge(opts []string) error {
	for _, opt := range opts {
		key, value, err := parseOverride(opt)
		if err != nil {
			return err
		}
		if err := c.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}

// parseOverride splits key=value and types the value as YAML
func parseOverride(opt string) (string, interface{}, error) {
	key, raw, found := strings.Cut(opt, "=")
	key = strings.TrimSpace(key)
	if !found || key == "" {
		return "", nil, fmt.Errorf("%w: override %q is not of the form "+
			"key=value", ErrInvalid, opt)
	}

	var value interface{}
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
		return "", nil, fmt.Errorf("%w: override %q: %v", ErrInvalid, opt,
			err)
	}
	if value == nil {
		value = raw
	}

	return key, value, nil
}

// fromSettings builds an unfrozen Config from defaults and settings
func fromSettings(settings map[string]interface{}) (*Config, error) {
	v := newViper()
	if settings != nil {
		if err := v.MergeConfigMap(settings); err != nil {
			return nil, err
		}
	}

	c := &Config{v: v}
	if err := c.decode(); err != nil {
		return nil, err
	}
	return c, nil
}

// newViper returns a viper instance with all defaults registered
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	return v
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
