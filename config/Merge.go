package config

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// SetupEvalConfig returns the config used to evaluate a checkpoint.
// The config saved in the checkpoint is merged with the evaluation
// config using the following overwrite priority:
//
//	eval opts > ckpt opts > eval config > ckpt config
//
// If the saved config is outdated, that is, it holds keys the
// evaluation config does not know about, only the evaluation config
// and its opts are used. A "train" split is replaced by "val". The
// returned Config is frozen.
func SetupEvalConfig(eval, ckpt *Config, logger *slog.Logger) (*Config, error) {
	merged, err := mergeEvalConfig(eval, ckpt)
	if errors.Is(err, ErrUnknownKey) {
		logger.Info("saved config is outdated, using solely eval config",
			"reason", err)
		merged = eval.Clone()
		merged.strict = true
		merged.readonly = false
		err = merged.Merge(eval.CmdTrailingOpts)
	}
	if err != nil {
		return nil, fmt.Errorf("setupEvalConfig: %w", err)
	}

	err = ReadWrite(merged, func(c *Config) error {
		if c.Environment.Split == "train" {
			return c.Set("environment.split", "val")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("setupEvalConfig: %w", err)
	}
	merged.Freeze()

	return merged, nil
}

func mergeEvalConfig(eval, ckpt *Config) (*Config, error) {
	known := make(map[string]bool)
	for _, key := range eval.v.AllKeys() {
		known[key] = true
	}

	var unknown []string
	for _, key := range ckpt.v.AllKeys() {
		if !known[key] {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %v", ErrUnknownKey, unknown)
	}

	merged := newViper()
	if err := merged.MergeConfigMap(ckpt.Settings()); err != nil {
		return nil, err
	}
	if err := merged.MergeConfigMap(eval.Settings()); err != nil {
		return nil, err
	}

	c := &Config{v: merged, strict: true}
	if err := c.decode(); err != nil {
		return nil, err
	}

	if err := c.Merge(ckpt.CmdTrailingOpts); err != nil {
		return nil, err
	}
	if err := c.Merge(eval.CmdTrailingOpts); err != nil {
		return nil, err
	}

	return c, nil
}
