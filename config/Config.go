// Package config implements the training configuration of navigation
// trainers. A Config is built once from defaults, an optional YAML file,
// HABITAT_ environment variables and key=value overrides, and is frozen
// afterwards. A frozen Config can only be modified inside a ReadWrite
// scope.
//
// Stopping criteria and checkpoint criteria are each given by a pair
// of mutually exclusive fields, where the value Unset (-1) marks the
// field as not in use:
//
//	num_updates      XOR  total_num_steps
//	num_checkpoints  XOR  checkpoint_interval
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Unset marks an optional integer field as not in use
const Unset = -1

// Sentinel configuration errors
var (
	ErrBothSet    = errors.New("mutually exclusive fields are both specified")
	ErrNeitherSet = errors.New("one of the mutually exclusive fields must be specified")
	ErrReadOnly   = errors.New("config is read-only")
	ErrUnknownKey = errors.New("key is not in struct config")
	ErrInvalid    = errors.New("invalid config value")
)

// Config holds the configuration of a training or evaluation run.
//
// Exported fields are a decoded snapshot of the underlying settings
// and must be treated as read-only. All mutation goes through Set,
// which refreshes the snapshot.
type Config struct {
	TrainerName        string   `mapstructure:"trainer_name"`
	NumEnvironments    int      `mapstructure:"num_environments"`
	NumUpdates         int64    `mapstructure:"num_updates"`
	TotalNumSteps      int64    `mapstructure:"total_num_steps"`
	NumCheckpoints     int      `mapstructure:"num_checkpoints"`
	CheckpointInterval int      `mapstructure:"checkpoint_interval"`
	CheckpointFolder   string   `mapstructure:"checkpoint_folder"`
	EvalCkptPathDir    string   `mapstructure:"eval_ckpt_path_dir"`
	LogInterval        int      `mapstructure:"log_interval"`
	VideoOption        []string `mapstructure:"video_option"`
	VideoDir           string   `mapstructure:"video_dir"`
	TensorboardDir     string   `mapstructure:"tensorboard_dir"`
	CmdTrailingOpts    []string `mapstructure:"cmd_trailing_opts"`

	Environment EnvironmentConfig `mapstructure:"environment"`
	RL          RLConfig          `mapstructure:"rl"`
	Eval        EvalConfig        `mapstructure:"eval"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`

	v        *viper.Viper
	readonly bool
	strict   bool
}

// EnvironmentConfig configures the navigation environments
type EnvironmentConfig struct {
	Rows               int     `mapstructure:"rows"`
	Cols               int     `mapstructure:"cols"`
	ObstacleDensity    float64 `mapstructure:"obstacle_density"`
	MaxEpisodeSteps    int     `mapstructure:"max_episode_steps"`
	SuccessDistance    int     `mapstructure:"success_distance"`
	NumEpisodes        int     `mapstructure:"num_episodes"`
	EvalEpisodesPerEnv int     `mapstructure:"eval_episodes_per_env"`
	Split              string  `mapstructure:"split"`
	Seed               uint64  `mapstructure:"seed"`
}

// RLConfig holds algorithm and preemption settings
type RLConfig struct {
	Preemption PreemptionConfig `mapstructure:"preemption"`
	VPG        VPGConfig        `mapstructure:"vpg"`
}

// PreemptionConfig determines when resume state is saved
type PreemptionConfig struct {
	SaveResumeStateInterval int  `mapstructure:"save_resume_state_interval"`
	SaveStateBatchOnly      bool `mapstructure:"save_state_batch_only"`
}

// VPGConfig configures the vanilla policy gradient trainer
type VPGConfig struct {
	NumSteps     int     `mapstructure:"num_steps"`
	Gamma        float64 `mapstructure:"gamma"`
	LearningRate float64 `mapstructure:"lr"`
	Optimizer    string  `mapstructure:"optimizer"`
	HiddenDecay  float64 `mapstructure:"hidden_decay"`
}

// EvalConfig configures checkpoint polling during evaluation
type EvalConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// LoggingConfig configures the structured logger
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// ReadOnly returns whether the Config rejects all modification
func (c *Config) ReadOnly() bool { return c.readonly }

// Struct returns whether the Config rejects the addition of new keys
func (c *Config) Struct() bool { return c.strict }

// Freeze makes the Config read-only and struct
func (c *Config) Freeze() {
	c.readonly = true
	c.strict = true
}

// Set sets the value at a dotted key such as "rl.vpg.lr".
func (c *Config) Set(key string, value interface{}) error {
	if c.readonly {
		return fmt.Errorf("set %q: %w", key, ErrReadOnly)
	}
	if c.strict && !c.hasKey(key) {
		return fmt.Errorf("set %q: %w", key, ErrUnknownKey)
	}

	c.v.Set(key, value)
	return c.decode()
}

// Settings returns the nested settings map backing the Config
func (c *Config) Settings() map[string]interface{} {
	return c.v.AllSettings()
}

// YAML returns the Config serialized as YAML
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c.Settings())
	if err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	return out, nil
}

// Clone returns a deep copy of the Config with the same flags
func (c *Config) Clone() *Config {
	clone, err := fromSettings(c.Settings())
	if err != nil {
		// The settings were decodable when c was built
		panic(fmt.Sprintf("clone: %v", err))
	}
	clone.readonly = c.readonly
	clone.strict = c.strict
	return clone
}

// UpdateMode returns whether the stopping criterion is num_updates
func (c *Config) UpdateMode() bool {
	return c.NumUpdates != Unset
}

// IntervalCheckpoints returns whether checkpoints are saved every
// checkpoint_interval updates rather than num_checkpoints times
func (c *Config) IntervalCheckpoints() bool {
	return c.CheckpointInterval != Unset
}

// Validate checks the mutually exclusive field pairs and the ranges of
// the remaining fields.
func (c *Config) Validate() error {
	err := exclusive("num_updates", c.NumUpdates, "total_num_steps",
		c.TotalNumSteps)
	if err != nil {
		return err
	}

	err = exclusive("num_checkpoints", int64(c.NumCheckpoints),
		"checkpoint_interval", int64(c.CheckpointInterval))
	if err != nil {
		return err
	}

	switch {
	case c.NumUpdates != Unset && c.NumUpdates <= 0:
		return fmt.Errorf("%w: num_updates must be positive, got %d",
			ErrInvalid, c.NumUpdates)

	case c.TotalNumSteps != Unset && c.TotalNumSteps <= 0:
		return fmt.Errorf("%w: total_num_steps must be positive, got %d",
			ErrInvalid, c.TotalNumSteps)

	case c.CheckpointInterval != Unset && c.CheckpointInterval <= 0:
		return fmt.Errorf("%w: checkpoint_interval must be positive, got %d",
			ErrInvalid, c.CheckpointInterval)

	case c.NumCheckpoints != Unset && c.NumCheckpoints < 0:
		return fmt.Errorf("%w: num_checkpoints must be non-negative, got %d",
			ErrInvalid, c.NumCheckpoints)

	case c.NumEnvironments <= 0:
		return fmt.Errorf("%w: num_environments must be positive, got %d",
			ErrInvalid, c.NumEnvironments)

	case c.RL.Preemption.SaveResumeStateInterval <= 0:
		return fmt.Errorf("%w: rl.preemption.save_resume_state_interval "+
			"must be positive, got %d", ErrInvalid,
			c.RL.Preemption.SaveResumeStateInterval)
	}

	return nil
}

// exclusive returns an error if not exactly one of the two fields is set
func exclusive(nameA string, a int64, nameB string, b int64) error {
	if a != Unset && b != Unset {
		return fmt.Errorf("%w: %s and %s are both specified, one must be "+
			"%d (%s: %d, %s: %d)", ErrBothSet, nameA, nameB, Unset, nameA, a,
			nameB, b)
	}
	if a == Unset && b == Unset {
		return fmt.Errorf("%w: one of %s and %s must be specified "+
			"(%s: %d, %s: %d)", ErrNeitherSet, nameA, nameB, nameA, a, nameB,
			b)
	}
	return nil
}

// decode refreshes the exported snapshot from the underlying settings
func (c *Config) decode() error {
	var fresh Config
	if err := c.v.Unmarshal(&fresh); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	fresh.v = c.v
	fresh.readonly = c.readonly
	fresh.strict = c.strict
	*c = fresh

	return nil
}

// hasKey returns whether key is a leaf key or a section of the Config
func (c *Config) hasKey(key string) bool {
	key = normalizeKey(key)
	for _, k := range c.v.AllKeys() {
		if k == key || len(k) > len(key) && k[:len(key)+1] == key+"." {
			return true
		}
	}
	return false
}
