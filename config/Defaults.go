package config

import (
	"github.com/klauspost/cpuid/v2"
	"github.com/spf13/viper"
)

// Default values of a Config
const (
	DefaultTrainerName        = "vpg"
	DefaultNumUpdates         = Unset
	DefaultTotalNumSteps      = 100_000
	DefaultNumCheckpoints     = 10
	DefaultCheckpointInterval = Unset
	DefaultCheckpointFolder   = "data/checkpoints"
	DefaultLogInterval        = 10
	DefaultVideoDir           = "data/video"
)

// Bounds on the default number of environments
const (
	fallbackNumEnvironments = 4
	maxDefaultEnvironments  = 8
)

// DefaultNumEnvironments returns the default number of parallel
// environments: one per physical core, at most maxDefaultEnvironments
func DefaultNumEnvironments() int {
	cores := cpuid.CPU.PhysicalCores
	if cores <= 0 {
		return fallbackNumEnvironments
	}
	return min(cores, maxDefaultEnvironments)
}

// Environment defaults
const (
	DefaultRows               = 8
	DefaultCols               = 8
	DefaultObstacleDensity    = 0.15
	DefaultMaxEpisodeSteps    = 64
	DefaultSuccessDistance    = 0
	DefaultNumEpisodes        = 1000
	DefaultEvalEpisodesPerEnv = 5
	DefaultSplit              = "train"
	DefaultSeed               = 1
)

// RL defaults
const (
	DefaultSaveResumeStateInterval = 100
	DefaultSaveStateBatchOnly      = true
	DefaultVPGNumSteps             = 32
	DefaultVPGGamma                = 0.99
	DefaultVPGLearningRate         = 0.05
	DefaultVPGOptimizer            = "adam"
	DefaultVPGHiddenDecay          = 0.9
)

// Eval, logging and metrics defaults
const (
	DefaultPollInterval = "2s"
	DefaultIdleTimeout  = "0s"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("trainer_name", DefaultTrainerName)
	v.SetDefault("num_environments", DefaultNumEnvironments())
	v.SetDefault("num_updates", DefaultNumUpdates)
	v.SetDefault("total_num_steps", DefaultTotalNumSteps)
	v.SetDefault("num_checkpoints", DefaultNumCheckpoints)
	v.SetDefault("checkpoint_interval", DefaultCheckpointInterval)
	v.SetDefault("checkpoint_folder", DefaultCheckpointFolder)
	v.SetDefault("eval_ckpt_path_dir", DefaultCheckpointFolder)
	v.SetDefault("log_interval", DefaultLogInterval)
	v.SetDefault("video_option", []string{})
	v.SetDefault("video_dir", DefaultVideoDir)
	v.SetDefault("tensorboard_dir", "")
	v.SetDefault("cmd_trailing_opts", []string{})

	v.SetDefault("environment.rows", DefaultRows)
	v.SetDefault("environment.cols", DefaultCols)
	v.SetDefault("environment.obstacle_density", DefaultObstacleDensity)
	v.SetDefault("environment.max_episode_steps", DefaultMaxEpisodeSteps)
	v.SetDefault("environment.success_distance", DefaultSuccessDistance)
	v.SetDefault("environment.num_episodes", DefaultNumEpisodes)
	v.SetDefault("environment.eval_episodes_per_env", DefaultEvalEpisodesPerEnv)
	v.SetDefault("environment.split", DefaultSplit)
	v.SetDefault("environment.seed", DefaultSeed)

	v.SetDefault("rl.preemption.save_resume_state_interval",
		DefaultSaveResumeStateInterval)
	v.SetDefault("rl.preemption.save_state_batch_only",
		DefaultSaveStateBatchOnly)
	v.SetDefault("rl.vpg.num_steps", DefaultVPGNumSteps)
	v.SetDefault("rl.vpg.gamma", DefaultVPGGamma)
	v.SetDefault("rl.vpg.lr", DefaultVPGLearningRate)
	v.SetDefault("rl.vpg.optimizer", DefaultVPGOptimizer)
	v.SetDefault("rl.vpg.hidden_decay", DefaultVPGHiddenDecay)

	v.SetDefault("eval.poll_interval", DefaultPollInterval)
	v.SetDefault("eval.idle_timeout", DefaultIdleTimeout)

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)

	v.SetDefault("metrics.addr", "")
}
