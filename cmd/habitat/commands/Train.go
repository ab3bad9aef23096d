package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JelinR/habitat-lab/evaluation"
	"github.com/JelinR/habitat-lab/trainer"
	"github.com/JelinR/habitat-lab/trainer/vpg"
)

// preemptionSignal is sent by the job scheduler ahead of preemption
const preemptionSignal = syscall.SIGUSR1

func newTrainCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "train [key=value ...]",
		Short: "Train the configured trainer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrainer(cmd, flags, args, func(ctx context.Context,
				t trainer.Trainer) error {
				return t.Train(ctx)
			})
		},
	}
}

func newEvalCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "eval [key=value ...]",
		Short: "Evaluate the checkpoints at eval_ckpt_path_dir",
		Long: `Evaluate a single checkpoint file, or every checkpoint of a directory
as training writes them. Evaluation of a directory stops once training
has finished and every checkpoint was evaluated, or once no checkpoint
appeared for eval.idle_timeout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrainer(cmd, flags, args, func(ctx context.Context,
				t trainer.Trainer) error {
				if err := t.Eval(ctx); err != nil {
					return err
				}
				printSession(cmd, t)
				return nil
			})
		},
	}
}

// runTrainer builds the configured trainer and calls run with a context
// that is cancelled on interrupt
func runTrainer(cmd *cobra.Command, flags *globalFlags, args []string,
	run func(context.Context, trainer.Trainer) error) (err error) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt,
		syscall.SIGTERM)
	defer stop()

	rt, err := flags.setup(ctx, cmd, args)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, rt.close()) }()

	factory, err := trainer.Get(rt.config.TrainerName)
	if err != nil {
		return err
	}

	preemption := trainer.NewPreemption()
	stopPreemption := preemption.Notify(ctx, preemptionSignal)
	defer stopPreemption()

	t, err := factory(rt.config,
		trainer.WithLogger(rt.logger),
		trainer.WithMetrics(rt.metrics),
		trainer.WithPreemption(preemption),
	)
	if err != nil {
		return err
	}
	if v, ok := t.(*vpg.Trainer); ok {
		v.ProgressOutput = cmd.ErrOrStderr()
	}

	return run(ctx, t)
}

// printSession prints the success histogram and history of the last
// polling session of t, if any
func printSession(cmd *cobra.Command, t trainer.Trainer) {
	s, ok := t.(interface{ LastSession() *evaluation.Session })
	if !ok || s.LastSession() == nil {
		return
	}

	out := cmd.OutOrStdout()
	session := s.LastSession()
	fmt.Fprintln(out, "Episode success histogram")
	fmt.Fprintln(out, evaluation.HistogramTable(session.Histogram()))
	fmt.Fprintln(out, "Episode success history")
	fmt.Fprintln(out, evaluation.HistoryTable(session.History()))
}
