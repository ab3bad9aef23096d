package commands

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JelinR/habitat-lab/config"
	"github.com/JelinR/habitat-lab/environment/pointnav"
)

func newFollowCommand(flags *globalFlags) *cobra.Command {
	var (
		episodes    int
		outDir      string
		showActions bool
	)

	cmd := &cobra.Command{
		Use:   "follow [key=value ...]",
		Short: "Drive the shortest path follower and save top-down frames",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(flags.configPath, args)
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = filepath.Join(c.VideoDir, "follower")
			}
			return runFollower(cmd, c, episodes, outDir, showActions)
		},
	}

	cmd.Flags().IntVarP(&episodes, "episodes", "n", 1, "number of episodes")
	cmd.Flags().StringVarP(&outDir, "output", "o", "",
		"directory for frames (default <video_dir>/follower)")
	cmd.Flags().BoolVar(&showActions, "actions", false,
		"print the actions taken in each episode")
	return cmd
}

func runFollower(cmd *cobra.Command, c *config.Config, episodes int,
	outDir string, showActions bool) error {
	ec := c.Environment
	env, err := pointnav.New(pointnav.Config{
		Rows:            ec.Rows,
		Cols:            ec.Cols,
		ObstacleDensity: ec.ObstacleDensity,
		MaxEpisodeSteps: ec.MaxEpisodeSteps,
		SuccessDistance: ec.SuccessDistance,
		NumEpisodes:     episodes,
		Seed:            ec.Seed,
	})
	if err != nil {
		return err
	}
	defer env.Close()

	follower := pointnav.NewShortestPathFollower(env)
	for ep := 0; ep < episodes; ep++ {
		env.Reset()
		frames := []image.Image{env.Render()}

		var actions []string
		for done := false; !done; {
			action := follower.GetNextAction()
			actions = append(actions, pointnav.ActionName(action))
			_, done = env.Step(action)
			frames = append(frames, env.Render())
		}

		name := fmt.Sprintf("follower_ep%d", env.CurrentEpisodeID())
		if err := pointnav.WriteFrames(outDir, name, frames); err != nil {
			return err
		}

		m := env.Metrics()
		fmt.Fprintf(cmd.OutOrStdout(),
			"episode %d: success %.0f spl %.2f steps %.0f\n",
			env.CurrentEpisodeID(), m[pointnav.Success], m[pointnav.SPL],
			m[pointnav.NumSteps])
		if showActions {
			fmt.Fprintf(cmd.OutOrStdout(), "  actions: %s\n",
				strings.Join(actions, " "))
		}
	}
	return nil
}
