package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	configPath string
	dataDir    string
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	var flags globalFlags
	rootCmd := &cobra.Command{
		Use:   "tourctl",
		Short: "Plan property viewing tours over a risk-aware street network",
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (default ~/.property-tour-router/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&flags.dataDir, "data", "d", "", "data directory override")

	rootCmd.AddCommand(routeCmd(&flags))
	rootCmd.AddCommand(optimizeCmd(&flags))
	rootCmd.AddCommand(simulateCmd(&flags))
	rootCmd.AddCommand(propagateCmd(&flags))
	rootCmd.AddCommand(serveCmd(&flags))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type tourFlags struct {
	start    string
	stops    []string
	strategy string
}

func (t *tourFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&t.start, "start", "s", "", "start point as lat,lng")
	cmd.Flags().StringSliceVar(&t.stops, "stop", nil, "property id to visit (repeatable)")
	cmd.Flags().StringVar(&t.strategy, "strategy", "", "ordering strategy: two-opt, aco or insertion")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("stop")
}

func routeCmd(flags *globalFlags) *cobra.Command {
	var tf tourFlags
	var keepOrder bool

	cmd := &cobra.Command{
		Use:   "route",
		Short: "Optimize the visiting order and print the full itinerary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRoute(cmd.Context(), cmd.OutOrStdout(), flags, tf, !keepOrder)
		},
	}
	tf.register(cmd)
	cmd.Flags().BoolVar(&keepOrder, "keep-order", false, "plan legs in the given order without optimizing")
	return cmd
}

func optimizeCmd(flags *globalFlags) *cobra.Command {
	var tf tourFlags

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Print the optimized visiting order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOptimize(cmd.Context(), cmd.OutOrStdout(), flags, tf)
		},
	}
	tf.register(cmd)
	return cmd
}

func simulateCmd(flags *globalFlags) *cobra.Command {
	var seed int64
	var save bool
	var output string

	cmd := &cobra.Command{
		Use:   "simulate-threats",
		Short: "Run one seeded Monte Carlo threat draw",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulate(cmd.Context(), cmd.OutOrStdout(), flags, seed, save, output)
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 picks one)")
	cmd.Flags().BoolVar(&save, "save", false, "store the run in the history database")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result to a file instead of stdout")
	return cmd
}

func propagateCmd(flags *globalFlags) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "propagate-risk",
		Short: "Spread incident probabilities onto edges and nodes and write the risk files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPropagate(cmd.OutOrStdout(), flags, outDir)
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default the data directory)")
	return cmd
}

func serveCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the tour planning HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(flags, addr)
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default from config)")
	return cmd
}
