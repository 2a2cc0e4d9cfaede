/**
 * Stage Commands.
 *
 * One subcommand per pipeline stage plus the end-to-end runner, so a
 * run can be resumed or repeated from any point; every stage is
 * idempotent given the same inputs.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package commands

import (
	"context"

	"github.com/kleaSCM/iotscope/internal/pipeline"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(
		stageCommand("split", "Split input captures into duration-filtered sessions",
			func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Report, error) {
				return p.SplitSessions(ctx)
			}),
		stageCommand("selectday", "Pick each device's capture day with the most sessions",
			func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Report, error) {
				return p.SelectBestDay()
			}),
		stageCommand("period", "Analyse session periodicity and slice into samples",
			func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Report, error) {
				return p.AnalyzePeriods(ctx)
			}),
		stageCommand("suitable", "Drop sessions with too few samples",
			func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Report, error) {
				return p.FilterSuitable()
			}),
		stageCommand("features", "Extract per-sample feature CSVs",
			func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Report, error) {
				return p.ExtractFeatures(ctx)
			}),
		stageCommand("csvfilter", "Filter samples down to content-bearing packets",
			func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Report, error) {
				return p.FilterCSV()
			}),
		stageCommand("csvselect", "Cap each session's sample count",
			func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Report, error) {
				return p.SelectSamples()
			}),
		stageCommand("project", "Project records onto feature vectors",
			func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Report, error) {
				return p.ProjectFeatures()
			}),
		stageCommand("merge", "Merge each session's samples into one table",
			func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Report, error) {
				return p.MergeSessions()
			}),
		stageCommand("cluster", "Cluster merged sessions and filter clusters",
			func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Report, error) {
				return p.ClusterSessions()
			}),
		stageCommand("mine", "Mine key-packet distributions per device",
			func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Report, error) {
				return p.MineKeyPackets()
			}),
		stageCommand("mergekp", "Merge key-packet statistics across devices",
			func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Report, error) {
				return p.MergeKeyPackets()
			}),
		stageCommand("sign", "Extract ordered signatures from canonical samples",
			func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Report, error) {
				return p.ExtractSignatures()
			}),
		stageCommand("lsh", "Replace signature payloads with Nilsimsa hashes",
			func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Report, error) {
				return p.ApplyLSH()
			}),
		stageCommand("mergesig", "Merge signatures into the matcher bank",
			func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Report, error) {
				return p.MergeSignatureBank()
			}),
		pipelineCommand(),
	)
}

// Builds a cobra command running one stage.
func stageCommand(name, short string,
	run func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Report, error)) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			_, err = run(cmd.Context(), rt.pipeline)
			return err
		},
	}
}

// The end-to-end training run.
func pipelineCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pipeline",
		Short: "Run every training stage in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			_, err = rt.pipeline.RunAll(cmd.Context())
			return err
		},
	}
}
