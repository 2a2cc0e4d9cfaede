/**
 * Match and Test-Prep Commands.
 *
 * `match` streams test captures against a merged signature bank and
 * writes per-device verdicts; `testsplit` demultiplexes a mixed capture
 * into per-device captures by MAC.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package commands

import (
	"path/filepath"

	"github.com/kleaSCM/iotscope/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	flagBank    string
	flagResults string
)

func init() {
	matchCmd := &cobra.Command{
		Use:   "match <test-capture-dir>",
		Short: "Match test captures against the signature bank",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			bank := flagBank
			if bank == "" {
				bank, err = rt.pipeline.LatestSignaturePath()
				if err != nil {
					return err
				}
			}

			out := flagResults
			if out == "" {
				out = filepath.Join(rt.cfg.RunRoot, pipeline.MatchResultsFileName)
			}

			_, err = rt.pipeline.Match(cmd.Context(), bank, args[0], out)
			return err
		},
	}
	matchCmd.Flags().StringVar(&flagBank, "bank", "", "merged signature CSV (default: newest under 17_signatureMerge)")
	matchCmd.Flags().StringVar(&flagResults, "out", "", "verdict CSV path (default: <run-root>/matching_results.csv)")

	testsplitCmd := &cobra.Command{
		Use:   "testsplit <capture> <out-dir>",
		Short: "Split a mixed capture into per-device captures by MAC",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			_, err = rt.pipeline.SplitTestCapture(args[0], args[1])
			return err
		},
	}

	rootCmd.AddCommand(matchCmd, testsplitCmd)
}
