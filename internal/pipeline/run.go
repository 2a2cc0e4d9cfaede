/**
 * Pipeline Runner.
 *
 * Executes the training pipeline end to end in dependency order.
 * Stage-local recovery, pipeline-global reporting: a failing file never
 * aborts its stage, and the run finishes with one total/ok/fail
 * summary.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package pipeline

import (
	"context"
	"fmt"
)

// Runs every training stage in order and returns the per-stage
// reports. An error means a stage could not run at all, not that files
// inside it failed.
func (p *Pipeline) RunAll(ctx context.Context) ([]*Report, error) {
	var reports []*Report

	add := func(r *Report, err error) error {
		if r != nil {
			reports = append(reports, r)
		}
		return err
	}

	if err := add(p.SplitSessions(ctx)); err != nil {
		return reports, fmt.Errorf("split stage: %w", err)
	}
	if err := add(p.SelectBestDay()); err != nil {
		return reports, fmt.Errorf("selectday stage: %w", err)
	}
	if err := add(p.AnalyzePeriods(ctx)); err != nil {
		return reports, fmt.Errorf("period stage: %w", err)
	}
	if err := add(p.FilterSuitable()); err != nil {
		return reports, fmt.Errorf("suitable stage: %w", err)
	}
	if err := add(p.ExtractFeatures(ctx)); err != nil {
		return reports, fmt.Errorf("features stage: %w", err)
	}
	if err := add(p.FilterCSV()); err != nil {
		return reports, fmt.Errorf("csvfilter stage: %w", err)
	}
	if err := add(p.SelectSamples()); err != nil {
		return reports, fmt.Errorf("csvselect stage: %w", err)
	}
	if err := add(p.ProjectFeatures()); err != nil {
		return reports, fmt.Errorf("project stage: %w", err)
	}
	if err := add(p.MergeSessions()); err != nil {
		return reports, fmt.Errorf("merge stage: %w", err)
	}
	if err := add(p.ClusterSessions()); err != nil {
		return reports, fmt.Errorf("cluster stage: %w", err)
	}
	if err := add(p.MineKeyPackets()); err != nil {
		return reports, fmt.Errorf("mine stage: %w", err)
	}
	if err := add(p.MergeKeyPackets()); err != nil {
		return reports, fmt.Errorf("mergekp stage: %w", err)
	}
	if err := add(p.ExtractSignatures()); err != nil {
		return reports, fmt.Errorf("sign stage: %w", err)
	}
	if err := add(p.ApplyLSH()); err != nil {
		return reports, fmt.Errorf("lsh stage: %w", err)
	}
	if err := add(p.MergeSignatureBank()); err != nil {
		return reports, fmt.Errorf("mergesig stage: %w", err)
	}

	total, ok, fail := 0, 0, 0
	for _, r := range reports {
		total += r.Total
		ok += r.OK
		fail += r.Fail
	}
	p.log.Info("pipeline complete", "run", p.runID, "total", total, "ok", ok, "fail", fail)

	return reports, nil
}
