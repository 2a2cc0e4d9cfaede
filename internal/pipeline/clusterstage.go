/**
 * Clustering Stages.
 *
 * Session merge (9_feature → 10_featureMerge), DBSCAN clustering
 * (→ 11_featureCluster), the half-the-samples cluster filter
 * (→ 12_featureClusterFilter), key-packet mining
 * (→ 13_keyPacketStatistics), and the run-wide statistics merge
 * (→ 14_keyPacketMerge).
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kleaSCM/iotscope/internal/cluster"
	"github.com/kleaSCM/iotscope/internal/features"
	"github.com/kleaSCM/iotscope/internal/models"
	"github.com/kleaSCM/iotscope/internal/signature"
)

// Merges every session's sample files into one table per session,
// named <session>___<sampleCount>.csv under the device directory.
func (p *Pipeline) MergeSessions() (*Report, error) {
	started := time.Now()
	report := NewReport("merge")

	sessionDirs, err := listDirsContaining(p.dir(DirFeature), ".csv")
	if err != nil {
		return report, err
	}

	for _, dir := range sessionDirs {
		device, err := deviceOf(p.dir(DirFeature), dir)
		if err != nil {
			report.Failed(dir, err)
			continue
		}
		names, err := dirFileNames(dir, ".csv")
		if err != nil {
			report.Failed(dir, err)
			continue
		}

		var merged []models.SignatureRow
		readErr := false
		for _, name := range names {
			rows, err := features.ReadFeatureCSV(filepath.Join(dir, name))
			if err != nil {
				report.Failed(filepath.Join(dir, name), err)
				readErr = true
				break
			}
			merged = append(merged, rows...)
		}
		if readErr {
			continue
		}

		out := filepath.Join(p.dir(DirFeatureMerge), device,
			fmt.Sprintf("%s___%d.csv", filepath.Base(dir), len(names)))
		if err := features.WriteFeatureCSV(out, merged); err != nil {
			report.Failed(out, err)
			continue
		}
		report.Ok()
	}

	return p.finishStage(report, started), nil
}

// Clusters every merged session table and writes one CSV per cluster
// (noise included), then applies the cluster-size filter: a key packet
// must appear in at least half the samples, so clusters with fewer rows
// are dropped along with the noise file.
func (p *Pipeline) ClusterSessions() (*Report, error) {
	started := time.Now()
	report := NewReport("cluster")

	mergedFiles, err := listFiles(p.dir(DirFeatureMerge), ".csv")
	if err != nil {
		return report, err
	}

	for _, path := range mergedFiles {
		device, err := deviceOf(p.dir(DirFeatureMerge), path)
		if err != nil {
			report.Failed(path, err)
			continue
		}
		sessionName := strings.TrimSuffix(filepath.Base(path), ".csv")
		_, numSamples := splitSessionSuffix(sessionName)

		rows, err := features.ReadFeatureCSV(path)
		if err != nil {
			report.Failed(path, err)
			continue
		}

		clustered := cluster.ClusterRows(rows, p.cfg.Cluster.Eps, p.cfg.Cluster.MinSamples)
		labels, groups := cluster.GroupByCluster(clustered)

		clusterDir := filepath.Join(p.dir(DirFeatureCluster), device, sessionName)
		filterDir := filepath.Join(p.dir(DirClusterFilter), device, sessionName)
		ok := true
		for _, label := range labels {
			group := groups[label]
			name := cluster.FileNameFor(label)
			if err := cluster.WriteClusterCSV(filepath.Join(clusterDir, name), group); err != nil {
				report.Failed(filepath.Join(clusterDir, name), err)
				ok = false
				break
			}
			// Survivors: non-noise clusters present in at least half the
			// session's samples.
			if label == cluster.Noise || len(group)*2 < numSamples {
				continue
			}
			if err := cluster.WriteClusterCSV(filepath.Join(filterDir, name), group); err != nil {
				report.Failed(filepath.Join(filterDir, name), err)
				ok = false
				break
			}
		}
		if ok {
			report.Ok()
		}
	}

	return p.finishStage(report, started), nil
}

// Mines every device's key-packet distributions from the surviving
// clusters and writes the per-device statistics CSVs.
func (p *Pipeline) MineKeyPackets() (*Report, error) {
	started := time.Now()
	report := NewReport("mine")

	root := p.dir(DirClusterFilter)
	devices, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return p.finishStage(report, started), nil
		}
		return report, err
	}

	for _, dev := range devices {
		if !dev.IsDir() {
			continue
		}
		sessions, err := os.ReadDir(filepath.Join(root, dev.Name()))
		if err != nil {
			report.Failed(filepath.Join(root, dev.Name()), err)
			continue
		}

		var stats []signature.SessionStats
		for _, sess := range sessions {
			if !sess.IsDir() {
				continue
			}
			sessionDir := filepath.Join(root, dev.Name(), sess.Name())
			_, numSamples := splitSessionSuffix(sess.Name())

			names, err := dirFileNames(sessionDir, ".csv")
			if err != nil {
				report.Failed(sessionDir, err)
				continue
			}
			var rows []cluster.Row
			for _, name := range names {
				r, err := cluster.ReadClusterCSV(filepath.Join(sessionDir, name))
				if err != nil {
					report.Failed(filepath.Join(sessionDir, name), err)
					continue
				}
				rows = append(rows, r...)
			}

			key, err := cluster.MineKeyPacket(rows, numSamples)
			if errors.Is(err, cluster.ErrNoKeyPacket) {
				p.log.Info("session yields no key packet", "device", dev.Name(), "session", sess.Name())
				continue
			}
			if err != nil {
				report.Failed(sessionDir, err)
				continue
			}

			stats = append(stats, signature.SessionStats{
				Session: sess.Name(),
				Distribution: models.KeyPacketSet{
					signature.DistributionKey(key.Length, key.Direction): key.Multiplicity,
				},
			})
		}

		if len(stats) == 0 {
			continue
		}
		out := filepath.Join(p.dir(DirKeyPacketStats), dev.Name()+".csv")
		if err := signature.WriteDeviceStats(out, stats); err != nil {
			report.Failed(out, err)
			continue
		}
		report.Ok()
	}

	return p.finishStage(report, started), nil
}

// Merges the per-device statistics into the run-wide CSV.
func (p *Pipeline) MergeKeyPackets() (*Report, error) {
	started := time.Now()
	report := NewReport("mergekp")

	out := filepath.Join(p.dir(DirKeyPacketMerge), p.runID+"_merged_results.csv")
	merged, err := signature.MergeStats(p.dir(DirKeyPacketStats), out)
	if err != nil {
		if os.IsNotExist(err) {
			return p.finishStage(report, started), nil
		}
		report.Failed(out, err)
		return p.finishStage(report, started), nil
	}
	p.log.Info("key-packet statistics merged", "sessions", merged, "file", out)
	report.Ok()

	return p.finishStage(report, started), nil
}
