/**
 * Session Clustering.
 *
 * Clusters the merged feature rows of one session on (length,
 * direction, protocol) to find the packets that recur across samples.
 * The protocol column is categorically coded (stable within one run),
 * all three columns are z-scored, and DBSCAN assigns cluster ids.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package cluster

import (
	"sort"

	"github.com/kleaSCM/iotscope/internal/models"
)

// A feature row extended with its position in the merged table and its
// assigned cluster.
type Row struct {
	OriginalIndex int
	models.SignatureRow
	Cluster int
}

// Clusters the merged rows of one session. The returned rows carry the
// merged-table index and the DBSCAN label; input order is preserved.
func ClusterRows(rows []models.SignatureRow, eps float64, minSamples int) []Row {
	if len(rows) == 0 {
		return nil
	}

	codes := protocolCodes(rows)
	points := make([][]float64, len(rows))
	for i := range rows {
		points[i] = []float64{
			float64(rows[i].Length),
			float64(rows[i].Direction),
			float64(codes[rows[i].ProtocolType]),
		}
	}
	Standardize(points)
	labels := DBSCAN(points, eps, minSamples)

	out := make([]Row, len(rows))
	for i := range rows {
		out[i] = Row{OriginalIndex: i, SignatureRow: rows[i], Cluster: labels[i]}
	}
	return out
}

// Categorical codes for the protocol column: distinct values sorted,
// coded by rank. Order-irrelevant downstream but stable within a run.
func protocolCodes(rows []models.SignatureRow) map[string]int {
	seen := make(map[string]struct{})
	for i := range rows {
		seen[rows[i].ProtocolType] = struct{}{}
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)

	codes := make(map[string]int, len(values))
	for i, v := range values {
		codes[v] = i
	}
	return codes
}

// Groups clustered rows by label, labels ascending with Noise last.
func GroupByCluster(rows []Row) ([]int, map[int][]Row) {
	groups := make(map[int][]Row)
	for _, r := range rows {
		groups[r.Cluster] = append(groups[r.Cluster], r)
	}

	labels := make([]int, 0, len(groups))
	for l := range groups {
		if l != Noise {
			labels = append(labels, l)
		}
	}
	sort.Ints(labels)
	if _, ok := groups[Noise]; ok {
		labels = append(labels, Noise)
	}
	return labels, groups
}
