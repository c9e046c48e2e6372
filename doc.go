// Package ssfcm implements semi-supervised multi-field fuzzy c-means
// clustering.
//
// Every point is a numeric vector split into contiguous fields (one per
// upstream input column). Field distances are normalized (min-max or L2) and
// weighted before being fused into one point-to-centroid distance. The number
// of clusters is the number of supervised groups: a non-empty group anchors
// its cluster with points whose cluster is known, an empty group leaves the
// cluster to be found by the farthest-point heuristic. On the second
// iteration, supervised points whose closed-form membership in their own
// cluster is below Alpha get a larger, per-point fuzzifier.
//
// Basic usage:
//
//	cfg := ssfcm.DefaultConfig()
//	cfg.FieldsLen = []int{2}
//	cfg.SupervisedSet = [][]string{{"0", "1", "2"}, {}}
//	result, err := ssfcm.Cluster(data, cfg)
//	// result.PredLabels[len(result.PredLabels)-1] is the final partition
//	// result.Membership[i][k] is how strongly point i belongs to cluster k
//	// result.Metrics holds loss, Davies–Bouldin and ASWC per iteration
//
// For step-by-step control, progress reporting or cancellation:
//
//	e, err := ssfcm.New(data, cfg)
//	err = e.Run(ctx)
//	membership := e.Membership()
//
// # Metrics
//
// Loss is the fuzzy objective Σ u^F·D. Davies–Bouldin uses the fused
// distance for both scatter and centroid separation; lower is better. ASWC
// scores each point by b / (a + 1e-6), where a is its mean raw distance to
// its own cluster and b the largest mean raw distance to another cluster;
// higher is better. ASWC is a ratio, not the textbook (b-a)/max(a,b)
// silhouette.
package ssfcm
