package service

import (
	"sort"
	"strconv"

	"github.com/xxxsen/formpilot/internal/model"
	"github.com/xxxsen/formpilot/internal/repo"
)

type RankWeights struct {
	ChunkMatch float64
	Timestamp  float64
}

func DefaultRankWeights() RankWeights {
	return RankWeights{ChunkMatch: 1, Timestamp: 0.5}
}

// RankHits groups hits by object id in first seen order and scores each
// group as count*ChunkMatch plus its position among groups sorted oldest
// first times Timestamp. Older groups get the lower positional score. Both
// sorts are stable, so ties keep the order of the previous step.
func RankHits(hits []repo.Hit, w RankWeights) []model.RankedCandidate {
	index := make(map[string]int)
	var groups []model.RankedCandidate
	var counts []int
	for _, hit := range hits {
		objectID, ts, ok := parseHit(hit)
		if !ok {
			continue
		}
		i, seen := index[objectID]
		if !seen {
			i = len(groups)
			index[objectID] = i
			groups = append(groups, model.RankedCandidate{ObjectID: objectID, Timestamp: ts})
			counts = append(counts, 0)
		}
		counts[i]++
	}
	for i := range groups {
		groups[i].ChunkMatchScore = float64(counts[i]) * w.ChunkMatch
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Timestamp < groups[j].Timestamp
	})
	for i := range groups {
		groups[i].TimestampScore = float64(i) * w.Timestamp
		groups[i].TotalScore = groups[i].ChunkMatchScore + groups[i].TimestampScore
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].TotalScore > groups[j].TotalScore
	})
	return groups
}

// parseHit reads [{objectId}, {timestampMs}]. A hit without an object id is
// dropped; an unreadable timestamp counts as 0.
func parseHit(hit repo.Hit) (string, int64, bool) {
	if len(hit.Content) == 0 || hit.Content[0].Text == "" {
		return "", 0, false
	}
	var ts int64
	if len(hit.Content) > 1 {
		if v, err := strconv.ParseInt(hit.Content[1].Text, 10, 64); err == nil {
			ts = v
		}
	}
	return hit.Content[0].Text, ts, true
}

func partition(ids []string, size int) [][]string {
	if size <= 0 {
		size = repo.MaxInSetSize
	}
	var batches [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}
