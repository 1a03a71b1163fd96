package query

import (
	"sort"
	"time"

	"github.com/nkurra/CaseAPI/internal/domain/queryModel"
)

/*
Fusion scores each document per signal as 1 + the min-max normalized score
within that signal's result set, then sums the signals. A document present in
both signals always lands in [2, 4] and a single-signal document in [1, 2],
so dual-signal evidence outranks single-signal evidence no matter the raw
scores.
*/

func Fuse(keyword []queryModel.KeywordHit, vector []queryModel.VectorHit, createdAt map[string]time.Time) []queryModel.RankedDocument {
	kwScores := map[string]float64{}
	for _, hit := range keyword {
		if s, ok := kwScores[hit.DocumentId]; !ok || hit.Score > s {
			kwScores[hit.DocumentId] = hit.Score
		}
	}

	//per document the best chunk score represents the vector signal
	vecScores := map[string]float64{}
	for _, hit := range vector {
		if s, ok := vecScores[hit.DocumentId]; !ok || hit.Score > s {
			vecScores[hit.DocumentId] = hit.Score
		}
	}

	kwNorm := minMaxNormalize(kwScores)
	vecNorm := minMaxNormalize(vecScores)

	seen := map[string]bool{}
	var ranked []queryModel.RankedDocument
	add := func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true

		doc := queryModel.RankedDocument{DocumentId: id}
		_, inKw := kwScores[id]
		_, inVec := vecScores[id]
		if inKw {
			doc.KeywordScore = kwScores[id]
			doc.FusedScore += 1 + kwNorm[id]
		}
		if inVec {
			doc.VectorScore = vecScores[id]
			doc.FusedScore += 1 + vecNorm[id]
		}
		doc.InBoth = inKw && inVec
		if createdAt != nil {
			doc.CreatedAt = createdAt[id]
		}
		ranked = append(ranked, doc)
	}
	for _, hit := range keyword {
		add(hit.DocumentId)
	}
	for _, hit := range vector {
		add(hit.DocumentId)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.FusedScore != b.FusedScore {
			return a.FusedScore > b.FusedScore
		}
		if ba, bb := a.BestSignal(), b.BestSignal(); ba != bb {
			return ba > bb
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.DocumentId < b.DocumentId
	})
	return ranked
}

// minMaxNormalize maps scores into [0, 1] within the set. A single-element
// or constant set normalizes to 0 so the presence bonus carries the ranking.
func minMaxNormalize(scores map[string]float64) map[string]float64 {
	if len(scores) == 0 {
		return nil
	}

	first := true
	var min, max float64
	for _, s := range scores {
		if first {
			min, max = s, s
			first = false
			continue
		}
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}

	out := make(map[string]float64, len(scores))
	if max == min {
		for id := range scores {
			out[id] = 0
		}
		return out
	}
	for id, s := range scores {
		out[id] = (s - min) / (max - min)
	}
	return out
}
