package services

import (
	"math"

	"github.com/google/uuid"

	"alfredoptarigan/resume-screening/internal/models"
)

// Thresholds are the lower bounds of the strong and moderate match buckets.
type Thresholds struct {
	Strong   int
	Moderate int
}

var DefaultThresholds = Thresholds{Strong: 80, Moderate: 50}

func (t Thresholds) Bucket(pct int) string {
	switch {
	case pct >= t.Strong:
		return "strong"
	case pct >= t.Moderate:
		return "moderate"
	default:
		return "weak"
	}
}

// ComputeMetrics buckets match percentages. An empty job yields all zeros.
func ComputeMetrics(jobID uuid.UUID, scores []int, t Thresholds) *models.ScreeningMetrics {
	m := &models.ScreeningMetrics{ScreeningJobID: jobID, TotalScreened: len(scores)}
	if len(scores) == 0 {
		return m
	}

	sum := 0
	for _, s := range scores {
		sum += s
		switch t.Bucket(s) {
		case "strong":
			m.StrongMatches++
		case "moderate":
			m.ModerateMatches++
		default:
			m.WeakMatches++
		}
	}

	total := float64(m.TotalScreened)
	m.AverageMatch = round2(float64(sum) / total)
	m.StrongPercentage = round2(float64(m.StrongMatches) / total * 100)
	m.ModeratePercentage = round2(float64(m.ModerateMatches) / total * 100)
	m.WeakPercentage = round2(float64(m.WeakMatches) / total * 100)
	return m
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
