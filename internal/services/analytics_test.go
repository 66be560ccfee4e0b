package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestComputeMetrics_Buckets(t *testing.T) {
	jobID := uuid.New()
	m := ComputeMetrics(jobID, []int{90, 80, 79, 50, 49, 0}, DefaultThresholds)

	assert.Equal(t, jobID, m.ScreeningJobID)
	assert.Equal(t, 6, m.TotalScreened)
	assert.Equal(t, 2, m.StrongMatches)
	assert.Equal(t, 2, m.ModerateMatches)
	assert.Equal(t, 2, m.WeakMatches)
	assert.Equal(t, m.TotalScreened, m.StrongMatches+m.ModerateMatches+m.WeakMatches)
	assert.Equal(t, 58.0, m.AverageMatch)
	assert.Equal(t, 33.33, m.StrongPercentage)
	assert.Equal(t, 33.33, m.ModeratePercentage)
	assert.Equal(t, 33.33, m.WeakPercentage)
}

func TestComputeMetrics_EmptyIsZero(t *testing.T) {
	m := ComputeMetrics(uuid.New(), nil, DefaultThresholds)

	assert.Zero(t, m.TotalScreened)
	assert.Zero(t, m.AverageMatch)
	assert.Zero(t, m.StrongPercentage)
	assert.Zero(t, m.ModeratePercentage)
	assert.Zero(t, m.WeakPercentage)
}

func TestComputeMetrics_CustomThresholds(t *testing.T) {
	m := ComputeMetrics(uuid.New(), []int{85, 70, 65}, Thresholds{Strong: 90, Moderate: 70})

	assert.Equal(t, 0, m.StrongMatches)
	assert.Equal(t, 2, m.ModerateMatches)
	assert.Equal(t, 1, m.WeakMatches)
	assert.Equal(t, 73.33, m.AverageMatch)
}
