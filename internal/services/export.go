package services

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/resume-screening/internal/models"
)

var csvHeader = []string{
	"candidateId",
	"candidateName",
	"candidateEmail",
	"fileName",
	"matchPercentage",
	"status",
	"skillsMatched",
	"skillsMissing",
	"strengths",
	"improvementAreas",
	"recommendations",
}

// WriteCSV writes a header row and one row per result. Every field is quoted
// and list fields are joined with ';'.
func WriteCSV(w io.Writer, results []models.ScreeningResult) error {
	bw := bufio.NewWriter(w)

	writeCSVRow(bw, csvHeader)
	for _, r := range results {
		writeCSVRow(bw, []string{
			r.CandidateID.String(),
			r.CandidateName,
			r.CandidateEmail,
			r.FileName,
			strconv.Itoa(r.MatchPercentage),
			string(r.Status),
			strings.Join(r.SkillsMatched, ";"),
			strings.Join(r.SkillsMissing, ";"),
			strings.Join(r.Strengths, ";"),
			strings.Join(r.ImprovementAreas, ";"),
			strings.Join(r.Recommendations, ";"),
		})
	}

	return bw.Flush()
}

func writeCSVRow(w *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(f, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}

func BuildJSONExport(jobID uuid.UUID, results []models.ScreeningResult, now time.Time) *models.ExportDocument {
	if results == nil {
		results = []models.ScreeningResult{}
	}
	return &models.ExportDocument{
		ExportedAt:     now.UTC(),
		ScreeningJobID: jobID,
		Total:          len(results),
		Results:        results,
	}
}
