package report

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hazyhaar/sonodraft/internal/bounded"
	"github.com/hazyhaar/sonodraft/study"
)

// Artifact is the audit record of one completed longitudinal run.
type Artifact struct {
	PatientName     string
	StudyType       study.AnalysisType
	AnalyzedAt      time.Time
	StudiesAnalyzed int
	DateRange       study.DateRange
	Report          string
}

// ArtifactName returns report_<patient>_<type>_<unix millis>.txt.
func ArtifactName(a Artifact) string {
	return fmt.Sprintf("report_%s_%s_%d.txt",
		bounded.FileComponent(a.PatientName), bounded.FileComponent(string(a.StudyType)), a.AnalyzedAt.UnixMilli())
}

// WriteArtifact writes a plain-text audit file into dir and returns its path.
func WriteArtifact(dir string, a Artifact) (string, error) {
	if a.AnalyzedAt.IsZero() {
		a.AnalyzedAt = time.Now()
	}
	path, err := bounded.SafePath(dir, ArtifactName(a))
	if err != nil {
		return "", fmt.Errorf("report: artifact path: %w", err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("report: artifact dir: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("ULTRALINQ LONGITUDINAL ANALYSIS REPORT\n")
	fmt.Fprintf(&sb, "Patient: %s\n", a.PatientName)
	fmt.Fprintf(&sb, "Study Type: %s\n", a.StudyType)
	fmt.Fprintf(&sb, "Analysis Date: %s\n", a.AnalyzedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "Studies Analyzed: %d\n", a.StudiesAnalyzed)
	fmt.Fprintf(&sb, "Date Range: %s to %s\n", a.DateRange.Earliest, a.DateRange.Latest)
	sb.WriteString("\n")
	sb.WriteString(a.Report)
	sb.WriteString("\n")

	if err := os.WriteFile(path, []byte(sb.String()), 0o640); err != nil {
		return "", fmt.Errorf("report: write artifact: %w", err)
	}
	return path, nil
}
