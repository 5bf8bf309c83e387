package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/wonny/xray/internal/contracts"
	"github.com/wonny/xray/pkg/logger"
)

// ReportWriter persists the run outputs under
// <dataDir>/reports/<runID>/: exposure CSV, holdings breakdown CSV,
// health JSON and errors JSON. The error file carries identifiers and
// messages only, never portfolio values, so it is safe to share in a
// bug report.
type ReportWriter struct {
	baseDir string
	logger  *logger.Logger
}

func NewReportWriter(dataDir string, log *logger.Logger) *ReportWriter {
	return &ReportWriter{baseDir: filepath.Join(dataDir, "reports"), logger: log}
}

// Dir returns the output directory for a run
func (w *ReportWriter) Dir(runID string) string {
	return filepath.Join(w.baseDir, runID)
}

// WriteAll writes every report file. Individual file failures are
// collected so one unwritable file does not suppress the others.
func (w *ReportWriter) WriteAll(result *contracts.PipelineResult) []contracts.PipelineError {
	dir := w.Dir(result.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return []contracts.PipelineError{contracts.NewPipelineError(
			contracts.PhaseReport, contracts.ErrFileNotFound, "",
			fmt.Sprintf("create report dir: %v", err), "check data directory permissions")}
	}

	var errs []contracts.PipelineError
	report := func(name string, err error) {
		if err != nil {
			errs = append(errs, contracts.NewPipelineError(
				contracts.PhaseReport, contracts.ErrUnknown, name, err.Error(), ""))
		}
	}

	report("exposures.csv", w.writeExposures(filepath.Join(dir, "exposures.csv"), result.Exposures))
	report("breakdown.csv", w.writeBreakdown(filepath.Join(dir, "breakdown.csv"), result.Breakdown))
	report("health.json", w.writeJSON(filepath.Join(dir, "health.json"), result.Health))
	report("errors.json", w.writeJSON(filepath.Join(dir, "errors.json"), errorsPayload(result)))

	w.logger.WithFields(map[string]interface{}{
		"run_id": result.RunID,
		"dir":    dir,
		"files":  4 - len(errs),
	}).Info("Reports written")
	return errs
}

func (w *ReportWriter) writeExposures(path string, records []contracts.ExposureRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{
		"canonical_id", "name", "sector", "geography",
		"total_exposure", "portfolio_percent", "confidence", "source", "source_count",
	}); err != nil {
		return err
	}
	for _, r := range records {
		err := cw.Write([]string{
			r.CanonicalID, r.Name, r.Sector, r.Geography,
			formatFloat(r.TotalExposure), formatFloat(r.PortfolioPercent),
			formatFloat(r.Confidence), string(r.Source), strconv.Itoa(r.SourceCount),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (w *ReportWriter) writeBreakdown(path string, rows []contracts.BreakdownRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{
		"parent_id", "parent_name", "child_id", "child_name", "ticker",
		"weight_percent", "value", "sector", "geography",
		"resolution_status", "resolution_source", "resolution_confidence",
	}); err != nil {
		return err
	}
	for _, r := range rows {
		err := cw.Write([]string{
			r.ParentID, r.ParentName, r.ChildID, r.ChildName, r.Ticker,
			formatFloat(r.Weight), formatFloat(r.Value), r.Sector, r.Geography,
			string(r.Status), string(r.Source), formatFloat(r.Confidence),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (w *ReportWriter) writeJSON(path string, payload interface{}) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// errorsPayload is the shareable error-report shape
func errorsPayload(result *contracts.PipelineResult) map[string]interface{} {
	errs := result.Errors
	if errs == nil {
		errs = []contracts.PipelineError{}
	}
	return map[string]interface{}{
		"run_id":      result.RunID,
		"started_at":  result.StartedAt,
		"finished_at": result.FinishedAt,
		"success":     result.Success,
		"errors":      errs,
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
