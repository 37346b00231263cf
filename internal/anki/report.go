package anki

import (
	"time"

	"github.com/kpauljoseph/quizankify/pkg/logger"
)

type ProcessingReport struct {
	ProcessedPages int
	TotalCards     int
	WrittenFiles   []string
	Failures       map[string]error
	StartTime      time.Time
	EndTime        time.Time
}

func NewProcessingReport() *ProcessingReport {
	return &ProcessingReport{
		Failures:  make(map[string]error),
		StartTime: time.Now(),
	}
}

func (r *ProcessingReport) RecordSuccess(output string, cards int) {
	r.ProcessedPages++
	r.TotalCards += cards
	r.WrittenFiles = append(r.WrittenFiles, output)
}

func (r *ProcessingReport) RecordFailure(source string, err error) {
	r.ProcessedPages++
	r.Failures[source] = err
}

func (r *ProcessingReport) Finish() {
	r.EndTime = time.Now()
}

func (r *ProcessingReport) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return time.Since(r.StartTime)
	}
	return r.EndTime.Sub(r.StartTime)
}

func (r *ProcessingReport) Print(log *logger.Logger) {
	log.Info("Processing complete:")
	log.Info("- Pages processed: %d", r.ProcessedPages)
	log.Info("- Cards written: %d", r.TotalCards)
	for _, f := range r.WrittenFiles {
		log.Info("- Wrote %s", f)
	}
	for source, err := range r.Failures {
		log.Error(err, "- Failed %s", source)
	}
	log.Info("- Took %s", r.Duration().Round(time.Millisecond))
}
