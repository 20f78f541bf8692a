package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/selekta/portal-backend/internal/model"
)

// exportHeader is the fixed CSV column set, in order.
var exportHeader = []string{"Kode", "Nama", "Status", "Skor", "Mulai", "Selesai", "Durasi"}

// ExportService renders session results as CSV for download. The writer
// handles quoting, so names containing commas, quotes, or newlines stay
// one field.
type ExportService struct {
	sessions RankedSessionStore
	log      zerolog.Logger
}

// NewExportService creates a new ExportService.
func NewExportService(sessions RankedSessionStore, log zerolog.Logger) *ExportService {
	return &ExportService{
		sessions: sessions,
		log:      log.With().Str("component", "export_service").Logger(),
	}
}

// WriteCSV streams all sessions as CSV to w. Fields missing on unfinished
// sessions are rendered as "-".
func (s *ExportService) WriteCSV(ctx context.Context, w io.Writer) error {
	sessions, err := s.sessions.ListRanked(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, sess := range sessions {
		if err := cw.Write(exportRow(sess)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Filename returns a timestamped download name.
func (s *ExportService) Filename(now time.Time) string {
	return fmt.Sprintf("hasil-tes-%s.csv", now.Format("2006-01-02"))
}

func exportRow(sess model.TestSession) []string {
	return []string{
		sess.InvitationCode,
		sess.ParticipantName,
		string(sess.Status),
		intOrDash(sess.Score),
		sess.StartTime.Format(time.RFC3339),
		timeOrDash(sess.EndTime),
		intOrDash(sess.DurationSeconds),
	}
}

func intOrDash(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func timeOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}
