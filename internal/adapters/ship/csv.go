package ship

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"warden/internal/platform/config"
	perr "warden/internal/platform/errors"
	"warden/internal/platform/logger"
	"warden/internal/platform/validate"
	"warden/internal/services/investigate/domain"
)

var csvHeader = []string{
	"investigation_id", "event_id", "message_id", "actor_id",
	"event_created_at", "anomaly_id", "field_id", "score",
}

// CSVOptions configures the csv shipper
type CSVOptions struct {
	// File is the destination path; records are appended across windows
	File string `json:"file" validate:"required"`
}

// CSV appends malicious records to a file, writing the header only when
// the file is empty or absent
type CSV struct {
	log  logger.Logger
	opts CSVOptions
}

func init() {
	Register("csv", func(cfg config.Conf) (domain.Shipper, error) {
		return NewCSV(CSVOptions{File: cfg.MayString("CSV_FILE", "alerts.csv")})
	})
}

// NewCSV builds the csv shipper
func NewCSV(opts CSVOptions) (*CSV, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, err
	}
	return &CSV{
		log:  logger.Named("ship.csv").With().Str("file", opts.File).Logger(),
		opts: opts,
	}, nil
}

// Name implements domain.Shipper
func (s *CSV) Name() string { return "csv" }

// Ship implements domain.Shipper
func (s *CSV) Ship(_ context.Context, inv domain.Investigation, records []domain.Record) error {
	f, err := os.OpenFile(s.opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "open %s", s.opts.File)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "stat %s", s.opts.File)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnavailable, "write header to %s", s.opts.File)
		}
	}
	for _, rec := range records {
		row := []string{
			strconv.FormatInt(inv.ID, 10),
			strconv.FormatInt(rec.EventID, 10),
			rec.MessageID.String(),
			strconv.FormatInt(rec.ActorID, 10),
			rec.EventCreatedAt.UTC().Format(time.RFC3339Nano),
			strconv.FormatInt(rec.AnomalyID, 10),
			strconv.FormatInt(rec.FieldID, 10),
			strconv.FormatFloat(rec.Score, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnavailable, "write record to %s", s.opts.File)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "flush %s", s.opts.File)
	}

	s.log.Info().Int("records", len(records)).Int64("investigation_id", inv.ID).Msg("records written")
	return nil
}
