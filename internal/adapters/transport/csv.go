package transport

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"time"

	"warden/internal/core/message"
	"warden/internal/platform/config"
	perr "warden/internal/platform/errors"
	"warden/internal/platform/logger"
	"warden/internal/platform/validate"
)

// CSVOptions configures the csv replay transport
type CSVOptions struct {
	// File is the path to replay
	File string `json:"file" validate:"required"`
	// Headers overrides the column names for files without a header row.
	// Empty means the first row is the header
	Headers []string `json:"headers"`
	// ProgressEvery logs a progress line every N rows; zero disables it
	ProgressEvery int `json:"progress_every" validate:"gte=0"`
}

// CSV replays a file once, one message per row, then stops. Each row
// becomes a flat payload keyed by column name with string values
type CSV struct {
	log  logger.Logger
	opts CSVOptions

	// open is a seam for tests
	open func(name string) (io.ReadCloser, error)
}

func init() {
	Register("csv", func(cfg config.Conf) (Transport, error) {
		opts := CSVOptions{
			File:          cfg.MayString("CSV_FILE", ""),
			Headers:       cfg.MayCSV("CSV_HEADERS", nil),
			ProgressEvery: cfg.MayInt("CSV_PROGRESS_EVERY", 0),
		}
		return NewCSV(opts)
	})
}

// NewCSV builds the csv transport
func NewCSV(opts CSVOptions) (*CSV, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, err
	}
	return &CSV{
		log:  logger.Named("transport.csv").With().Str("file", opts.File).Logger(),
		opts: opts,
		open: func(name string) (io.ReadCloser, error) { return os.Open(name) },
	}, nil
}

// Name implements Transport
func (t *CSV) Name() string { return "csv" }

// Run implements Transport. It returns nil once the file is exhausted
func (t *CSV) Run(ctx context.Context, submit SubmitFunc) error {
	f, err := t.open(t.opts.File)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "open %s", t.opts.File)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	headers := t.opts.Headers
	if len(headers) == 0 {
		headers, err = r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "read header of %s", t.opts.File)
		}
	}

	rows := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			t.log.Info().Int("rows", rows).Msg("replay complete")
			return nil
		}
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "read row of %s", t.opts.File)
		}

		payload := make(map[string]any, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				payload[h] = rec[i]
			}
		}
		msg, err := message.New(time.Now(), payload)
		if err != nil {
			return err
		}
		if err := submit(ctx, msg); err != nil {
			return err
		}

		rows++
		if t.opts.ProgressEvery > 0 && rows%t.opts.ProgressEvery == 0 {
			t.log.Info().Int("rows", rows).Msg("rows read")
		}
	}
}
