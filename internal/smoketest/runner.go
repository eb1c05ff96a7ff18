package smoketest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/rollcall/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// ErrUnhealthy is returned when the server does not answer /healthz.
var ErrUnhealthy = errors.New("service unhealthy")

// Run marks every section on cfg.Date, alternating present and absent,
// then reads each section back and checks the listing and statistics.
func Run(ctx context.Context, cfg *Config) (*Report, error) {
	log := logger.Get().Named("smoke")
	start := time.Now()
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting attendance smoke run",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("date", cfg.Date),
		logger.Int("workers", cfg.Workers))

	if err := checkHealth(ctx, client); err != nil {
		return nil, err
	}

	var sections list[Section]
	if err := client.Get(ctx, "/sections", nil, &sections); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}

	outcomes := make([]SectionOutcome, len(sections.Results))
	g, gctx := errgroup.WithContext(ctx)
	if cfg.Workers > 0 {
		g.SetLimit(cfg.Workers)
	}
	for i, sec := range sections.Results {
		g.Go(func() error {
			o, err := runSection(gctx, client, cfg.Date, sec, statusFor(i))
			if err != nil {
				return err
			}
			outcomes[i] = o
			if cfg.Verbose {
				log.Info(gctx, "section checked",
					logger.String("section", sec.ID),
					logger.String("status", o.Status),
					logger.Int("written", o.Written),
					logger.Int("failed", o.Failed))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Date: cfg.Date, Sections: outcomes, Duration: time.Since(start)}
	log.Info(ctx, "smoke run passed",
		logger.Int("sections", len(outcomes)),
		logger.Int("written", report.Written()),
		logger.Duration("duration", report.Duration))
	return report, nil
}

func checkHealth(ctx context.Context, client *Client) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, client.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return err
	}
	status, err := client.do(req, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, status)
	}
	return nil
}

func runSection(ctx context.Context, client *Client, date string, sec Section, status string) (SectionOutcome, error) {
	o := SectionOutcome{Section: sec, Status: status}

	var students list[Student]
	if err := client.Get(ctx, "/students", url.Values{"section": {sec.ID}}, &students); err != nil {
		return o, fmt.Errorf("list students of %s: %w", sec.ID, err)
	}
	o.Students = students.Count
	if o.Students == 0 {
		return o, nil
	}

	var res BulkResult
	code, err := client.Post(ctx, "/attendance/bulk", map[string]string{
		"date":    date,
		"status":  status,
		"section": sec.ID,
	}, &res)
	if err != nil {
		return o, fmt.Errorf("bulk mark %s: %w", sec.ID, err)
	}
	if code != http.StatusOK && code != http.StatusMultiStatus {
		return o, fmt.Errorf("bulk mark %s: unexpected status %d", sec.ID, code)
	}
	o.Written = len(res.Succeeded)
	o.Failed = len(res.Failed)

	q := url.Values{"start_date": {date}, "end_date": {date}, "section": {sec.ID}}
	var records list[Record]
	if err := client.Get(ctx, "/attendance", q, &records); err != nil {
		return o, fmt.Errorf("list attendance of %s: %w", sec.ID, err)
	}
	o.Listed = records.Count

	if err := client.Get(ctx, "/attendance/statistics", q, &o.Summary); err != nil {
		return o, fmt.Errorf("statistics of %s: %w", sec.ID, err)
	}
	return o, verifySection(o)
}
