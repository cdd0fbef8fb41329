package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/MrJamesThe3rd/tally/internal/tracker"
)

// Service resolves imports against the tracker's current clients and hands accepted rows to it.
type Service struct {
	tracker *tracker.Service
	log     *slog.Logger
	opts    []Option
}

func NewService(t *tracker.Service, log *slog.Logger, opts ...Option) *Service {
	return &Service{tracker: t, log: log, opts: opts}
}

// Report is the outcome of one import.
type Report struct {
	Target     Target
	Imported   int
	SubClients int
	Rejected   []Rejection
	Warnings   []string
	Skipped    string
}

// Messages returns the lines to show the user: a success line, the skipped rows and any warnings.
func (r Report) Messages() []string {
	msgs := []string{fmt.Sprintf("Successfully imported %d %s", r.Imported, r.Target)}
	if r.Target == TargetClients {
		msgs[0] = fmt.Sprintf("Imported %d clients and %d sub-clients", r.Imported, r.SubClients)
	}

	if r.Skipped != "" {
		msgs = append(msgs, r.Skipped)
	}

	return append(msgs, r.Warnings...)
}

// Import reads r and creates the records it describes. It fails without creating anything
// when the input cannot be parsed or no row is valid; the returned report still lists rejections.
func (s *Service) Import(ctx context.Context, target Target, source Source, r io.Reader) (*Report, error) {
	table, layout, err := Read(target, source, r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", target, err)
	}

	switch target {
	case TargetWorkEntries:
		return s.importWorkEntries(ctx, table, layout)
	case TargetClients:
		return s.importClients(ctx, table, layout)
	case TargetSubClients:
		return s.importSubClients(ctx, table, layout)
	}

	return nil, fmt.Errorf("unknown import target: %s", target)
}

func (s *Service) resolver() *Resolver {
	return NewResolver(s.tracker.Clients(), s.tracker.SubClients(), s.opts...)
}

func (s *Service) importWorkEntries(ctx context.Context, t Table, layout Layout) (*Report, error) {
	res := s.resolver().WorkEntries(t, layout)
	report := newReport(TargetWorkEntries, res)

	if err := res.Err(); err != nil {
		return report, err
	}

	created, err := s.tracker.ImportWorkEntries(ctx, res.Accepted)
	if err != nil {
		return report, fmt.Errorf("saving work entries: %w", err)
	}

	report.Imported = len(created)
	s.logReport(report)

	return report, nil
}

func (s *Service) importClients(ctx context.Context, t Table, layout Layout) (*Report, error) {
	res := ExtractClients(t, layout)
	report := newReport(TargetClients, res)

	if err := res.Err(); err != nil {
		return report, err
	}

	summary, err := s.tracker.ImportClients(ctx, res.Accepted)
	if err != nil {
		return report, fmt.Errorf("saving clients: %w", err)
	}

	report.Imported = summary.Clients
	report.SubClients = summary.SubClients
	s.logReport(report)

	return report, nil
}

func (s *Service) importSubClients(ctx context.Context, t Table, layout Layout) (*Report, error) {
	res := s.resolver().SubClients(t, layout)
	report := newReport(TargetSubClients, res)

	// Every row may be a known pair; that is not a failure.
	if len(res.Accepted) == 0 && len(res.Rejected) > 0 {
		return report, res.Err()
	}

	created, err := s.tracker.ImportSubClients(ctx, res.Accepted)
	if err != nil {
		return report, fmt.Errorf("saving sub-clients: %w", err)
	}

	report.Imported = created
	s.logReport(report)

	return report, nil
}

func newReport[T any](target Target, res Result[T]) *Report {
	return &Report{
		Target:   target,
		Rejected: res.Rejected,
		Warnings: res.Warnings,
		Skipped:  res.SkippedSummary(),
	}
}

func (s *Service) logReport(r *Report) {
	s.log.Info("import finished",
		"target", string(r.Target),
		"imported", r.Imported,
		"rejected", len(r.Rejected),
		"warnings", len(r.Warnings),
	)

	for _, rej := range r.Rejected {
		s.log.Debug("row rejected", "row", rej.Row, "error", rej.Err)
	}
}
