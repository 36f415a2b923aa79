package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"immigration/internal/model"
	"immigration/internal/photo"
	"immigration/internal/repo"

	"go.uber.org/zap"
)

// Overview is the combined statistics of documents and forms.
type Overview struct {
	TotalDocuments    int64              `json:"total_documents"`
	FilledDocuments   int64              `json:"filled_documents"`
	ApprovedDocuments int64              `json:"approved_documents"`
	PrintedDocuments  int64              `json:"printed_documents"`
	RecentDays        int                `json:"recent_days"`
	RecentDocuments   int64              `json:"recent_documents"`
	TotalDegmada      int64              `json:"total_degmada"`
	TotalKafiilka     int64              `json:"total_kafiilka"`
	RecentDegmada     int64              `json:"recent_degmada"`
	RecentKafiilka    int64              `json:"recent_kafiilka"`
	TopRegions        []repo.RegionCount `json:"top_regions"`
}

// Backup is the JSON dump written by ReportService.Backup.
type Backup struct {
	Timestamp       time.Time               `json:"timestamp"`
	TravelDocuments []model.TravelDocument  `json:"travel_documents"`
	DegmadaForms    []model.SponsorshipForm `json:"degmada_forms"`
	KafiilkaForms   []model.SponsorshipForm `json:"kafiilka_forms"`
}

// ReportService builds cross-entity reports and maintenance jobs.
type ReportService struct {
	docs   repo.DocumentRepository
	forms  repo.FormRepository
	photos photo.Store
	logger *zap.SugaredLogger
	opts   options
}

func NewReportService(docs repo.DocumentRepository, forms repo.FormRepository, photos photo.Store, logger *zap.SugaredLogger, opts ...Option) *ReportService {
	return &ReportService{docs: docs, forms: forms, photos: photos, logger: logger, opts: buildOptions(opts)}
}

const topRegions = 5

func (s *ReportService) Overview(ctx context.Context, days int) (*Overview, error) {
	if days <= 0 {
		days = s.opts.recent
	}
	from := since(s.opts.now(), days)

	total, err := s.docs.Count(ctx)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.docs.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.docs.CountCreatedSince(ctx, from)
	if err != nil {
		return nil, err
	}
	byKind, err := s.forms.CountByKind(ctx)
	if err != nil {
		return nil, err
	}
	recentDeg, err := s.forms.CountCreatedSince(ctx, model.FormDegmada, from)
	if err != nil {
		return nil, err
	}
	recentKaf, err := s.forms.CountCreatedSince(ctx, model.FormKafiilka, from)
	if err != nil {
		return nil, err
	}
	regions, err := s.TopRegions(ctx, topRegions)
	if err != nil {
		return nil, err
	}
	return &Overview{
		TotalDocuments:    total,
		FilledDocuments:   byStatus[model.StatusFilled],
		ApprovedDocuments: byStatus[model.StatusApproved],
		PrintedDocuments:  byStatus[model.StatusPrinted],
		RecentDays:        days,
		RecentDocuments:   recent,
		TotalDegmada:      byKind[model.FormDegmada],
		TotalKafiilka:     byKind[model.FormKafiilka],
		RecentDegmada:     recentDeg,
		RecentKafiilka:    recentKaf,
		TopRegions:        regions,
	}, nil
}

func (s *ReportService) TopRegions(ctx context.Context, n int) ([]repo.RegionCount, error) {
	return s.docs.CountByRegion(ctx, n)
}

// Backup writes every document and form, with children and members, as
// indented JSON.
func (s *ReportService) Backup(ctx context.Context, w io.Writer) (*Backup, error) {
	docs, _, err := s.docs.Search(ctx, repo.DocumentFilter{SortBy: "id"})
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	deg, _, err := s.forms.Search(ctx, repo.FormFilter{Kind: model.FormDegmada, SortBy: "id"})
	if err != nil {
		return nil, fmt.Errorf("load degmada forms: %w", err)
	}
	kaf, _, err := s.forms.Search(ctx, repo.FormFilter{Kind: model.FormKafiilka, SortBy: "id"})
	if err != nil {
		return nil, fmt.Errorf("load kafiilka forms: %w", err)
	}
	b := &Backup{
		Timestamp:       s.opts.now().UTC(),
		TravelDocuments: nonNil(docs),
		DegmadaForms:    nonNil(deg),
		KafiilkaForms:   nonNil(kaf),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return nil, fmt.Errorf("write backup: %w", err)
	}
	return b, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// OrphanPhotos lists stored photos that no record refers to.
func (s *ReportService) OrphanPhotos(ctx context.Context) ([]string, error) {
	stored, err := s.photos.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	docRefs, err := s.docs.PhotoRefs(ctx)
	if err != nil {
		return nil, err
	}
	formRefs, err := s.forms.PhotoRefs(ctx)
	if err != nil {
		return nil, err
	}
	used := make(map[string]struct{}, len(docRefs)+len(formRefs))
	for _, r := range append(docRefs, formRefs...) {
		used[r] = struct{}{}
	}
	orphans := []string{}
	for _, r := range stored {
		if _, ok := used[r]; !ok {
			orphans = append(orphans, r)
		}
	}
	sort.Strings(orphans)
	return orphans, nil
}

// RemoveOrphans deletes orphaned photos unless dryRun is set and returns
// those found. Individual delete failures are logged and skipped.
func (s *ReportService) RemoveOrphans(ctx context.Context, dryRun bool) (found []string, removed int, err error) {
	found, err = s.OrphanPhotos(ctx)
	if err != nil || dryRun {
		return found, 0, err
	}
	for _, ref := range found {
		if err := s.photos.Delete(ctx, ref); err != nil {
			s.logger.Warnw("orphan photo delete failed", "ref", ref, "error", err)
			continue
		}
		removed++
	}
	return found, removed, nil
}
