package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"immigration/internal/apperr"
	"immigration/internal/metrics"
	"immigration/internal/model"
	"immigration/internal/notify"
	"immigration/internal/photo"
	"immigration/internal/repo"
	"immigration/internal/validate"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// BulkOperation is one of the actions accepted by DocumentService.Bulk.
type BulkOperation string

const (
	BulkApprove BulkOperation = "approve"
	BulkPrint   BulkOperation = "print"
	BulkDelete  BulkOperation = "delete"
)

func (op BulkOperation) Valid() bool {
	return op == BulkApprove || op == BulkPrint || op == BulkDelete
}

// BulkResult is the outcome for one id of a bulk request.
type BulkResult struct {
	DocumentID uint   `json:"document_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// DocumentStats summarises the travel document table.
type DocumentStats struct {
	Total      int64                  `json:"total"`
	ByStatus   map[model.Status]int64 `json:"by_status"`
	RecentDays int                    `json:"recent_days"`
	Recent     int64                  `json:"recent"`
	Recent7    int64                  `json:"recent_7_days"`
}

// auditFields are the json fields compared when an update is audited.
var auditFields = []string{
	"region_office", "date", "full_name", "mother_name", "birth_date", "birth_place",
	"identification_number", "region", "district", "workplace", "sponsor_name",
	"citizen_card", "phone_number", "nationality", "job_type", "license_number",
	"contact_number", "filled_date", "has_notayo", "has_sponsor_id", "has_damaged_id",
	"has_company_license", "has_other_documents", "immigration_officer_notes",
	"card_number", "officer_signature", "children",
}

// DocumentService инкапсулирует бизнес-логику работы с TravelDocument.
type DocumentService struct {
	docs     repo.DocumentRepository
	events   repo.EventRepository
	photos   photo.Store
	notifier notify.Sink
	metrics  *metrics.Metrics
	logger   *zap.SugaredLogger
	v        *validator.Validate
	opts     options
}

func NewDocumentService(
	docs repo.DocumentRepository,
	events repo.EventRepository,
	photos photo.Store,
	notifier notify.Sink,
	m *metrics.Metrics,
	logger *zap.SugaredLogger,
	opts ...Option,
) *DocumentService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	o := buildOptions(opts)
	return &DocumentService{
		docs:     docs,
		events:   events,
		photos:   photos,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		v:        validate.NewAt(o.now),
		opts:     o,
	}
}

// Create validates and stores a new document. The number is generated when
// empty and the only accepted initial status is filled.
func (s *DocumentService) Create(ctx context.Context, doc *model.TravelDocument, actor Actor) (*model.TravelDocument, error) {
	now := s.opts.now()
	if doc.Status == "" {
		doc.Status = model.StatusFilled
	}
	if doc.Status != model.StatusFilled {
		return nil, apperr.NewValidation("status", doc.Status, "new documents must start in filled status")
	}
	if err := validateDocument(s.v, doc, now); err != nil {
		return nil, err
	}
	normalizeDocument(doc)

	doc.ID = 0
	doc.PhotoRef = ""
	doc.CreatedByID = actor.UserID
	for i := range doc.Children {
		doc.Children[i].ID = 0
		doc.Children[i].PhotoRef = ""
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	s.audit(ctx, doc, model.ActionCreate, actor, nil)
	s.publish(ctx, doc, "", model.StatusFilled, actor, now)
	s.metrics.IncDocumentCreated()
	s.logger.Infow("document created", "document_id", doc.ID, "document_number", doc.DocumentNumber, "user", actor.Name())
	return doc, nil
}

func (s *DocumentService) Get(ctx context.Context, id uint) (*model.TravelDocument, error) {
	return s.docs.GetByID(ctx, id)
}

// Update replaces the editable fields of a filled document. Children are
// replaced only when replaceChildren is set.
func (s *DocumentService) Update(ctx context.Context, id uint, in *model.TravelDocument, replaceChildren bool, actor Actor) (*model.TravelDocument, error) {
	now := s.opts.now()
	cur, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.Status != model.StatusFilled {
		return nil, apperr.NewValidation("status", cur.Status, "only documents in filled status can be edited")
	}
	if in.DocumentNumber != "" && in.DocumentNumber != cur.DocumentNumber {
		return nil, apperr.NewValidation("document_number", in.DocumentNumber, "document number cannot be changed")
	}
	if in.Status != "" && in.Status != cur.Status {
		return nil, apperr.NewValidation("status", in.Status, "use approve or print to change status")
	}

	before := *cur
	next := *cur
	copyEditable(&next, in)
	if replaceChildren {
		next.Children = in.Children
	} else {
		next.Children = nil
	}
	if err := validateDocument(s.v, &next, now); err != nil {
		return nil, err
	}
	normalizeDocument(&next)
	next.UpdatedAt = now

	removed, err := s.docs.Update(ctx, &next, replaceChildren)
	if err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	removePhotos(ctx, s.photos, removed, s.metrics, s.logger)

	out, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !replaceChildren {
		before.Children = out.Children
	}
	s.audit(ctx, out, model.ActionUpdate, actor, diffFields(&before, out, auditFields))
	return out, nil
}

func copyEditable(dst, src *model.TravelDocument) {
	dst.RegionOffice = src.RegionOffice
	dst.Date = src.Date
	dst.FullName = src.FullName
	dst.MotherName = src.MotherName
	dst.BirthDate = src.BirthDate
	dst.BirthPlace = src.BirthPlace
	dst.IdentificationNumber = src.IdentificationNumber
	dst.Region = src.Region
	dst.District = src.District
	dst.Workplace = src.Workplace
	dst.SponsorName = src.SponsorName
	dst.CitizenCard = src.CitizenCard
	dst.PhoneNumber = src.PhoneNumber
	dst.Nationality = src.Nationality
	dst.JobType = src.JobType
	dst.LicenseNumber = src.LicenseNumber
	dst.ContactNumber = src.ContactNumber
	dst.FilledDate = src.FilledDate
	dst.HasNotayo = src.HasNotayo
	dst.HasSponsorID = src.HasSponsorID
	dst.HasDamagedID = src.HasDamagedID
	dst.HasCompanyLicense = src.HasCompanyLicense
	dst.HasOtherDocuments = src.HasOtherDocuments
	dst.OfficerNotes = src.OfficerNotes
	dst.CardNumber = src.CardNumber
	dst.OfficerSignature = src.OfficerSignature
}

// Delete removes the document and its children, then releases their photos.
// The record is gone even when a photo cannot be removed.
func (s *DocumentService) Delete(ctx context.Context, id uint, actor Actor) error {
	doc, err := s.docs.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.audit(ctx, doc, model.ActionDelete, actor, nil)
	s.metrics.IncDeleted("travel_document")
	removePhotos(ctx, s.photos, doc.PhotoRefs(), s.metrics, s.logger)
	s.logger.Infow("document deleted", "document_id", id, "document_number", doc.DocumentNumber, "user", actor.Name())
	return nil
}

// Transition moves the document to target if the lifecycle allows it.
func (s *DocumentService) Transition(ctx context.Context, id uint, target model.Status, actor Actor) (*model.TravelDocument, error) {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.opts.now()
	old, err := model.TransitionTo(doc, target, now)
	if err != nil {
		return nil, err
	}
	if err := s.docs.UpdateStatus(ctx, id, old, target, now); err != nil {
		return nil, err
	}

	action := model.ActionApprove
	if target == model.StatusPrinted {
		action = model.ActionPrint
	}
	s.audit(ctx, doc, action, actor, map[string]any{"old_status": string(old), "new_status": string(target)})
	s.publish(ctx, doc, old, target, actor, now)
	s.metrics.IncTransition(string(old), string(target))
	return doc, nil
}

func (s *DocumentService) Approve(ctx context.Context, id uint, actor Actor) (*model.TravelDocument, error) {
	return s.Transition(ctx, id, model.StatusApproved, actor)
}

func (s *DocumentService) Print(ctx context.Context, id uint, actor Actor) (*model.TravelDocument, error) {
	return s.Transition(ctx, id, model.StatusPrinted, actor)
}

// Bulk applies op to every id independently. Results follow the order of
// ids; a failure on one id never aborts the rest.
func (s *DocumentService) Bulk(ctx context.Context, ids []uint, op BulkOperation, actor Actor) ([]BulkResult, error) {
	if !op.Valid() {
		return nil, apperr.NewValidation("operation", op, "must be one of: approve print delete")
	}
	if len(ids) == 0 {
		return nil, apperr.NewValidation("document_ids", nil, "document_ids is required")
	}
	results := make([]BulkResult, 0, len(ids))
	for _, id := range ids {
		var err error
		var msg string
		switch op {
		case BulkApprove:
			_, err = s.Approve(ctx, id, actor)
			msg = "Document approved"
		case BulkPrint:
			_, err = s.Print(ctx, id, actor)
			msg = "Document marked as printed"
		case BulkDelete:
			err = s.Delete(ctx, id, actor)
			msg = "Document deleted"
		}
		if err != nil {
			results = append(results, BulkResult{DocumentID: id, Status: "error", Message: bulkMessage(err)})
			continue
		}
		results = append(results, BulkResult{DocumentID: id, Status: "success", Message: msg})
	}
	return results, nil
}

func bulkMessage(err error) string {
	if errors.Is(err, apperr.ErrNotFound) {
		return "not found"
	}
	var ite *apperr.InvalidTransitionError
	if errors.As(err, &ite) {
		return ite.Error()
	}
	return err.Error()
}

func (s *DocumentService) Search(ctx context.Context, f repo.DocumentFilter) ([]model.TravelDocument, int64, error) {
	if err := validate.DateRange(f.CreatedFrom, f.CreatedTo); err != nil {
		return nil, 0, fieldErr("date_from", err)
	}
	if err := validate.DateRange(f.DateFrom, f.DateTo); err != nil {
		return nil, 0, fieldErr("date_from", err)
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, apperr.NewValidation("status", f.Status, "unknown status")
	}
	return s.docs.Search(ctx, f)
}

func fieldErr(field string, err error) error {
	v := &apperr.ValidationError{}
	v.AddErr(field, err)
	return v.OrNil()
}

// Statistics counts documents by status and those created in the last days
// (the configured default when days <= 0).
func (s *DocumentService) Statistics(ctx context.Context, days int) (*DocumentStats, error) {
	if days <= 0 {
		days = s.opts.recent
	}
	now := s.opts.now()
	total, err := s.docs.Count(ctx)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.docs.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	for _, st := range model.Statuses {
		if _, ok := byStatus[st]; !ok {
			byStatus[st] = 0
		}
	}
	recent, err := s.docs.CountCreatedSince(ctx, since(now, days))
	if err != nil {
		return nil, err
	}
	recent7, err := s.docs.CountCreatedSince(ctx, since(now, 7))
	if err != nil {
		return nil, err
	}
	return &DocumentStats{Total: total, ByStatus: byStatus, RecentDays: days, Recent: recent, Recent7: recent7}, nil
}

// ListByIDs returns the documents with the given ids; unknown ids are skipped.
func (s *DocumentService) ListByIDs(ctx context.Context, ids []uint) ([]model.TravelDocument, error) {
	return s.docs.ListByIDs(ctx, ids)
}

// ByRegion returns per-region counts, largest first. topN <= 0 returns all regions.
func (s *DocumentService) ByRegion(ctx context.Context, topN int) ([]repo.RegionCount, error) {
	return s.docs.CountByRegion(ctx, topN)
}

// Recent lists documents created in the last days, newest first.
func (s *DocumentService) Recent(ctx context.Context, days int) ([]model.TravelDocument, error) {
	if days <= 0 {
		days = s.opts.recent
	}
	from := since(s.opts.now(), days)
	docs, _, err := s.docs.Search(ctx, repo.DocumentFilter{CreatedFrom: &from})
	return docs, err
}

// ValidateDraft checks a submission without storing it.
func (s *DocumentService) ValidateDraft(in DraftInput) []apperr.FieldError {
	return ValidateDraft(in, s.opts.now())
}

func (s *DocumentService) AddChild(ctx context.Context, documentID uint, c *model.TravelDocumentChild) (*model.TravelDocumentChild, error) {
	if err := validateChild(s.v, c); err != nil {
		return nil, err
	}
	c.ID = 0
	c.DocumentID = documentID
	c.PhotoRef = ""
	if err := s.docs.AddChild(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *DocumentService) RemoveChild(ctx context.Context, documentID, childID uint) error {
	c, err := s.docs.DeleteChild(ctx, documentID, childID)
	if err != nil {
		return err
	}
	removePhotos(ctx, s.photos, []string{c.PhotoRef}, s.metrics, s.logger)
	return nil
}

// SetPhoto normalises and stores the document portrait, replacing any previous one.
func (s *DocumentService) SetPhoto(ctx context.Context, id uint, data []byte) (string, error) {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	ref, err := s.storePhoto(ctx, photo.DirDocuments, data)
	if err != nil {
		return "", err
	}
	if err := s.docs.SetPhoto(ctx, id, ref); err != nil {
		removePhotos(ctx, s.photos, []string{ref}, s.metrics, s.logger)
		return "", err
	}
	removePhotos(ctx, s.photos, []string{doc.PhotoRef}, s.metrics, s.logger)
	return ref, nil
}

func (s *DocumentService) SetChildPhoto(ctx context.Context, documentID, childID uint, data []byte) (string, error) {
	c, err := s.docs.GetChild(ctx, documentID, childID)
	if err != nil {
		return "", err
	}
	ref, err := s.storePhoto(ctx, photo.DirChildren, data)
	if err != nil {
		return "", err
	}
	if err := s.docs.SetChildPhoto(ctx, documentID, childID, ref); err != nil {
		removePhotos(ctx, s.photos, []string{ref}, s.metrics, s.logger)
		return "", err
	}
	removePhotos(ctx, s.photos, []string{c.PhotoRef}, s.metrics, s.logger)
	return ref, nil
}

// OpenPhoto streams the document portrait. The caller closes the reader.
func (s *DocumentService) OpenPhoto(ctx context.Context, id uint) (io.ReadCloser, error) {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.PhotoRef == "" {
		return nil, fmt.Errorf("%w: document %d has no photo", apperr.ErrNotFound, id)
	}
	return openPhoto(ctx, s.photos, doc.PhotoRef)
}

func (s *DocumentService) storePhoto(ctx context.Context, dir string, data []byte) (string, error) {
	return storePhoto(ctx, s.photos, dir, data, s.opts.photo)
}

// History returns the status changes of a document, oldest first. The
// history outlives the document itself.
func (s *DocumentService) History(ctx context.Context, id uint) ([]model.StatusEvent, error) {
	return s.events.ListStatusEvents(ctx, id)
}

func (s *DocumentService) audit(ctx context.Context, doc *model.TravelDocument, action string, actor Actor, changes map[string]any) {
	if changes == nil {
		changes = map[string]any{}
	}
	err := s.events.AppendAudit(ctx, &model.AuditEntry{
		DocumentID:     doc.ID,
		DocumentNumber: doc.DocumentNumber,
		Action:         action,
		Actor:          actor.Name(),
		Changes:        changes,
	})
	if err != nil {
		s.logger.Warnw("audit write failed", "document_id", doc.ID, "action", action, "error", err)
	}
}

func (s *DocumentService) publish(ctx context.Context, doc *model.TravelDocument, old, next model.Status, actor Actor, at time.Time) {
	_ = s.notifier.Publish(ctx, notify.StatusChange{
		DocumentID:     doc.ID,
		DocumentNumber: doc.DocumentNumber,
		OldStatus:      old,
		NewStatus:      next,
		Actor:          actor.Name(),
		Timestamp:      at,
	})
}

func storePhoto(ctx context.Context, store photo.Store, dir string, data []byte, limits PhotoLimits) (string, error) {
	norm, err := photo.Normalize(data, limits.MaxPx, limits.MaxBytes)
	switch {
	case errors.Is(err, photo.ErrTooLarge):
		return "", apperr.NewValidation("photo", nil, fmt.Sprintf("image file too large, maximum size is %d MB", limits.MaxBytes>>20))
	case errors.Is(err, photo.ErrNotImage):
		return "", apperr.NewValidation("photo", nil, "upload a valid jpeg, png or gif image")
	case err != nil:
		return "", err
	}
	return store.Save(ctx, dir, norm)
}

func openPhoto(ctx context.Context, store photo.Store, ref string) (io.ReadCloser, error) {
	rc, err := store.Open(ctx, ref)
	if errors.Is(err, photo.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", apperr.ErrNotFound, err)
	}
	return rc, err
}
