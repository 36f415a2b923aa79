package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"immigration/internal/apperr"
	"immigration/internal/metrics"
	"immigration/internal/model"
	"immigration/internal/photo"
	"immigration/internal/repo"
	"immigration/internal/validate"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// FormStats is the per-kind form summary.
type FormStats struct {
	Kind          model.FormKind              `json:"kind"`
	Total         int64                       `json:"total"`
	RecentDays    int                         `json:"recent_days"`
	Recent        int64                       `json:"recent"`
	BySponsorType map[model.SponsorType]int64 `json:"by_sponsor_type,omitempty"`
}

// FormValidation is the outcome of a completeness check.
type FormValidation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

type formCheck struct {
	SponsorType  string `json:"sponsor_type" validate:"sponsortype"`
	SponsorPhone string `json:"sponsor_phone" validate:"sl_phone"`
	Contact      string `json:"sponsor_contact" validate:"sl_phone"`
	SponsorID    string `json:"sponsor_id" validate:"idnumber"`
	SponsorName  string `json:"sponsor_name" validate:"personname"`
	Gobolka      string `json:"gobolka" validate:"omitempty,min=2"`
	Degmada      string `json:"degmada" validate:"omitempty,min=2"`
	Employees    int    `json:"working_employees" validate:"gte=0"`
}

type memberCheck struct {
	Name      string    `json:"name" validate:"required,personname"`
	Phone     string    `json:"phone" validate:"sl_phone"`
	IDNumber  string    `json:"id_number" validate:"idnumber"`
	BirthDate time.Time `json:"birth_date" validate:"birthdate"`
}

// FormService инкапсулирует бизнес-логику работы с формами Degmada и Kafiilka.
type FormService struct {
	forms   repo.FormRepository
	photos  photo.Store
	metrics *metrics.Metrics
	logger  *zap.SugaredLogger
	v       *validator.Validate
	opts    options
}

func NewFormService(forms repo.FormRepository, photos photo.Store, m *metrics.Metrics, logger *zap.SugaredLogger, opts ...Option) *FormService {
	o := buildOptions(opts)
	return &FormService{
		forms:   forms,
		photos:  photos,
		metrics: m,
		logger:  logger,
		v:       validate.NewAt(o.now),
		opts:    o,
	}
}

func checkKind(kind model.FormKind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown form kind %q", apperr.ErrNotFound, kind)
	}
	return nil
}

func (s *FormService) validateForm(f *model.SponsorshipForm) error {
	out := &apperr.ValidationError{}
	emp := 0
	if f.WorkingEmployees != nil {
		emp = *f.WorkingEmployees
	}
	if f.Kind == model.FormDegmada && f.SponsorType != "" {
		out.Add("sponsor_type", f.SponsorType, "sponsor type only applies to kafiilka forms")
	}
	if err := validate.Struct(s.v, formCheck{
		SponsorType:  string(f.SponsorType),
		SponsorPhone: f.SponsorPhone,
		Contact:      f.SponsorContact,
		SponsorID:    f.SponsorID,
		SponsorName:  strings.TrimSpace(f.SponsorName),
		Gobolka:      strings.TrimSpace(f.Gobolka),
		Degmada:      strings.TrimSpace(f.Degmada),
		Employees:    emp,
	}); err != nil {
		if !appendValidation(out, "", err) {
			return err
		}
	}
	if f.CompanyLicense != "" {
		out.AddErr("company_license", validate.LicenseNumber(f.CompanyLicense))
	}
	now := s.opts.now()
	if f.Date != nil {
		out.AddErr("date", validate.NotFuture(*f.Date, now))
	}
	if f.FilledDate != nil {
		out.AddErr("filled_date", validate.NotFuture(*f.FilledDate, now))
	}
	for i := range f.Members {
		if err := s.validateMember(&f.Members[i]); err != nil {
			if !appendValidation(out, "members.", err) {
				return err
			}
		}
	}
	return out.OrNil()
}

func (s *FormService) validateMember(m *model.SponsorshipFormMember) error {
	return validate.Struct(s.v, memberCheck{
		Name:      strings.TrimSpace(m.Name),
		Phone:     m.Phone,
		IDNumber:  m.IDNumber,
		BirthDate: deref(m.BirthDate),
	})
}

// appendValidation copies the fields of a validation error into out under
// prefix. It reports false for any other error.
func appendValidation(out *apperr.ValidationError, prefix string, err error) bool {
	ve, ok := err.(*apperr.ValidationError)
	if !ok {
		return false
	}
	for _, f := range ve.Fields {
		out.Add(prefix+f.Field, f.Value, f.Message)
	}
	return true
}

func normalizeForm(f *model.SponsorshipForm) {
	f.CompanyName = strings.TrimSpace(f.CompanyName)
	f.SponsorName = strings.TrimSpace(f.SponsorName)
	f.Gobolka = strings.TrimSpace(f.Gobolka)
	f.Degmada = strings.TrimSpace(f.Degmada)
	if f.SponsorPhone != "" {
		f.SponsorPhone = validate.CleanPhone(f.SponsorPhone)
	}
	if f.SponsorContact != "" {
		f.SponsorContact = validate.CleanPhone(f.SponsorContact)
	}
	if f.SponsorID != "" {
		f.SponsorID = validate.NormalizeIDNumber(f.SponsorID)
	}
	for i := range f.Members {
		normalizeMember(&f.Members[i])
	}
}

func normalizeMember(m *model.SponsorshipFormMember) {
	m.Name = strings.TrimSpace(m.Name)
	if m.Phone != "" {
		m.Phone = validate.CleanPhone(m.Phone)
	}
	if m.IDNumber != "" {
		m.IDNumber = validate.NormalizeIDNumber(m.IDNumber)
	}
}

// Create stores a new form of kind with its members. The reference is taken
// from the clock; two forms of one kind created within the same second
// collide and the second fails with apperr.ErrConflict.
func (s *FormService) Create(ctx context.Context, kind model.FormKind, f *model.SponsorshipForm) (*model.SponsorshipForm, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	f.Kind = kind
	if err := s.validateForm(f); err != nil {
		return nil, err
	}
	normalizeForm(f)
	if f.Reference == "" {
		f.Reference = model.FormatReference(kind, s.opts.now())
	} else if err := validate.Reference(f.Reference); err != nil {
		return nil, fieldErr("reference", err)
	}
	f.ID = 0
	for i := range f.Members {
		f.Members[i].ID = 0
		f.Members[i].PhotoRef = ""
	}
	if err := s.forms.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("create %s form: %w", kind, err)
	}
	s.metrics.IncFormCreated(string(kind))
	s.logger.Infow("form created", "kind", kind, "form_id", f.ID, "reference", f.Reference)
	return f, nil
}

func (s *FormService) Get(ctx context.Context, kind model.FormKind, id uint) (*model.SponsorshipForm, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	return s.forms.GetByID(ctx, kind, id)
}

func (s *FormService) List(ctx context.Context, f repo.FormFilter) ([]model.SponsorshipForm, int64, error) {
	if err := checkKind(f.Kind); err != nil {
		return nil, 0, err
	}
	if err := validate.DateRange(f.CreatedFrom, f.CreatedTo); err != nil {
		return nil, 0, fieldErr("date_from", err)
	}
	return s.forms.Search(ctx, f)
}

// Update replaces the editable fields; members are replaced only when
// replaceMembers is set. The reference never changes.
func (s *FormService) Update(ctx context.Context, kind model.FormKind, id uint, in *model.SponsorshipForm, replaceMembers bool) (*model.SponsorshipForm, error) {
	cur, err := s.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if in.Reference != "" && in.Reference != cur.Reference {
		return nil, apperr.NewValidation("reference", in.Reference, "reference cannot be changed")
	}
	in.ID = cur.ID
	in.Kind = kind
	in.Reference = cur.Reference
	in.CreatedAt = cur.CreatedAt
	if !replaceMembers {
		in.Members = nil
	}
	if err := s.validateForm(in); err != nil {
		return nil, err
	}
	normalizeForm(in)
	in.UpdatedAt = s.opts.now()

	removed, err := s.forms.Update(ctx, in, replaceMembers)
	if err != nil {
		return nil, fmt.Errorf("update %s form: %w", kind, err)
	}
	removePhotos(ctx, s.photos, removed, s.metrics, s.logger)
	return s.forms.GetByID(ctx, kind, id)
}

// Delete removes the form with all its members and then their photos.
func (s *FormService) Delete(ctx context.Context, kind model.FormKind, id uint) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	f, err := s.forms.Delete(ctx, kind, id)
	if err != nil {
		return err
	}
	s.metrics.IncDeleted(string(kind) + "_form")
	removePhotos(ctx, s.photos, f.PhotoRefs(), s.metrics, s.logger)
	s.logger.Infow("form deleted", "kind", kind, "form_id", id, "reference", f.Reference, "members", len(f.Members))
	return nil
}

func (s *FormService) AddMember(ctx context.Context, kind model.FormKind, formID uint, m *model.SponsorshipFormMember) (*model.SponsorshipFormMember, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	if err := s.validateMember(m); err != nil {
		return nil, err
	}
	normalizeMember(m)
	m.ID = 0
	m.FormID = formID
	m.PhotoRef = ""
	if err := s.forms.AddMember(ctx, kind, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *FormService) RemoveMember(ctx context.Context, kind model.FormKind, formID, memberID uint) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	m, err := s.forms.DeleteMember(ctx, kind, formID, memberID)
	if err != nil {
		return err
	}
	removePhotos(ctx, s.photos, []string{m.PhotoRef}, s.metrics, s.logger)
	return nil
}

func (s *FormService) SetMemberPhoto(ctx context.Context, kind model.FormKind, formID, memberID uint, data []byte) (string, error) {
	if err := checkKind(kind); err != nil {
		return "", err
	}
	m, err := s.forms.GetMember(ctx, kind, formID, memberID)
	if err != nil {
		return "", err
	}
	ref, err := storePhoto(ctx, s.photos, kind.PhotoDir(), data, s.opts.photo)
	if err != nil {
		return "", err
	}
	if err := s.forms.SetMemberPhoto(ctx, kind, formID, memberID, ref); err != nil {
		removePhotos(ctx, s.photos, []string{ref}, s.metrics, s.logger)
		return "", err
	}
	removePhotos(ctx, s.photos, []string{m.PhotoRef}, s.metrics, s.logger)
	return ref, nil
}

func (s *FormService) OpenMemberPhoto(ctx context.Context, kind model.FormKind, formID, memberID uint) (io.ReadCloser, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	m, err := s.forms.GetMember(ctx, kind, formID, memberID)
	if err != nil {
		return nil, err
	}
	if m.PhotoRef == "" {
		return nil, fmt.Errorf("%w: member %d has no photo", apperr.ErrNotFound, memberID)
	}
	return openPhoto(ctx, s.photos, m.PhotoRef)
}

// ValidateCompletion reports the sections of a stored form that still need
// to be filled in before it can be processed.
func (s *FormService) ValidateCompletion(ctx context.Context, kind model.FormKind, id uint) (*FormValidation, error) {
	f, err := s.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	var errs []string
	for _, r := range []struct{ field, value string }{
		{"company_name", f.CompanyName},
		{"sponsor_name", f.SponsorName},
		{"pledge_name", f.PledgeName},
	} {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, r.field+" is required")
		}
	}
	if f.MemberCount() == 0 {
		errs = append(errs, "Form must have at least one member")
	}
	return &FormValidation{Valid: len(errs) == 0, Errors: errs}, nil
}

// Statistics counts the forms of kind in total and in the last days.
func (s *FormService) Statistics(ctx context.Context, kind model.FormKind, days int) (*FormStats, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = s.opts.recent
	}
	byKind, err := s.forms.CountByKind(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.forms.CountCreatedSince(ctx, kind, since(s.opts.now(), days))
	if err != nil {
		return nil, err
	}
	st := &FormStats{Kind: kind, Total: byKind[kind], RecentDays: days, Recent: recent}
	if kind == model.FormKafiilka {
		if st.BySponsorType, err = s.forms.CountBySponsorType(ctx, kind); err != nil {
			return nil, err
		}
	}
	return st, nil
}
