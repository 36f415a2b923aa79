package repo

import (
	"context"
	"strings"
	"time"

	"immigration/internal/apperr"
	"immigration/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FormFilter narrows a sponsorship form search. Kind is always applied when set.
type FormFilter struct {
	Kind        model.FormKind
	Query       string
	SponsorType model.SponsorType
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	DateFrom    *time.Time
	DateTo      *time.Time

	SortBy string
	Limit  int
	Offset int
}

// FormRepository is the storage contract for both sponsorship form variants.
type FormRepository interface {
	Create(ctx context.Context, f *model.SponsorshipForm) error
	GetByID(ctx context.Context, kind model.FormKind, id uint) (*model.SponsorshipForm, error)
	// Update writes the editable fields. With replaceMembers the members are
	// replaced by f.Members and the photo refs of the removed ones are returned.
	Update(ctx context.Context, f *model.SponsorshipForm, replaceMembers bool) ([]string, error)
	Delete(ctx context.Context, kind model.FormKind, id uint) (*model.SponsorshipForm, error)
	Search(ctx context.Context, f FormFilter) ([]model.SponsorshipForm, int64, error)

	CountByKind(ctx context.Context) (map[model.FormKind]int64, error)
	CountBySponsorType(ctx context.Context, kind model.FormKind) (map[model.SponsorType]int64, error)
	CountCreatedSince(ctx context.Context, kind model.FormKind, since time.Time) (int64, error)

	AddMember(ctx context.Context, kind model.FormKind, m *model.SponsorshipFormMember) error
	GetMember(ctx context.Context, kind model.FormKind, formID, memberID uint) (*model.SponsorshipFormMember, error)
	DeleteMember(ctx context.Context, kind model.FormKind, formID, memberID uint) (*model.SponsorshipFormMember, error)
	SetMemberPhoto(ctx context.Context, kind model.FormKind, formID, memberID uint, ref string) error
	PhotoRefs(ctx context.Context) ([]string, error)
}

var formColumns = []string{
	"date", "gobolka", "degmada", "company_name", "company_license", "establishment_period",
	"working_employees", "company_region", "company_district", "sponsor_type", "sponsor_name",
	"sponsor_id", "sponsor_phone", "sponsor_contact", "sponsor_address", "pledge_name",
	"pledge_signature", "district_leader_name", "district_leader_signature", "filled_date",
	"attachment_types", "special_notes", "updated_at",
}

var formSortColumns = map[string]string{
	"id":           "id",
	"created_at":   "created_at",
	"updated_at":   "updated_at",
	"date":         "date",
	"reference":    "reference",
	"company_name": "company_name",
	"sponsor_name": "sponsor_name",
}

type formRepo struct {
	db *gorm.DB
}

// NewFormRepository создаёт gorm-реализацию FormRepository.
func NewFormRepository(db *gorm.DB) FormRepository {
	return &formRepo{db: db}
}

func (r *formRepo) Create(ctx context.Context, f *model.SponsorshipForm) error {
	return translate(r.db.WithContext(ctx).Create(f).Error)
}

func (r *formRepo) GetByID(ctx context.Context, kind model.FormKind, id uint) (*model.SponsorshipForm, error) {
	var f model.SponsorshipForm
	err := r.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC, id ASC") }).
		Where("kind = ?", kind).
		First(&f, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

func (r *formRepo) Update(ctx context.Context, f *model.SponsorshipForm, replaceMembers bool) ([]string, error) {
	var removed []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.SponsorshipForm{ID: f.ID}).
			Where("kind = ?", f.Kind).
			Select(formColumns).Omit(clause.Associations).
			Updates(f)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrNotFound
		}
		if !replaceMembers {
			return nil
		}
		if err := tx.Model(&model.SponsorshipFormMember{}).
			Where("form_id = ? AND photo_ref <> ''", f.ID).
			Pluck("photo_ref", &removed).Error; err != nil {
			return err
		}
		if err := tx.Where("form_id = ?", f.ID).Delete(&model.SponsorshipFormMember{}).Error; err != nil {
			return err
		}
		for i := range f.Members {
			f.Members[i].ID = 0
			f.Members[i].FormID = f.ID
		}
		if len(f.Members) == 0 {
			return nil
		}
		return tx.Create(&f.Members).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return removed, nil
}

func (r *formRepo) Delete(ctx context.Context, kind model.FormKind, id uint) (*model.SponsorshipForm, error) {
	var f model.SponsorshipForm
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Members").Where("kind = ?", kind).First(&f, id).Error; err != nil {
			return err
		}
		if err := tx.Where("form_id = ?", id).Delete(&model.SponsorshipFormMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.SponsorshipForm{}, id).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

func (r *formRepo) Search(ctx context.Context, f FormFilter) ([]model.SponsorshipForm, int64, error) {
	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q := r.filtered(ctx, f).Order(orderClause(f.SortBy, formSortColumns))
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var forms []model.SponsorshipForm
	if err := q.Preload("Members").Find(&forms).Error; err != nil {
		return nil, 0, err
	}
	return forms, total, nil
}

func (r *formRepo) filtered(ctx context.Context, f FormFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.SponsorshipForm{})
	if f.Kind != "" {
		q = q.Where("kind = ?", f.Kind)
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(reference) LIKE ? OR LOWER(company_name) LIKE ? OR LOWER(sponsor_name) LIKE ? OR LOWER(gobolka) LIKE ? OR LOWER(degmada) LIKE ?)",
			like, like, like, like, like)
	}
	if f.SponsorType != "" {
		q = q.Where("sponsor_type = ?", f.SponsorType)
	}
	q = between(q, "created_at", f.CreatedFrom, f.CreatedTo)
	return between(q, "date", f.DateFrom, f.DateTo)
}

func (r *formRepo) CountByKind(ctx context.Context) (map[model.FormKind]int64, error) {
	var rows []struct {
		Kind  model.FormKind
		Count int64
	}
	err := r.db.WithContext(ctx).Model(&model.SponsorshipForm{}).
		Select("kind, COUNT(*) AS count").Group("kind").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[model.FormKind]int64, len(model.FormKinds))
	for _, k := range model.FormKinds {
		out[k] = 0
	}
	for _, row := range rows {
		out[row.Kind] = row.Count
	}
	return out, nil
}

func (r *formRepo) CountBySponsorType(ctx context.Context, kind model.FormKind) (map[model.SponsorType]int64, error) {
	var rows []struct {
		SponsorType model.SponsorType
		Count       int64
	}
	err := r.db.WithContext(ctx).Model(&model.SponsorshipForm{}).
		Select("sponsor_type, COUNT(*) AS count").
		Where("kind = ? AND sponsor_type <> ''", kind).
		Group("sponsor_type").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[model.SponsorType]int64, len(rows))
	for _, row := range rows {
		out[row.SponsorType] = row.Count
	}
	return out, nil
}

func (r *formRepo) CountCreatedSince(ctx context.Context, kind model.FormKind, since time.Time) (int64, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&model.SponsorshipForm{}).Where("created_at >= ?", since.UTC())
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	err := q.Count(&n).Error
	return n, err
}

func (r *formRepo) AddMember(ctx context.Context, kind model.FormKind, m *model.SponsorshipFormMember) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.formExists(tx, kind, m.FormID); err != nil {
			return err
		}
		return tx.Create(m).Error
	})
	return translate(err)
}

func (r *formRepo) formExists(tx *gorm.DB, kind model.FormKind, id uint) error {
	var n int64
	if err := tx.Model(&model.SponsorshipForm{}).Where("id = ? AND kind = ?", id, kind).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *formRepo) GetMember(ctx context.Context, kind model.FormKind, formID, memberID uint) (*model.SponsorshipFormMember, error) {
	var m model.SponsorshipFormMember
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.formExists(tx, kind, formID); err != nil {
			return err
		}
		return tx.Where("id = ? AND form_id = ?", memberID, formID).First(&m).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (r *formRepo) DeleteMember(ctx context.Context, kind model.FormKind, formID, memberID uint) (*model.SponsorshipFormMember, error) {
	var m model.SponsorshipFormMember
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.formExists(tx, kind, formID); err != nil {
			return err
		}
		if err := tx.Where("id = ? AND form_id = ?", memberID, formID).First(&m).Error; err != nil {
			return err
		}
		return tx.Delete(&m).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (r *formRepo) SetMemberPhoto(ctx context.Context, kind model.FormKind, formID, memberID uint, ref string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.formExists(tx, kind, formID); err != nil {
			return err
		}
		res := tx.Model(&model.SponsorshipFormMember{}).
			Where("id = ? AND form_id = ?", memberID, formID).
			Update("photo_ref", ref)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrNotFound
		}
		return nil
	})
	return translate(err)
}

func (r *formRepo) PhotoRefs(ctx context.Context) ([]string, error) {
	var refs []string
	err := r.db.WithContext(ctx).Model(&model.SponsorshipFormMember{}).
		Where("photo_ref <> ''").Pluck("photo_ref", &refs).Error
	return refs, err
}
