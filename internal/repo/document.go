package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"immigration/internal/apperr"
	"immigration/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentFilter narrows a travel document search. Zero values do not filter.
// Date bounds are inclusive.
type DocumentFilter struct {
	Query       string
	Region      string
	District    string
	Status      model.Status
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	DateFrom    *time.Time
	DateTo      *time.Time
	FilledFrom  *time.Time
	FilledTo    *time.Time

	HasNotayo         *bool
	HasSponsorID      *bool
	HasDamagedID      *bool
	HasCompanyLicense *bool
	HasOtherDocuments *bool

	// SortBy is a column name, optionally prefixed with "-" for descending
	// order. Empty means newest first.
	SortBy string
	Limit  int
	Offset int
}

// RegionCount is one row of the per-region aggregate.
type RegionCount struct {
	Region string `json:"region"`
	Count  int64  `json:"count"`
}

// DocumentRepository is the storage contract for travel documents and their children.
type DocumentRepository interface {
	// Create inserts doc with its children. An empty DocumentNumber is
	// assigned from the highest existing id.
	Create(ctx context.Context, doc *model.TravelDocument) error
	GetByID(ctx context.Context, id uint) (*model.TravelDocument, error)
	// Update writes the editable fields of doc. With replaceChildren the
	// children are replaced by doc.Children; the photo refs of the removed
	// children are returned.
	Update(ctx context.Context, doc *model.TravelDocument, replaceChildren bool) ([]string, error)
	// UpdateStatus moves the document from one status to another. It fails
	// with apperr.ErrConflict when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id uint, from, to model.Status, at time.Time) error
	// Delete removes the document and its children and returns what was deleted.
	Delete(ctx context.Context, id uint) (*model.TravelDocument, error)
	Search(ctx context.Context, f DocumentFilter) ([]model.TravelDocument, int64, error)
	ListByIDs(ctx context.Context, ids []uint) ([]model.TravelDocument, error)

	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context) (map[model.Status]int64, error)
	CountByRegion(ctx context.Context, limit int) ([]RegionCount, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)

	AddChild(ctx context.Context, child *model.TravelDocumentChild) error
	GetChild(ctx context.Context, documentID, childID uint) (*model.TravelDocumentChild, error)
	DeleteChild(ctx context.Context, documentID, childID uint) (*model.TravelDocumentChild, error)
	SetPhoto(ctx context.Context, id uint, ref string) error
	SetChildPhoto(ctx context.Context, documentID, childID uint, ref string) error
	// PhotoRefs lists every photo reference held by documents and children.
	PhotoRefs(ctx context.Context) ([]string, error)
}

// editable columns of a travel document; number, status, owner and photo
// have dedicated operations.
var documentColumns = []string{
	"region_office", "date", "full_name", "mother_name", "birth_date", "birth_place",
	"identification_number", "region", "district", "workplace", "sponsor_name",
	"citizen_card", "phone_number", "nationality", "job_type", "license_number",
	"contact_number", "filled_date", "has_notayo", "has_sponsor_id", "has_damaged_id",
	"has_company_license", "has_other_documents", "officer_notes", "card_number",
	"officer_signature", "updated_at",
}

var documentSortColumns = map[string]string{
	"id":              "id",
	"created_at":      "created_at",
	"updated_at":      "updated_at",
	"date":            "date",
	"full_name":       "full_name",
	"document_number": "document_number",
	"status":          "status",
	"region":          "region",
}

type documentRepo struct {
	db *gorm.DB
}

// NewDocumentRepository создаёт gorm-реализацию DocumentRepository.
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepo{db: db}
}

func (r *documentRepo) Create(ctx context.Context, doc *model.TravelDocument) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if doc.DocumentNumber == "" {
			var lastID int64
			if err := tx.Model(&model.TravelDocument{}).Select("COALESCE(MAX(id), 0)").Scan(&lastID).Error; err != nil {
				return err
			}
			doc.DocumentNumber = model.FormatDocumentNumber(uint(lastID))
		}
		return tx.Create(doc).Error
	})
	return translate(err)
}

func (r *documentRepo) GetByID(ctx context.Context, id uint) (*model.TravelDocument, error) {
	var doc model.TravelDocument
	err := r.db.WithContext(ctx).
		Preload("Children", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC, id ASC") }).
		First(&doc, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &doc, nil
}

func (r *documentRepo) Update(ctx context.Context, doc *model.TravelDocument, replaceChildren bool) ([]string, error) {
	var removed []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.TravelDocument{ID: doc.ID}).Select(documentColumns).Omit(clause.Associations).Updates(doc)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrNotFound
		}
		if !replaceChildren {
			return nil
		}
		if err := tx.Model(&model.TravelDocumentChild{}).
			Where("document_id = ? AND photo_ref <> ''", doc.ID).
			Pluck("photo_ref", &removed).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", doc.ID).Delete(&model.TravelDocumentChild{}).Error; err != nil {
			return err
		}
		for i := range doc.Children {
			doc.Children[i].ID = 0
			doc.Children[i].DocumentID = doc.ID
		}
		if len(doc.Children) == 0 {
			return nil
		}
		return tx.Create(&doc.Children).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return removed, nil
}

func (r *documentRepo) UpdateStatus(ctx context.Context, id uint, from, to model.Status, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.TravelDocument{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": at})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: document %d is no longer %s", apperr.ErrConflict, id, from)
	}
	return nil
}

func (r *documentRepo) Delete(ctx context.Context, id uint) (*model.TravelDocument, error) {
	var doc model.TravelDocument
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Children").First(&doc, id).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", id).Delete(&model.TravelDocumentChild{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.TravelDocument{}, id).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &doc, nil
}

func (r *documentRepo) Search(ctx context.Context, f DocumentFilter) ([]model.TravelDocument, int64, error) {
	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := r.filtered(ctx, f).Order(documentOrder(f.SortBy))
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var docs []model.TravelDocument
	if err := q.Preload("Children").Find(&docs).Error; err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func (r *documentRepo) filtered(ctx context.Context, f DocumentFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.TravelDocument{})
	if s := strings.TrimSpace(f.Query); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(full_name) LIKE ? OR LOWER(document_number) LIKE ? OR LOWER(identification_number) LIKE ?)", like, like, like)
	}
	if region := strings.TrimSpace(f.Region); region != "" {
		q = q.Where("region = ?", region)
	}
	if district := strings.TrimSpace(f.District); district != "" {
		q = q.Where("district = ?", district)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	q = between(q, "created_at", f.CreatedFrom, f.CreatedTo)
	q = between(q, "date", f.DateFrom, f.DateTo)
	q = between(q, "filled_date", f.FilledFrom, f.FilledTo)
	flags := []struct {
		col string
		val *bool
	}{
		{"has_notayo", f.HasNotayo},
		{"has_sponsor_id", f.HasSponsorID},
		{"has_damaged_id", f.HasDamagedID},
		{"has_company_license", f.HasCompanyLicense},
		{"has_other_documents", f.HasOtherDocuments},
	}
	for _, fl := range flags {
		if fl.val != nil {
			q = q.Where(fl.col+" = ?", *fl.val)
		}
	}
	return q
}

func between(q *gorm.DB, col string, from, to *time.Time) *gorm.DB {
	if from != nil {
		q = q.Where(col+" >= ?", from.UTC())
	}
	if to != nil {
		q = q.Where(col+" <= ?", to.UTC())
	}
	return q
}

func documentOrder(sortBy string) string {
	return orderClause(sortBy, documentSortColumns)
}

// orderClause turns "-col" into "col DESC" for whitelisted columns and falls
// back to newest first. id breaks ties between rows created in the same instant.
func orderClause(sortBy string, allowed map[string]string) string {
	desc := strings.HasPrefix(sortBy, "-")
	col, ok := allowed[strings.TrimPrefix(sortBy, "-")]
	if !ok {
		return "created_at DESC, id DESC"
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	return col + " " + dir + ", id " + dir
}

func (r *documentRepo) ListByIDs(ctx context.Context, ids []uint) ([]model.TravelDocument, error) {
	if len(ids) == 0 {
		return []model.TravelDocument{}, nil
	}
	var docs []model.TravelDocument
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *documentRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.TravelDocument{}).Count(&n).Error
	return n, err
}

func (r *documentRepo) CountByStatus(ctx context.Context) (map[model.Status]int64, error) {
	var rows []struct {
		Status model.Status
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&model.TravelDocument{}).
		Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[model.Status]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (r *documentRepo) CountByRegion(ctx context.Context, limit int) ([]RegionCount, error) {
	q := r.db.WithContext(ctx).Model(&model.TravelDocument{}).
		Select("region, COUNT(*) AS count").
		Where("region <> ''").
		Group("region").
		Order("count DESC, region ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	rows := []RegionCount{}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *documentRepo) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.TravelDocument{}).
		Where("created_at >= ?", since.UTC()).Count(&n).Error
	return n, err
}

func (r *documentRepo) AddChild(ctx context.Context, child *model.TravelDocumentChild) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.TravelDocument{}).Where("id = ?", child.DocumentID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return apperr.ErrNotFound
		}
		return tx.Create(child).Error
	})
	return translate(err)
}

func (r *documentRepo) GetChild(ctx context.Context, documentID, childID uint) (*model.TravelDocumentChild, error) {
	var c model.TravelDocumentChild
	if err := r.db.WithContext(ctx).Where("id = ? AND document_id = ?", childID, documentID).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *documentRepo) DeleteChild(ctx context.Context, documentID, childID uint) (*model.TravelDocumentChild, error) {
	var c model.TravelDocumentChild
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND document_id = ?", childID, documentID).First(&c).Error; err != nil {
			return err
		}
		return tx.Delete(&c).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *documentRepo) SetPhoto(ctx context.Context, id uint, ref string) error {
	res := r.db.WithContext(ctx).Model(&model.TravelDocument{}).Where("id = ?", id).
		Updates(map[string]any{"photo_ref": ref, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *documentRepo) SetChildPhoto(ctx context.Context, documentID, childID uint, ref string) error {
	res := r.db.WithContext(ctx).Model(&model.TravelDocumentChild{}).
		Where("id = ? AND document_id = ?", childID, documentID).
		Update("photo_ref", ref)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *documentRepo) PhotoRefs(ctx context.Context) ([]string, error) {
	var docs, children []string
	if err := r.db.WithContext(ctx).Model(&model.TravelDocument{}).
		Where("photo_ref <> ''").Pluck("photo_ref", &docs).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&model.TravelDocumentChild{}).
		Where("photo_ref <> ''").Pluck("photo_ref", &children).Error; err != nil {
		return nil, err
	}
	return append(docs, children...), nil
}
