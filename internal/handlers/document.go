package handlers

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"immigration/internal/export"
	"immigration/internal/model"
	"immigration/internal/repo"
	"immigration/internal/service"
)

// DocumentHandler обслуживает /api/documents.
type DocumentHandler struct {
	*base
	svc *service.DocumentService
}

type childInput struct {
	Name       string `json:"name"`
	BirthDate  Date   `json:"birth_date"`
	BirthPlace string `json:"birth_place"`
}

func (c childInput) toModel() model.TravelDocumentChild {
	return model.TravelDocumentChild{Name: c.Name, BirthDate: c.BirthDate.Time, BirthPlace: c.BirthPlace}
}

// documentInput: тело создания и изменения документа. Children == nil
// оставляет детей без изменений.
type documentInput struct {
	DocumentNumber       string        `json:"document_number"`
	RegionOffice         string        `json:"region_office"`
	Date                 Date          `json:"date"`
	FullName             string        `json:"full_name"`
	MotherName           string        `json:"mother_name"`
	BirthDate            Date          `json:"birth_date"`
	BirthPlace           string        `json:"birth_place"`
	IdentificationNumber string        `json:"identification_number"`
	Region               string        `json:"region"`
	District             string        `json:"district"`
	Workplace            string        `json:"workplace"`
	SponsorName          string        `json:"sponsor_name"`
	CitizenCard          string        `json:"citizen_card"`
	PhoneNumber          string        `json:"phone_number"`
	Nationality          string        `json:"nationality"`
	JobType              string        `json:"job_type"`
	LicenseNumber        string        `json:"license_number"`
	ContactNumber        string        `json:"contact_number"`
	FilledDate           Date          `json:"filled_date"`
	HasNotayo            bool          `json:"has_notayo"`
	HasSponsorID         bool          `json:"has_sponsor_id"`
	HasDamagedID         bool          `json:"has_damaged_id"`
	HasCompanyLicense    bool          `json:"has_company_license"`
	HasOtherDocuments    bool          `json:"has_other_documents"`
	OfficerNotes         string        `json:"immigration_officer_notes"`
	Status               model.Status  `json:"status"`
	CardNumber           string        `json:"card_number"`
	OfficerSignature     string        `json:"officer_signature"`
	Children             *[]childInput `json:"children"`

	// только для /validate
	SponsorID    string `json:"sponsor_id"`
	SponsorPhone string `json:"sponsor_phone"`
}

func (in *documentInput) toModel() *model.TravelDocument {
	doc := &model.TravelDocument{
		DocumentNumber:       in.DocumentNumber,
		RegionOffice:         in.RegionOffice,
		Date:                 in.Date.Time,
		FullName:             in.FullName,
		MotherName:           in.MotherName,
		BirthDate:            in.BirthDate.Time,
		BirthPlace:           in.BirthPlace,
		IdentificationNumber: in.IdentificationNumber,
		Region:               in.Region,
		District:             in.District,
		Workplace:            in.Workplace,
		SponsorName:          in.SponsorName,
		CitizenCard:          in.CitizenCard,
		PhoneNumber:          in.PhoneNumber,
		Nationality:          in.Nationality,
		JobType:              in.JobType,
		LicenseNumber:        in.LicenseNumber,
		ContactNumber:        in.ContactNumber,
		FilledDate:           in.FilledDate.Time,
		HasNotayo:            in.HasNotayo,
		HasSponsorID:         in.HasSponsorID,
		HasDamagedID:         in.HasDamagedID,
		HasCompanyLicense:    in.HasCompanyLicense,
		HasOtherDocuments:    in.HasOtherDocuments,
		OfficerNotes:         in.OfficerNotes,
		Status:               in.Status,
		CardNumber:           in.CardNumber,
		OfficerSignature:     in.OfficerSignature,
	}
	if in.Children != nil {
		doc.Children = make([]model.TravelDocumentChild, 0, len(*in.Children))
		for _, c := range *in.Children {
			doc.Children = append(doc.Children, c.toModel())
		}
	}
	return doc
}

// documentView: документ с вычисляемыми полями для фронтенда.
type documentView struct {
	model.TravelDocument
	StatusDisplay string `json:"status_display"`
	StatusColor   string `json:"status_color"`
	ChildrenCount int    `json:"children_count"`
	CanBeApproved bool   `json:"can_be_approved"`
	CanBePrinted  bool   `json:"can_be_printed"`
}

func viewOf(d *model.TravelDocument) documentView {
	if d.Children == nil {
		d.Children = []model.TravelDocumentChild{}
	}
	return documentView{
		TravelDocument: *d,
		StatusDisplay:  d.Status.Label(),
		StatusColor:    d.Status.Color(),
		ChildrenCount:  d.ChildrenCount(),
		CanBeApproved:  d.CanBeApproved(),
		CanBePrinted:   d.CanBePrinted(),
	}
}

func viewsOf(docs []model.TravelDocument) []documentView {
	out := make([]documentView, 0, len(docs))
	for i := range docs {
		out = append(out, viewOf(&docs[i]))
	}
	return out
}

type listResponse[T any] struct {
	Count   int64 `json:"count"`
	Results []T   `json:"results"`
}

// searchRequest: фильтры поиска и экспорта документов.
type searchRequest struct {
	Query             string       `json:"query"`
	Region            string       `json:"region"`
	District          string       `json:"district"`
	Status            model.Status `json:"status"`
	DateFrom          Date         `json:"date_from"`
	DateTo            Date         `json:"date_to"`
	CreatedFrom       Date         `json:"created_from"`
	CreatedTo         Date         `json:"created_to"`
	FilledFrom        Date         `json:"filled_from"`
	FilledTo          Date         `json:"filled_to"`
	HasNotayo         *bool        `json:"has_notayo"`
	HasSponsorID      *bool        `json:"has_sponsor_id"`
	HasDamagedID      *bool        `json:"has_damaged_id"`
	HasCompanyLicense *bool        `json:"has_company_license"`
	HasOtherDocuments *bool        `json:"has_other_documents"`
	SortBy            string       `json:"sort_by"`
	Limit             int          `json:"limit"`
	Offset            int          `json:"offset"`
}

func (s *searchRequest) filter() repo.DocumentFilter {
	limit := s.Limit
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	return repo.DocumentFilter{
		Query:             s.Query,
		Region:            s.Region,
		District:          s.District,
		Status:            s.Status,
		DateFrom:          s.DateFrom.Time,
		DateTo:            s.DateTo.EndOfDay(),
		CreatedFrom:       s.CreatedFrom.Time,
		CreatedTo:         s.CreatedTo.EndOfDay(),
		FilledFrom:        s.FilledFrom.Time,
		FilledTo:          s.FilledTo.EndOfDay(),
		HasNotayo:         s.HasNotayo,
		HasSponsorID:      s.HasSponsorID,
		HasDamagedID:      s.HasDamagedID,
		HasCompanyLicense: s.HasCompanyLicense,
		HasOtherDocuments: s.HasOtherDocuments,
		SortBy:            s.SortBy,
		Limit:             limit,
		Offset:            s.Offset,
	}
}

// List обрабатывает GET /api/documents?search=&region=&status=&date_from=&date_to=&page=&page_size=
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := queryDate(r, "date_from")
	if err != nil {
		h.fail(w, r, "List", err)
		return
	}
	to, err := queryDate(r, "date_to")
	if err != nil {
		h.fail(w, r, "List", err)
		return
	}
	limit, offset := page(r)
	docs, total, err := h.svc.Search(r.Context(), repo.DocumentFilter{
		Query:       q.Get("search"),
		Region:      q.Get("region"),
		District:    q.Get("district"),
		Status:      model.Status(q.Get("status")),
		CreatedFrom: from.Time,
		CreatedTo:   to.EndOfDay(),
		SortBy:      q.Get("ordering"),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		h.fail(w, r, "List", err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[documentView]{Count: total, Results: viewsOf(docs)})
}

func (h *DocumentHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !h.decode(w, r, "Search", &req) {
		return
	}
	docs, total, err := h.svc.Search(r.Context(), req.filter())
	if err != nil {
		h.fail(w, r, "Search", err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[documentView]{Count: total, Results: viewsOf(docs)})
}

func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in documentInput
	if !h.decode(w, r, "Create", &in) {
		return
	}
	doc, err := h.svc.Create(r.Context(), in.toModel(), h.actor(r))
	if err != nil {
		h.fail(w, r, "Create", err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(doc))
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.fail(w, r, "Get", err)
		return
	}
	doc, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Get", err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(doc))
}

func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.fail(w, r, "Update", err)
		return
	}
	var in documentInput
	if !h.decode(w, r, "Update", &in) {
		return
	}
	doc, err := h.svc.Update(r.Context(), id, in.toModel(), in.Children != nil, h.actor(r))
	if err != nil {
		h.fail(w, r, "Update", err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(doc))
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.fail(w, r, "Delete", err)
		return
	}
	if err := h.svc.Delete(r.Context(), id, h.actor(r)); err != nil {
		h.fail(w, r, "Delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Approve", model.StatusApproved, "Document approved successfully")
}

func (h *DocumentHandler) Print(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Print", model.StatusPrinted, "Document marked as printed")
}

func (h *DocumentHandler) transition(w http.ResponseWriter, r *http.Request, op string, target model.Status, msg string) {
	id, err := urlID(r, "id")
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	doc, err := h.svc.Transition(r.Context(), id, target, h.actor(r))
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "document": viewOf(doc)})
}

func (h *DocumentHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.fail(w, r, "History", err)
		return
	}
	events, err := h.svc.History(r.Context(), id)
	if err != nil {
		h.fail(w, r, "History", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"document_id": id, "events": events})
}

type bulkRequest struct {
	DocumentIDs []uint                `json:"document_ids"`
	Operation   service.BulkOperation `json:"operation"`
}

func (h *DocumentHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if !h.decode(w, r, "Bulk", &req) {
		return
	}
	results, err := h.svc.Bulk(r.Context(), req.DocumentIDs, req.Operation, h.actor(r))
	if err != nil {
		h.fail(w, r, "Bulk", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

type exportRequest struct {
	Format      export.Format `json:"format"`
	DocumentIDs []uint        `json:"document_ids"`
	Filters     searchRequest `json:"filters"`
}

// Export обрабатывает POST /api/documents/export. Явный список id имеет приоритет над фильтрами.
func (h *DocumentHandler) Export(w http.ResponseWriter, r *http.Request) {
	req := exportRequest{Format: export.FormatCSV}
	if !h.decode(w, r, "Export", &req) {
		return
	}
	req.Format = export.Format(strings.ToLower(string(req.Format)))

	var docs []model.TravelDocument
	var err error
	if len(req.DocumentIDs) > 0 {
		docs, err = h.svc.ListByIDs(r.Context(), req.DocumentIDs)
	} else {
		f := req.Filters.filter()
		f.Limit, f.Offset = 0, 0
		docs, _, err = h.svc.Search(r.Context(), f)
	}
	if err != nil {
		h.fail(w, r, "Export", err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, req.Format, docs); err != nil {
		h.fail(w, r, "Export", err)
		return
	}
	contentType, _ := req.Format.ContentType()
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+req.Format.Filename(time.Now())+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *DocumentHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var in documentInput
	if !h.decode(w, r, "Validate", &in) {
		return
	}
	errs := h.svc.ValidateDraft(service.DraftInput{
		TravelDocument: *in.toModel(),
		SponsorID:      in.SponsorID,
		SponsorPhone:   in.SponsorPhone,
	})
	writeJSON(w, http.StatusOK, map[string]any{"valid": len(errs) == 0, "errors": errs})
}

func (h *DocumentHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Statistics(r.Context(), queryInt(r, "days", 0))
	if err != nil {
		h.fail(w, r, "Statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *DocumentHandler) ByRegion(w http.ResponseWriter, r *http.Request) {
	regions, err := h.svc.ByRegion(r.Context(), queryInt(r, "limit", 0))
	if err != nil {
		h.fail(w, r, "ByRegion", err)
		return
	}
	writeJSON(w, http.StatusOK, regions)
}

func (h *DocumentHandler) Recent(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.Recent(r.Context(), queryInt(r, "days", 0))
	if err != nil {
		h.fail(w, r, "Recent", err)
		return
	}
	writeJSON(w, http.StatusOK, viewsOf(docs))
}

func (h *DocumentHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.fail(w, r, "UploadPhoto", err)
		return
	}
	data, err := h.readPhoto(w, r)
	if err != nil {
		h.fail(w, r, "UploadPhoto", err)
		return
	}
	ref, err := h.svc.SetPhoto(r.Context(), id, data)
	if err != nil {
		h.fail(w, r, "UploadPhoto", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"photo": ref})
}

func (h *DocumentHandler) Photo(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.fail(w, r, "Photo", err)
		return
	}
	rc, err := h.svc.OpenPhoto(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Photo", err)
		return
	}
	h.streamPhoto(w, r, "Photo", rc)
}

func (h *DocumentHandler) AddChild(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.fail(w, r, "AddChild", err)
		return
	}
	var in childInput
	if !h.decode(w, r, "AddChild", &in) {
		return
	}
	c := in.toModel()
	child, err := h.svc.AddChild(r.Context(), id, &c)
	if err != nil {
		h.fail(w, r, "AddChild", err)
		return
	}
	writeJSON(w, http.StatusCreated, child)
}

func (h *DocumentHandler) RemoveChild(w http.ResponseWriter, r *http.Request) {
	id, childID, err := twoIDs(r, "id", "childID")
	if err != nil {
		h.fail(w, r, "RemoveChild", err)
		return
	}
	if err := h.svc.RemoveChild(r.Context(), id, childID); err != nil {
		h.fail(w, r, "RemoveChild", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) UploadChildPhoto(w http.ResponseWriter, r *http.Request) {
	id, childID, err := twoIDs(r, "id", "childID")
	if err != nil {
		h.fail(w, r, "UploadChildPhoto", err)
		return
	}
	data, err := h.readPhoto(w, r)
	if err != nil {
		h.fail(w, r, "UploadChildPhoto", err)
		return
	}
	ref, err := h.svc.SetChildPhoto(r.Context(), id, childID, data)
	if err != nil {
		h.fail(w, r, "UploadChildPhoto", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"photo": ref})
}

func twoIDs(r *http.Request, parent, child string) (uint, uint, error) {
	p, err := urlID(r, parent)
	if err != nil {
		return 0, 0, err
	}
	c, err := urlID(r, child)
	if err != nil {
		return 0, 0, err
	}
	return p, c, nil
}
