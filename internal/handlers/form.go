package handlers

import (
	"net/http"

	"immigration/internal/model"
	"immigration/internal/repo"
	"immigration/internal/service"

	"github.com/go-chi/chi/v5"
)

// FormHandler обслуживает /api/forms/{kind} для degmada и kafiilka.
type FormHandler struct {
	*base
	svc *service.FormService
}

type memberInput struct {
	Name        string `json:"name"`
	Nationality string `json:"nationality"`
	BirthDate   Date   `json:"birth_date"`
	Phone       string `json:"phone"`
	IDNumber    string `json:"id_number"`
}

func (m memberInput) toModel() model.SponsorshipFormMember {
	return model.SponsorshipFormMember{
		Name:        m.Name,
		Nationality: m.Nationality,
		BirthDate:   m.BirthDate.Time,
		Phone:       m.Phone,
		IDNumber:    m.IDNumber,
	}
}

type formInput struct {
	Reference               string            `json:"reference"`
	Date                    Date              `json:"date"`
	Gobolka                 string            `json:"gobolka"`
	Degmada                 string            `json:"degmada"`
	CompanyName             string            `json:"company_name"`
	CompanyLicense          string            `json:"company_license"`
	EstablishmentPeriod     string            `json:"establishment_period"`
	WorkingEmployees        *int              `json:"working_employees"`
	CompanyRegion           string            `json:"company_region"`
	CompanyDistrict         string            `json:"company_district"`
	SponsorType             model.SponsorType `json:"sponsor_type"`
	SponsorName             string            `json:"sponsor_name"`
	SponsorID               string            `json:"sponsor_id"`
	SponsorPhone            string            `json:"sponsor_phone"`
	SponsorContact          string            `json:"sponsor_contact"`
	SponsorAddress          string            `json:"sponsor_address"`
	PledgeName              string            `json:"pledge_name"`
	PledgeSignature         string            `json:"pledge_signature"`
	DistrictLeaderName      string            `json:"district_leader_name"`
	DistrictLeaderSignature string            `json:"district_leader_signature"`
	FilledDate              Date              `json:"filled_date"`
	AttachmentTypes         string            `json:"attachment_types"`
	SpecialNotes            string            `json:"special_notes"`
	Members                 *[]memberInput    `json:"members"`
}

func (in *formInput) toModel() *model.SponsorshipForm {
	f := &model.SponsorshipForm{
		Reference:               in.Reference,
		Date:                    in.Date.Time,
		Gobolka:                 in.Gobolka,
		Degmada:                 in.Degmada,
		CompanyName:             in.CompanyName,
		CompanyLicense:          in.CompanyLicense,
		EstablishmentPeriod:     in.EstablishmentPeriod,
		WorkingEmployees:        in.WorkingEmployees,
		CompanyRegion:           in.CompanyRegion,
		CompanyDistrict:         in.CompanyDistrict,
		SponsorType:             in.SponsorType,
		SponsorName:             in.SponsorName,
		SponsorID:               in.SponsorID,
		SponsorPhone:            in.SponsorPhone,
		SponsorContact:          in.SponsorContact,
		SponsorAddress:          in.SponsorAddress,
		PledgeName:              in.PledgeName,
		PledgeSignature:         in.PledgeSignature,
		DistrictLeaderName:      in.DistrictLeaderName,
		DistrictLeaderSignature: in.DistrictLeaderSignature,
		FilledDate:              in.FilledDate.Time,
		AttachmentTypes:         in.AttachmentTypes,
		SpecialNotes:            in.SpecialNotes,
	}
	if in.Members != nil {
		f.Members = make([]model.SponsorshipFormMember, 0, len(*in.Members))
		for _, m := range *in.Members {
			f.Members = append(f.Members, m.toModel())
		}
	}
	return f
}

type formView struct {
	model.SponsorshipForm
	MemberCount        int    `json:"member_count"`
	SponsorTypeDisplay string `json:"sponsor_type_display,omitempty"`
	IsComplete         bool   `json:"is_complete"`
}

func formViewOf(f *model.SponsorshipForm) formView {
	if f.Members == nil {
		f.Members = []model.SponsorshipFormMember{}
	}
	return formView{
		SponsorshipForm:    *f,
		MemberCount:        f.MemberCount(),
		SponsorTypeDisplay: f.SponsorType.Label(),
		IsComplete:         f.IsComplete(),
	}
}

func kindOf(r *http.Request) model.FormKind {
	return model.FormKind(chi.URLParam(r, "kind"))
}

// List обрабатывает GET /api/forms/{kind}?search=&sponsor_type=&date_from=&date_to=&page=&page_size=
func (h *FormHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := queryDate(r, "date_from")
	if err != nil {
		h.fail(w, r, "FormList", err)
		return
	}
	to, err := queryDate(r, "date_to")
	if err != nil {
		h.fail(w, r, "FormList", err)
		return
	}
	limit, offset := page(r)
	forms, total, err := h.svc.List(r.Context(), repo.FormFilter{
		Kind:        kindOf(r),
		Query:       q.Get("search"),
		SponsorType: model.SponsorType(q.Get("sponsor_type")),
		CreatedFrom: from.Time,
		CreatedTo:   to.EndOfDay(),
		SortBy:      q.Get("ordering"),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		h.fail(w, r, "FormList", err)
		return
	}
	views := make([]formView, 0, len(forms))
	for i := range forms {
		views = append(views, formViewOf(&forms[i]))
	}
	writeJSON(w, http.StatusOK, listResponse[formView]{Count: total, Results: views})
}

func (h *FormHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in formInput
	if !h.decode(w, r, "FormCreate", &in) {
		return
	}
	f, err := h.svc.Create(r.Context(), kindOf(r), in.toModel())
	if err != nil {
		h.fail(w, r, "FormCreate", err)
		return
	}
	writeJSON(w, http.StatusCreated, formViewOf(f))
}

func (h *FormHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.fail(w, r, "FormGet", err)
		return
	}
	f, err := h.svc.Get(r.Context(), kindOf(r), id)
	if err != nil {
		h.fail(w, r, "FormGet", err)
		return
	}
	writeJSON(w, http.StatusOK, formViewOf(f))
}

func (h *FormHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.fail(w, r, "FormUpdate", err)
		return
	}
	var in formInput
	if !h.decode(w, r, "FormUpdate", &in) {
		return
	}
	f, err := h.svc.Update(r.Context(), kindOf(r), id, in.toModel(), in.Members != nil)
	if err != nil {
		h.fail(w, r, "FormUpdate", err)
		return
	}
	writeJSON(w, http.StatusOK, formViewOf(f))
}

func (h *FormHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.fail(w, r, "FormDelete", err)
		return
	}
	if err := h.svc.Delete(r.Context(), kindOf(r), id); err != nil {
		h.fail(w, r, "FormDelete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FormHandler) Validate(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.fail(w, r, "FormValidate", err)
		return
	}
	res, err := h.svc.ValidateCompletion(r.Context(), kindOf(r), id)
	if err != nil {
		h.fail(w, r, "FormValidate", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *FormHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Statistics(r.Context(), kindOf(r), queryInt(r, "days", 0))
	if err != nil {
		h.fail(w, r, "FormStatistics", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *FormHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.fail(w, r, "AddMember", err)
		return
	}
	var in memberInput
	if !h.decode(w, r, "AddMember", &in) {
		return
	}
	m := in.toModel()
	member, err := h.svc.AddMember(r.Context(), kindOf(r), id, &m)
	if err != nil {
		h.fail(w, r, "AddMember", err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (h *FormHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	id, memberID, err := twoIDs(r, "id", "memberID")
	if err != nil {
		h.fail(w, r, "RemoveMember", err)
		return
	}
	if err := h.svc.RemoveMember(r.Context(), kindOf(r), id, memberID); err != nil {
		h.fail(w, r, "RemoveMember", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FormHandler) UploadMemberPhoto(w http.ResponseWriter, r *http.Request) {
	id, memberID, err := twoIDs(r, "id", "memberID")
	if err != nil {
		h.fail(w, r, "UploadMemberPhoto", err)
		return
	}
	data, err := h.readPhoto(w, r)
	if err != nil {
		h.fail(w, r, "UploadMemberPhoto", err)
		return
	}
	ref, err := h.svc.SetMemberPhoto(r.Context(), kindOf(r), id, memberID, data)
	if err != nil {
		h.fail(w, r, "UploadMemberPhoto", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"photo": ref})
}

func (h *FormHandler) MemberPhoto(w http.ResponseWriter, r *http.Request) {
	id, memberID, err := twoIDs(r, "id", "memberID")
	if err != nil {
		h.fail(w, r, "MemberPhoto", err)
		return
	}
	rc, err := h.svc.OpenMemberPhoto(r.Context(), kindOf(r), id, memberID)
	if err != nil {
		h.fail(w, r, "MemberPhoto", err)
		return
	}
	h.streamPhoto(w, r, "MemberPhoto", rc)
}
