package model

import "time"

// FormKind distinguishes the two sponsorship form variants.
type FormKind string

const (
	// FormDegmada is the district-level form.
	FormDegmada FormKind = "degmada"
	// FormKafiilka is the individual/group sponsor form.
	FormKafiilka FormKind = "kafiilka"
)

var FormKinds = []FormKind{FormDegmada, FormKafiilka}

func (k FormKind) Valid() bool { return k == FormDegmada || k == FormKafiilka }

// Prefix is the reference prefix of the variant.
func (k FormKind) Prefix() string {
	switch k {
	case FormDegmada:
		return "DEG"
	case FormKafiilka:
		return "KAF"
	}
	return "FRM"
}

// PhotoDir is the media sub-directory holding member photos of the variant.
func (k FormKind) PhotoDir() string {
	return string(k) + "_photos"
}

// SponsorType classifies the sponsor of a kafiilka form.
type SponsorType string

const (
	SponsorIndividual SponsorType = "SHASI"
	SponsorGroup      SponsorType = "WADAR"
)

func (t SponsorType) Label() string {
	switch t {
	case SponsorIndividual:
		return "Individual"
	case SponsorGroup:
		return "Group"
	}
	return ""
}

// SponsorshipForm is a company/sponsor registration. Both variants share the
// table; SponsorType is only meaningful for kafiilka forms.
type SponsorshipForm struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Kind      FormKind   `gorm:"size:16;not null;index" json:"kind"`
	Reference string     `gorm:"size:100;not null;uniqueIndex" json:"reference"`
	Date      *time.Time `gorm:"index" json:"date"`
	Gobolka   string     `gorm:"size:100" json:"gobolka"`
	Degmada   string     `gorm:"size:100" json:"degmada"`

	// Section A: company
	CompanyName         string `gorm:"size:200;index" json:"company_name"`
	CompanyLicense      string `gorm:"size:100" json:"company_license"`
	EstablishmentPeriod string `gorm:"size:100" json:"establishment_period"`
	WorkingEmployees    *int   `json:"working_employees"`
	CompanyRegion       string `gorm:"size:100" json:"company_region"`
	CompanyDistrict     string `gorm:"size:100" json:"company_district"`

	// Section B: sponsor
	SponsorType    SponsorType `gorm:"size:10;index" json:"sponsor_type,omitempty"`
	SponsorName    string      `gorm:"size:200" json:"sponsor_name"`
	SponsorID      string      `gorm:"size:50" json:"sponsor_id"`
	SponsorPhone   string      `gorm:"size:20" json:"sponsor_phone"`
	SponsorContact string      `gorm:"size:20" json:"sponsor_contact"`
	SponsorAddress string      `gorm:"type:text" json:"sponsor_address"`

	// Section C: approvals
	PledgeName              string     `gorm:"size:200" json:"pledge_name"`
	PledgeSignature         string     `gorm:"size:200" json:"pledge_signature"`
	DistrictLeaderName      string     `gorm:"size:200" json:"district_leader_name"`
	DistrictLeaderSignature string     `gorm:"size:200" json:"district_leader_signature"`
	FilledDate              *time.Time `json:"filled_date"`
	AttachmentTypes         string     `gorm:"size:200" json:"attachment_types"`
	SpecialNotes            string     `gorm:"type:text" json:"special_notes"`

	Members []SponsorshipFormMember `gorm:"foreignKey:FormID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"members"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (f *SponsorshipForm) MemberCount() int { return len(f.Members) }

func (f *SponsorshipForm) IsIndividualSponsor() bool { return f.SponsorType == SponsorIndividual }

func (f *SponsorshipForm) IsGroupSponsor() bool { return f.SponsorType == SponsorGroup }

// IsComplete reports whether the mandatory names of all sections are filled in.
func (f *SponsorshipForm) IsComplete() bool {
	return f.CompanyName != "" && f.SponsorName != "" && f.PledgeName != "" && f.DistrictLeaderName != ""
}

func (f *SponsorshipForm) PhotoRefs() []string {
	var refs []string
	for i := range f.Members {
		if f.Members[i].PhotoRef != "" {
			refs = append(refs, f.Members[i].PhotoRef)
		}
	}
	return refs
}

// SponsorshipFormMember is a named person attached to a sponsorship form.
type SponsorshipFormMember struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	FormID      uint       `gorm:"not null;index" json:"form_id"`
	Name        string     `gorm:"size:200;not null" json:"name"`
	Nationality string     `gorm:"size:100" json:"nationality"`
	BirthDate   *time.Time `json:"birth_date"`
	Phone       string     `gorm:"size:20" json:"phone"`
	IDNumber    string     `gorm:"size:50" json:"id_number"`
	PhotoRef    string     `gorm:"size:255" json:"photo,omitempty"`
}

func (m *SponsorshipFormMember) Age(now time.Time) *int {
	return ageOf(m.BirthDate, now)
}
