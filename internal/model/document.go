package model

import (
	"time"

	"immigration/internal/validate"
)

// TravelDocument is a single applicant's travel authorization record.
type TravelDocument struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	DocumentNumber string     `gorm:"size:50;not null;uniqueIndex" json:"document_number"`
	RegionOffice   string     `gorm:"size:100" json:"region_office"`
	Date           *time.Time `gorm:"index" json:"date"`

	// Personal information
	FullName             string     `gorm:"size:200" json:"full_name"`
	MotherName           string     `gorm:"size:200" json:"mother_name"`
	BirthDate            *time.Time `json:"birth_date"`
	BirthPlace           string     `gorm:"size:100" json:"birth_place"`
	IdentificationNumber string     `gorm:"size:50" json:"identification_number"`
	Region               string     `gorm:"size:100;index" json:"region"`
	District             string     `gorm:"size:100" json:"district"`
	Workplace            string     `gorm:"size:100" json:"workplace"`
	SponsorName          string     `gorm:"size:200" json:"sponsor_name"`

	// Contact information
	CitizenCard   string `gorm:"size:50" json:"citizen_card"`
	PhoneNumber   string `gorm:"size:20" json:"phone_number"`
	Nationality   string `gorm:"size:100" json:"nationality"`
	JobType       string `gorm:"size:100" json:"job_type"`
	LicenseNumber string `gorm:"size:50" json:"license_number"`
	ContactNumber string `gorm:"size:20" json:"contact_number"`

	// Immigration officer section
	FilledDate        *time.Time `json:"filled_date"`
	HasNotayo         bool       `gorm:"not null;default:false" json:"has_notayo"`
	HasSponsorID      bool       `gorm:"not null;default:false" json:"has_sponsor_id"`
	HasDamagedID      bool       `gorm:"not null;default:false" json:"has_damaged_id"`
	HasCompanyLicense bool       `gorm:"not null;default:false" json:"has_company_license"`
	HasOtherDocuments bool       `gorm:"not null;default:false" json:"has_other_documents"`
	OfficerNotes      string     `gorm:"type:text" json:"immigration_officer_notes"`
	Status            Status     `gorm:"size:10;not null;index" json:"status"`
	CardNumber        string     `gorm:"size:50" json:"card_number"`
	OfficerSignature  string     `gorm:"size:200" json:"officer_signature"`

	PhotoRef string `gorm:"size:255" json:"photo,omitempty"`

	CreatedByID *uint `gorm:"index" json:"created_by"`
	CreatedBy   *User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`

	Children []TravelDocumentChild `gorm:"foreignKey:DocumentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"children"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CanBeApproved reports whether an officer may approve the document: it must
// still be filled and carry at least one supporting document.
func (d *TravelDocument) CanBeApproved() bool {
	return d.Status == StatusFilled &&
		(d.HasNotayo || d.HasSponsorID || d.HasCompanyLicense || d.HasDamagedID)
}

func (d *TravelDocument) CanBePrinted() bool { return d.Status == StatusApproved }

func (d *TravelDocument) ChildrenCount() int { return len(d.Children) }

// PhotoRefs returns the stored photo references of the document and its children.
func (d *TravelDocument) PhotoRefs() []string {
	var refs []string
	if d.PhotoRef != "" {
		refs = append(refs, d.PhotoRef)
	}
	for i := range d.Children {
		if d.Children[i].PhotoRef != "" {
			refs = append(refs, d.Children[i].PhotoRef)
		}
	}
	return refs
}

// TravelDocumentChild is a dependent listed on the applicant's document.
type TravelDocumentChild struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	DocumentID uint       `gorm:"not null;index" json:"document_id"`
	Name       string     `gorm:"size:200;not null" json:"name"`
	BirthDate  *time.Time `json:"birth_date"`
	BirthPlace string     `gorm:"size:100" json:"birth_place"`
	PhotoRef   string     `gorm:"size:255" json:"photo,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Age returns the completed years at now, or nil without a birth date.
func (c *TravelDocumentChild) Age(now time.Time) *int {
	return ageOf(c.BirthDate, now)
}

func ageOf(birth *time.Time, now time.Time) *int {
	if birth == nil {
		return nil
	}
	a := validate.Age(*birth, now)
	return &a
}
