package patient

import (
	"time"

	"github.com/google/uuid"
)

// Record source tags shared by patients and clinical records.
const (
	SourceDocumentExtraction = "document_extraction"
	SourceManualEntry        = "manual_entry"
	SourceAIScribe           = "ai_scribe"
	SourceImported           = "imported"
)

// Patient maps to the patient table.
type Patient struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	Active                bool       `db:"active" json:"active"`
	IDNumber              *string    `db:"id_number" json:"id_number,omitempty"`
	FirstName             string     `db:"first_name" json:"first_name"`
	MiddleName            *string    `db:"middle_name" json:"middle_name,omitempty"`
	LastName              string     `db:"last_name" json:"last_name"`
	BirthDate             *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Gender                *string    `db:"gender" json:"gender,omitempty"`
	PhoneMobile           *string    `db:"phone_mobile" json:"phone_mobile,omitempty"`
	Email                 *string    `db:"email" json:"email,omitempty"`
	AddressLine1          *string    `db:"address_line1" json:"address_line1,omitempty"`
	City                  *string    `db:"city" json:"city,omitempty"`
	PostalCode            *string    `db:"postal_code" json:"postal_code,omitempty"`
	MedicalAidScheme      *string    `db:"medical_aid_scheme" json:"medical_aid_scheme,omitempty"`
	MedicalAidNumber      *string    `db:"medical_aid_number" json:"medical_aid_number,omitempty"`
	Source                string     `db:"source" json:"source"`
	CreatedFromDocumentID *uuid.UUID `db:"created_from_document_id" json:"created_from_document_id,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName returns "First Last" for similarity comparisons.
func (p *Patient) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
