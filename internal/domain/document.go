package domain

import "time"

// DocumentType identifies a supported document class.
type DocumentType string

const (
	TypeAadhaar        DocumentType = "aadhaar"
	TypePAN            DocumentType = "pan"
	TypeDrivingLicense DocumentType = "driving_license"
	TypePassport       DocumentType = "passport"
	TypeVoterID        DocumentType = "voter_id"
	TypeBill           DocumentType = "bill"
)

// SupportedTypes lists every document type the pipeline accepts, in a stable order.
var SupportedTypes = []DocumentType{
	TypeAadhaar,
	TypePAN,
	TypeDrivingLicense,
	TypePassport,
	TypeVoterID,
	TypeBill,
}

// IsSupported reports whether t is a known document type.
func IsSupported(t DocumentType) bool {
	for _, s := range SupportedTypes {
		if s == t {
			return true
		}
	}
	return false
}

// RequiresFace reports whether documents of this type carry a holder photo.
// Bills and invoices have no face region, so the face stages are skipped for them.
func (t DocumentType) RequiresFace() bool {
	return t != TypeBill
}

// Orientation describes the dominant layout of a document type, used by the
// heuristic face-region fallback.
type Orientation string

const (
	OrientationLandscape Orientation = "landscape"
	OrientationPortrait  Orientation = "portrait"
)

// Layout returns the expected orientation for the document type.
func (t DocumentType) Layout() Orientation {
	if t == TypePassport {
		return OrientationPortrait
	}
	return OrientationLandscape
}

// Document is an uploaded image reference. Immutable after creation.
type Document struct {
	DocumentID   string    `db:"document_id"`
	Filename     string    `db:"filename"`
	ObjectName   string    `db:"object_name"`
	ContentType  string    `db:"content_type"`
	DeclaredType string    `db:"declared_type"`
	UploadedAt   time.Time `db:"uploaded_at"`
}
