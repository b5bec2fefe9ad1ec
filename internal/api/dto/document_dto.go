package dto

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

type UploadResponse struct {
	DocumentID   string `json:"document_id"`
	Filename     string `json:"filename"`
	ContentType  string `json:"content_type"`
	DeclaredType string `json:"declared_type,omitempty"`
	UploadedAt   string `json:"uploaded_at"`
}

type DownloadResponse struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	URL        string `json:"url"`
}

type ProcessOptions struct {
	DetectFace    bool   `json:"detect_face"`
	SelfieID      string `json:"selfie_id,omitempty"`
	AllowDegraded bool   `json:"allow_degraded,omitempty"`
}

type ProcessRequest struct {
	DocumentID   string         `json:"document_id" binding:"required"`
	DocumentType string         `json:"document_type" binding:"required"`
	Options      ProcessOptions `json:"options"`
}

type ProcessResponse struct {
	JobID      string `json:"job_id"`
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
}

type StatusResponse struct {
	JobID       string `json:"job_id"`
	DocumentID  string `json:"document_id"`
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	Message     string `json:"message"`
	Error       string `json:"error,omitempty"`
	CreatedAt   string `json:"created_at"`
	StartedAt   string `json:"started_at,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
}

type ValidateRequest struct {
	DocumentType string            `json:"document_type" binding:"required"`
	Fields       map[string]string `json:"fields" binding:"required"`
}

type FaceMatchRequest struct {
	DocumentID string `json:"document_id" binding:"required"`
	SelfieID   string `json:"selfie_id" binding:"required"`
}

type DocumentTypeInfo struct {
	Type           string   `json:"type"`
	RequiredFields []string `json:"required_fields"`
	OptionalFields []string `json:"optional_fields,omitempty"`
	RequiresFace   bool     `json:"requires_face"`
}

type TypesResponse struct {
	Types []DocumentTypeInfo `json:"types"`
}
