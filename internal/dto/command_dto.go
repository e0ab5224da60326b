// FILE: internal/dto/command_dto.go
package dto

import (
	"github.com/google/uuid"
)

// --- Identity command DTOs ---

type SignInWithEmailPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SignUpWithEmailPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type VerifyEmailPayload struct {
	Email string `json:"email" validate:"required,email"`
	Token string `json:"token" validate:"required"`
}

type GoogleSignInPayload struct {
	IdToken string `json:"idToken" validate:"required"`
	Nonce   string `json:"nonce"`
}

// GoogleAuthURLDTO is handed to the surface that launches the interactive
// flow; nonce must round-trip into the id_token exchange.
type GoogleAuthURLDTO struct {
	Url   string `json:"url"`
	State string `json:"state"`
	Nonce string `json:"nonce"`
}

type SessionDTO struct {
	AccessToken  string  `json:"accessToken"`
	RefreshToken string  `json:"refreshToken,omitempty"`
	ExpiresAt    int64   `json:"expiresAt"`
	User         UserDTO `json:"user"`
}

type UserDTO struct {
	Id    string `json:"id"`
	Email string `json:"email"`
}

// --- Dataset command DTOs ---

type CreateDatasetPayload struct {
	DatasetName string `json:"datasetName" validate:"required"`
}

type SelectDatasetPayload struct {
	// Dataset is the dataset id, not the display name.
	Dataset uuid.UUID `json:"dataset" validate:"required"`
}

type DatasetDTO struct {
	Id   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// --- Capture command DTOs ---

type AddDataPointPayload struct {
	Question string `json:"question" validate:"required"`
	Answer   string `json:"answer"`
	// Dataset overrides the persisted selection when present.
	Dataset *uuid.UUID `json:"dataset,omitempty"`
}

type UpdateDataPointPayload struct {
	Question string     `json:"question" validate:"required"`
	Answer   string     `json:"answer"`
	Dataset  *uuid.UUID `json:"dataset,omitempty"`
}

type TriggerCapturePayload struct {
	SelectionText string `json:"selectionText"`
}
