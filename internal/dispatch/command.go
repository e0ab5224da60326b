// Package dispatch is the central entry point for every cross-surface
// request. Commands form a closed set of typed variants; an unrecognized
// type is rejected with a structured error instead of silently falling
// through.
package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/KayTeo/mimir-extension/internal/dto"
)

type Type string

const (
	TypeSignInWithEmail     Type = "SIGN_IN_WITH_EMAIL"
	TypeSignUpWithEmail     Type = "SIGN_UP_WITH_EMAIL"
	TypeVerifyEmail         Type = "VERIFY_EMAIL"
	TypeSignOut             Type = "SIGN_OUT"
	TypeGetGoogleAuthURL    Type = "GET_GOOGLE_AUTH_URL"
	TypeGoogleSignIn        Type = "GOOGLE_SIGN_IN"
	TypeGetCurrentUser      Type = "GET_CURRENT_USER"
	TypeGetDatasetNamesList Type = "GET_DATASET_NAMES_LIST"
	TypeCreateDataset       Type = "CREATE_DATASET"
	TypeSelectDataset       Type = "SELECT_DATASET"
	TypeAddDataPoint        Type = "ADD_DATA_POINT"
	TypeUpdateDataPoint     Type = "UPDATE_DATA_POINT"
	TypeTriggerCapture      Type = "TRIGGER_CAPTURE"
	TypeReauthRequired      Type = "REAUTH_REQUIRED"
)

// Command is the closed variant set. Only types in this package implement it.
type Command interface {
	CommandType() Type
}

type SignInWithEmail struct{ dto.SignInWithEmailPayload }
type SignUpWithEmail struct{ dto.SignUpWithEmailPayload }
type VerifyEmail struct{ dto.VerifyEmailPayload }
type SignOut struct{}
type GetGoogleAuthURL struct{}
type GoogleSignIn struct{ dto.GoogleSignInPayload }
type GetCurrentUser struct{}
type GetDatasetNamesList struct{}
type CreateDataset struct{ dto.CreateDatasetPayload }
type SelectDataset struct{ dto.SelectDatasetPayload }
type AddDataPoint struct{ dto.AddDataPointPayload }
type UpdateDataPoint struct{ dto.UpdateDataPointPayload }
type TriggerCapture struct{ dto.TriggerCapturePayload }
type ReauthRequired struct{}

func (SignInWithEmail) CommandType() Type     { return TypeSignInWithEmail }
func (SignUpWithEmail) CommandType() Type     { return TypeSignUpWithEmail }
func (VerifyEmail) CommandType() Type         { return TypeVerifyEmail }
func (SignOut) CommandType() Type             { return TypeSignOut }
func (GetGoogleAuthURL) CommandType() Type    { return TypeGetGoogleAuthURL }
func (GoogleSignIn) CommandType() Type        { return TypeGoogleSignIn }
func (GetCurrentUser) CommandType() Type      { return TypeGetCurrentUser }
func (GetDatasetNamesList) CommandType() Type { return TypeGetDatasetNamesList }
func (CreateDataset) CommandType() Type       { return TypeCreateDataset }
func (SelectDataset) CommandType() Type       { return TypeSelectDataset }
func (AddDataPoint) CommandType() Type        { return TypeAddDataPoint }
func (UpdateDataPoint) CommandType() Type     { return TypeUpdateDataPoint }
func (TriggerCapture) CommandType() Type      { return TypeTriggerCapture }
func (ReauthRequired) CommandType() Type      { return TypeReauthRequired }

// UnknownTypeError rejects a request whose type is outside the command set.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unrecognized command type %q", e.Type)
}

// ParseCommand decodes a raw {type, ...fields} envelope into its typed
// variant.
func ParseCommand(raw []byte) (Command, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("malformed command envelope: %w", err)
	}

	decode := func(cmd Command) (Command, error) {
		if err := json.Unmarshal(raw, cmd); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", envelope.Type, err)
		}
		return cmd, nil
	}

	switch Type(envelope.Type) {
	case TypeSignInWithEmail:
		return decode(&SignInWithEmail{})
	case TypeSignUpWithEmail:
		return decode(&SignUpWithEmail{})
	case TypeVerifyEmail:
		return decode(&VerifyEmail{})
	case TypeSignOut:
		return &SignOut{}, nil
	case TypeGetGoogleAuthURL:
		return &GetGoogleAuthURL{}, nil
	case TypeGoogleSignIn:
		return decode(&GoogleSignIn{})
	case TypeGetCurrentUser:
		return &GetCurrentUser{}, nil
	case TypeGetDatasetNamesList:
		return &GetDatasetNamesList{}, nil
	case TypeCreateDataset:
		return decode(&CreateDataset{})
	case TypeSelectDataset:
		return decode(&SelectDataset{})
	case TypeAddDataPoint:
		return decode(&AddDataPoint{})
	case TypeUpdateDataPoint:
		return decode(&UpdateDataPoint{})
	case TypeTriggerCapture:
		return decode(&TriggerCapture{})
	case TypeReauthRequired:
		return &ReauthRequired{}, nil
	default:
		return nil, &UnknownTypeError{Type: envelope.Type}
	}
}
