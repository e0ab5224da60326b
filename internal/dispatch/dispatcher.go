package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/KayTeo/mimir-extension/internal/capture"
	"github.com/KayTeo/mimir-extension/internal/dto"
	"github.com/KayTeo/mimir-extension/internal/errs"
	"github.com/KayTeo/mimir-extension/internal/model"
	"github.com/KayTeo/mimir-extension/internal/pkg/logger"
	"github.com/KayTeo/mimir-extension/internal/service"
	"github.com/KayTeo/mimir-extension/internal/statestore"
	"github.com/KayTeo/mimir-extension/pkg/events"
	"github.com/KayTeo/mimir-extension/pkg/identity"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Delivery retry while the dispatcher is not yet started: a small fixed
// number of attempts with fixed backoff, then a structured failure.
const (
	readyAttempts = 5
	readyBackoff  = 200 * time.Millisecond
)

type IDispatcher interface {
	// Start marks the dispatcher ready to receive commands.
	Start()

	// Submit parses and routes one raw command envelope. The returned
	// responder resolves exactly once, possibly after Submit returns.
	Submit(ctx context.Context, raw []byte) *Responder

	// Dispatch routes an already-parsed command into the given responder.
	Dispatch(ctx context.Context, cmd Command, r *Responder)
}

// GoogleAuthConfig carries the OAuth client settings for building the
// interactive sign-in URL. A zero ClientID means Google sign-in is off.
type GoogleAuthConfig struct {
	ClientID    string
	RedirectURL string
}

type dispatcher struct {
	sessionService   service.ISessionService
	gateway          service.IStoreGatewayService
	machine          *capture.Machine
	stateStore       statestore.Store
	publisherService service.IPublisherService
	googleAuth       GoogleAuthConfig
	validate         *validator.Validate
	logger           logger.ILogger

	started atomic.Bool
}

func NewDispatcher(
	sessionService service.ISessionService,
	gateway service.IStoreGatewayService,
	machine *capture.Machine,
	stateStore statestore.Store,
	publisherService service.IPublisherService,
	googleAuth GoogleAuthConfig,
	log logger.ILogger,
) IDispatcher {
	return &dispatcher{
		sessionService:   sessionService,
		gateway:          gateway,
		machine:          machine,
		stateStore:       stateStore,
		publisherService: publisherService,
		googleAuth:       googleAuth,
		validate:         validator.New(),
		logger:           log,
	}
}

func (d *dispatcher) Start() {
	d.started.Store(true)
}

func (d *dispatcher) Submit(ctx context.Context, raw []byte) *Responder {
	responder := NewResponder()

	cmd, err := ParseCommand(raw)
	if err != nil {
		responder.Resolve(ErrorResponse(err))
		return responder
	}

	d.Dispatch(ctx, cmd, responder)
	return responder
}

func (d *dispatcher) Dispatch(ctx context.Context, cmd Command, r *Responder) {
	// Long-idle sessions self-heal: every command opportunistically kicks a
	// restore without blocking its own handling on the outcome.
	go d.sessionService.RestoreSession(context.WithoutCancel(ctx))

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				d.logger.Error("Dispatcher", "Handler panicked", map[string]interface{}{
					"type":  string(cmd.CommandType()),
					"panic": fmt.Sprint(rec),
				})
				r.Resolve(ErrorResponse(fmt.Errorf("internal error handling %s", cmd.CommandType())))
			}
		}()

		if !d.awaitReady() {
			r.Resolve(ErrorResponse(fmt.Errorf("dispatcher not ready")))
			return
		}

		if err := d.validatePayload(cmd); err != nil {
			r.Resolve(ErrorResponse(err))
			return
		}

		r.Resolve(d.handle(ctx, cmd))
	}()
}

func (d *dispatcher) awaitReady() bool {
	for attempt := 0; attempt < readyAttempts; attempt++ {
		if d.started.Load() {
			return true
		}
		time.Sleep(readyBackoff)
	}
	return d.started.Load()
}

func (d *dispatcher) validatePayload(cmd Command) error {
	var payload interface{}
	switch c := cmd.(type) {
	case *SignInWithEmail:
		payload = c.SignInWithEmailPayload
	case *SignUpWithEmail:
		payload = c.SignUpWithEmailPayload
	case *VerifyEmail:
		payload = c.VerifyEmailPayload
	case *GoogleSignIn:
		payload = c.GoogleSignInPayload
	case *CreateDataset:
		payload = c.CreateDatasetPayload
	case *SelectDataset:
		payload = c.SelectDatasetPayload
	case *AddDataPoint:
		payload = c.AddDataPointPayload
	case *UpdateDataPoint:
		payload = c.UpdateDataPointPayload
	default:
		return nil
	}

	if err := d.validate.Struct(payload); err != nil {
		if fieldErrors, ok := err.(validator.ValidationErrors); ok && len(fieldErrors) > 0 {
			first := fieldErrors[0]
			return errs.NewValidationError(first.Field(), "failed "+first.Tag()+" validation")
		}
		return err
	}
	return nil
}

func (d *dispatcher) handle(ctx context.Context, cmd Command) Response {
	switch c := cmd.(type) {
	case *SignInWithEmail:
		session, err := d.sessionService.SignInWithEmail(ctx, c.Email, c.Password)
		if err != nil {
			return ErrorResponse(err)
		}
		return DataResponse(sessionDTO(session))

	case *SignUpWithEmail:
		session, err := d.sessionService.SignUpWithEmail(ctx, c.Email, c.Password)
		if err != nil {
			return ErrorResponse(err)
		}
		return DataResponse(sessionDTO(session))

	case *VerifyEmail:
		session, err := d.sessionService.VerifyEmail(ctx, c.Email, c.Token)
		if err != nil {
			return ErrorResponse(err)
		}
		return DataResponse(sessionDTO(session))

	case *SignOut:
		return ErrorOnly(d.sessionService.SignOut(ctx))

	case *GetGoogleAuthURL:
		if d.googleAuth.ClientID == "" {
			return ErrorResponse(&errs.AuthError{Message: "google sign-in is not configured"})
		}
		state := uuid.New().String()
		nonce := uuid.New().String()
		url := identity.GoogleAuthURL(d.googleAuth.ClientID, d.googleAuth.RedirectURL, state, nonce)
		return DataResponse(dto.GoogleAuthURLDTO{Url: url, State: state, Nonce: nonce})

	case *GoogleSignIn:
		session, err := d.sessionService.SignInWithGoogle(ctx, c.IdToken)
		if err != nil {
			return ErrorResponse(err)
		}
		return DataResponse(sessionDTO(session))

	case *GetCurrentUser:
		user, err := d.sessionService.GetCurrentUser(ctx)
		if err != nil {
			return Response{"user": nil, "error": errorBody(err)}
		}
		return UserResponse(dto.UserDTO{Id: user.Id, Email: user.Email})

	case *GetDatasetNamesList:
		return d.handleListDatasets(ctx)

	case *CreateDataset:
		return d.handleCreateDataset(ctx, c)

	case *SelectDataset:
		return d.handleSelectDataset(ctx, c)

	case *AddDataPoint:
		if _, err := d.machine.Add(ctx, c.Question, c.Answer, c.Dataset); err != nil {
			return ErrorResponse(err)
		}
		return DataResponse("success")

	case *UpdateDataPoint:
		if err := d.machine.Update(ctx, c.Question, c.Answer, c.Dataset); err != nil {
			return ErrorResponse(err)
		}
		return DataResponse("success")

	case *TriggerCapture:
		if err := d.machine.HandleTrigger(ctx, c.SelectionText); err != nil {
			return ErrorResponse(err)
		}
		return DataResponse(nil)

	case *ReauthRequired:
		return ErrorOnly(d.sessionService.ClearCredentials(ctx))

	default:
		return ErrorResponse(&UnknownTypeError{Type: string(cmd.CommandType())})
	}
}

func (d *dispatcher) handleListDatasets(ctx context.Context) Response {
	owner, err := d.currentOwner(ctx)
	if err != nil {
		return ErrorResponse(err)
	}

	datasets, err := d.gateway.ListDatasets(ctx, owner)
	if err != nil {
		return ErrorResponse(err)
	}

	result := make([]dto.DatasetDTO, 0, len(datasets))
	for _, dataset := range datasets {
		result = append(result, dto.DatasetDTO{Id: dataset.Id, Name: dataset.Name})
	}
	return DataResponse(result)
}

func (d *dispatcher) handleCreateDataset(ctx context.Context, c *CreateDataset) Response {
	owner, err := d.currentOwner(ctx)
	if err != nil {
		return ErrorResponse(err)
	}

	dataset, err := d.gateway.CreateDataset(ctx, owner, c.DatasetName)
	if err != nil {
		return ErrorResponse(err)
	}

	event := events.NewDatasetCreated(dataset.Id.String(), dataset.Name, owner.String())
	if pubErr := d.publisherService.PublishDomainEvent(ctx, event); pubErr != nil {
		d.logger.Warn("Dispatcher", "Failed to publish dataset event", map[string]interface{}{"error": pubErr.Error()})
	}

	return DataResponse(dto.DatasetDTO{Id: dataset.Id, Name: dataset.Name})
}

func (d *dispatcher) handleSelectDataset(ctx context.Context, c *SelectDataset) Response {
	if err := statestore.SetString(ctx, d.stateStore, statestore.KeySelectedDataset, c.Dataset.String()); err != nil {
		return ErrorResponse(err)
	}

	if pubErr := d.publisherService.PublishUIEvent(ctx, model.NewDatasetSelectedEvent(c.Dataset.String())); pubErr != nil {
		d.logger.Warn("Dispatcher", "Failed to broadcast dataset selection", map[string]interface{}{"error": pubErr.Error()})
	}

	return DataResponse("success")
}

func (d *dispatcher) currentOwner(ctx context.Context) (uuid.UUID, error) {
	user, err := d.sessionService.GetCurrentUser(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	owner, err := uuid.Parse(user.Id)
	if err != nil {
		return uuid.Nil, &errs.AuthError{Message: "user id is malformed", Cause: err}
	}
	return owner, nil
}

func sessionDTO(session *identity.Session) *dto.SessionDTO {
	if session == nil {
		return nil
	}
	return &dto.SessionDTO{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresAt:    session.ExpiresAt.Unix(),
		User:         dto.UserDTO{Id: session.User.Id, Email: session.User.Email},
	}
}
