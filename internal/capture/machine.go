// Package capture coordinates turning raw text selections into persisted,
// labeled, dataset-associated records. A single mutex serializes every
// trigger for its full read-modify-write span; mode and dataset selection
// are read fresh from the state store on each trigger so a change takes
// effect on the very next one.
package capture

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/KayTeo/mimir-extension/internal/entity"
	"github.com/KayTeo/mimir-extension/internal/errs"
	"github.com/KayTeo/mimir-extension/internal/model"
	"github.com/KayTeo/mimir-extension/internal/pkg/logger"
	"github.com/KayTeo/mimir-extension/internal/service"
	"github.com/KayTeo/mimir-extension/internal/statestore"
	"github.com/KayTeo/mimir-extension/pkg/events"
	"github.com/KayTeo/mimir-extension/pkg/identity"

	"github.com/google/uuid"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingLabel
)

func (p Phase) String() string {
	if p == PhaseAwaitingLabel {
		return "awaiting_label"
	}
	return "idle"
}

type Machine struct {
	mu             sync.Mutex
	phase          Phase
	pendingPrompt  string
	lastCapturedId *uuid.UUID

	stateStore       statestore.Store
	gateway          service.IStoreGatewayService
	publisherService service.IPublisherService
	logger           logger.ILogger
}

func NewMachine(
	stateStore statestore.Store,
	gateway service.IStoreGatewayService,
	publisherService service.IPublisherService,
	log logger.ILogger,
) *Machine {
	return &Machine{
		phase:            PhaseIdle,
		stateStore:       stateStore,
		gateway:          gateway,
		publisherService: publisherService,
		logger:           log,
	}
}

// Phase returns the current manual-capture phase.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// HandleTrigger processes one selection-capture trigger. The mode is read at
// trigger time, never cached.
func (m *Machine) HandleTrigger(ctx context.Context, selectionText string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mode, ok, err := statestore.GetString(ctx, m.stateStore, statestore.KeyMode)
	if err != nil {
		return err
	}
	if !ok {
		mode = statestore.ModeAuto
	}

	if mode == statestore.ModeManual {
		return m.runManual(ctx, selectionText)
	}
	return m.runAuto(ctx, selectionText)
}

func (m *Machine) runManual(ctx context.Context, selectionText string) error {
	if m.phase == PhaseIdle {
		// First trigger captures the prompt.
		if selectionText == "" {
			return nil
		}
		m.pendingPrompt = selectionText
		m.phase = PhaseAwaitingLabel
		return nil
	}

	// Second trigger captures the label.
	if selectionText == "" {
		return nil
	}

	datasetId, ok, err := m.selectedDataset(ctx)
	if err != nil {
		return err
	}
	if !ok {
		// The pending prompt is kept so the user can select a dataset and
		// retry labelling without re-entering it.
		m.showStatus(ctx, "Please select a dataset first", model.StatusError)
		return nil
	}

	owner, err := m.currentOwner(ctx)
	if err != nil {
		m.showStatus(ctx, "Please sign in first", model.StatusError)
		return nil
	}

	point, err := m.persistPair(ctx, owner, datasetId, m.pendingPrompt, selectionText, statestore.ModeManual)
	if err != nil {
		// Stay in AwaitingLabel so the user can retry without re-selecting
		// the prompt.
		m.showStatus(ctx, "Error adding data point", model.StatusError)
		m.logger.Error("Capture", "Manual capture failed", map[string]interface{}{"error": err.Error()})
		return nil
	}

	m.lastCapturedId = &point.Id
	m.pendingPrompt = ""
	m.phase = PhaseIdle
	return nil
}

func (m *Machine) runAuto(ctx context.Context, selectionText string) error {
	// Auto mode is stateless across triggers; each one is self-contained.
	if selectionText == "" {
		return nil
	}

	datasetId, ok, err := m.selectedDataset(ctx)
	if err != nil {
		return err
	}
	if !ok {
		m.showStatus(ctx, "Please select a dataset first", model.StatusError)
		return nil
	}

	systemPrompt, _, err := statestore.GetString(ctx, m.stateStore, statestore.KeySystemPrompt)
	if err != nil {
		return err
	}

	raw, err := m.gateway.InvokeGenerator(ctx, systemPrompt+" Text: "+selectionText)
	if err != nil {
		m.showStatus(ctx, "Error generating question/answer", model.StatusError)
		m.logger.Error("Capture", "Generator call failed", map[string]interface{}{"error": err.Error()})
		return nil
	}

	question, answer, err := ParseQA(raw)
	if err != nil {
		m.showStatus(ctx, "Could not parse question/answer from response", model.StatusError)
		return nil
	}

	owner, err := m.currentOwner(ctx)
	if err != nil {
		m.showStatus(ctx, "Please sign in first", model.StatusError)
		return nil
	}

	point, err := m.persistPair(ctx, owner, datasetId, question, answer, statestore.ModeAuto)
	if err != nil {
		m.showStatus(ctx, "Error adding data point", model.StatusError)
		m.logger.Error("Capture", "Auto capture failed", map[string]interface{}{"error": err.Error()})
		return nil
	}

	m.lastCapturedId = &point.Id

	if pubErr := m.publisherService.PublishUIEvent(ctx, model.NewLoadQAEvent(question, answer)); pubErr != nil {
		m.logger.Warn("Capture", "Failed to broadcast loaded pair", map[string]interface{}{"error": pubErr.Error()})
	}
	return nil
}

// Add persists a question/answer pair submitted directly from a surface,
// bypassing the two-step phases.
func (m *Machine) Add(ctx context.Context, question, answer string, datasetOverride *uuid.UUID) (*entity.DataPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	datasetId, err := m.resolveDataset(ctx, datasetOverride)
	if err != nil {
		return nil, err
	}

	owner, err := m.currentOwner(ctx)
	if err != nil {
		return nil, err
	}

	point, err := m.persistPair(ctx, owner, datasetId, question, answer, "direct")
	if err != nil {
		return nil, err
	}

	m.lastCapturedId = &point.Id
	return point, nil
}

// Update overwrites the last captured data point's content and appends a new
// association under the currently selected dataset and label. Associations
// are never mutated in place.
func (m *Machine) Update(ctx context.Context, question, answer string, datasetOverride *uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastCapturedId == nil {
		m.showStatus(ctx, "No data point selected, please add a question.", model.StatusError)
		return errs.NewValidationError("dataPoint", "no data point to update")
	}

	datasetId, err := m.resolveDataset(ctx, datasetOverride)
	if err != nil {
		return err
	}

	if err := m.gateway.UpdateDataPoint(ctx, *m.lastCapturedId, question); err != nil {
		return err
	}

	return m.gateway.CreateAssociation(ctx, datasetId, *m.lastCapturedId, answer)
}

func (m *Machine) persistPair(ctx context.Context, owner uuid.UUID, datasetId uuid.UUID, question, answer, mode string) (*entity.DataPoint, error) {
	point, err := m.gateway.CreateDataPoint(ctx, owner, strings.TrimSpace(question))
	if err != nil {
		return nil, err
	}

	if err := m.gateway.CreateAssociation(ctx, datasetId, point.Id, strings.TrimSpace(answer)); err != nil {
		return nil, err
	}

	event := events.NewDataPointCaptured(point.Id.String(), datasetId.String(), owner.String(), mode)
	if pubErr := m.publisherService.PublishDomainEvent(ctx, event); pubErr != nil {
		m.logger.Warn("Capture", "Failed to publish capture event", map[string]interface{}{"error": pubErr.Error()})
	}

	return point, nil
}

func (m *Machine) resolveDataset(ctx context.Context, override *uuid.UUID) (uuid.UUID, error) {
	if override != nil {
		return *override, nil
	}

	datasetId, ok, err := m.selectedDataset(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if !ok {
		return uuid.Nil, errs.NewValidationError("dataset", "no dataset selected")
	}
	return datasetId, nil
}

func (m *Machine) selectedDataset(ctx context.Context) (uuid.UUID, bool, error) {
	value, ok, err := statestore.GetString(ctx, m.stateStore, statestore.KeySelectedDataset)
	if err != nil || !ok {
		return uuid.Nil, false, err
	}

	datasetId, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, false, nil
	}
	return datasetId, true, nil
}

func (m *Machine) currentOwner(ctx context.Context) (uuid.UUID, error) {
	values, err := m.stateStore.Get(ctx, statestore.KeyUser)
	if err != nil {
		return uuid.Nil, err
	}

	raw, ok := values[statestore.KeyUser]
	if !ok {
		return uuid.Nil, &errs.AuthError{Message: "not signed in"}
	}

	var user identity.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return uuid.Nil, &errs.AuthError{Message: "persisted user is malformed", Cause: err}
	}

	owner, err := uuid.Parse(user.Id)
	if err != nil {
		return uuid.Nil, &errs.AuthError{Message: "persisted user id is malformed", Cause: err}
	}
	return owner, nil
}

func (m *Machine) showStatus(ctx context.Context, message, statusType string) {
	if err := m.publisherService.PublishUIEvent(ctx, model.NewStatusEvent(message, statusType)); err != nil {
		m.logger.Warn("Capture", "Failed to broadcast status", map[string]interface{}{"error": err.Error()})
	}
}
