package capture

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/KayTeo/mimir-extension/internal/entity"
	"github.com/KayTeo/mimir-extension/internal/model"
	"github.com/KayTeo/mimir-extension/internal/statestore"
	"github.com/KayTeo/mimir-extension/pkg/events"
	"github.com/KayTeo/mimir-extension/pkg/identity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu           sync.Mutex
	dataPoints   []*entity.DataPoint
	associations []fakeAssociation
	updates      map[uuid.UUID]string
	generated    string
	generateErr  error
	createErr    error
}

type fakeAssociation struct {
	DatasetId   uuid.UUID
	DataPointId uuid.UUID
	Label       string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{updates: make(map[uuid.UUID]string)}
}

func (g *fakeGateway) CreateDataPoint(ctx context.Context, ownerId uuid.UUID, content string) (*entity.DataPoint, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	point := &entity.DataPoint{Id: uuid.New(), UserId: ownerId, Content: content}
	g.dataPoints = append(g.dataPoints, point)
	return point, nil
}

func (g *fakeGateway) UpdateDataPoint(ctx context.Context, id uuid.UUID, content string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.updates[id] = content
	return nil
}

func (g *fakeGateway) CreateAssociation(ctx context.Context, datasetId, dataPointId uuid.UUID, label string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.associations = append(g.associations, fakeAssociation{DatasetId: datasetId, DataPointId: dataPointId, Label: label})
	return nil
}

func (g *fakeGateway) ListDatasets(ctx context.Context, ownerId uuid.UUID) ([]*entity.Dataset, error) {
	return nil, nil
}

func (g *fakeGateway) CreateDataset(ctx context.Context, ownerId uuid.UUID, name string) (*entity.Dataset, error) {
	return &entity.Dataset{Id: uuid.New(), Name: name, UserId: ownerId}, nil
}

func (g *fakeGateway) InvokeGenerator(ctx context.Context, promptText string) (string, error) {
	if g.generateErr != nil {
		return "", g.generateErr
	}
	return g.generated, nil
}

type fakePublisher struct {
	mu           sync.Mutex
	uiEvents     []model.UIEvent
	domainEvents []events.Event
}

func (p *fakePublisher) PublishUIEvent(ctx context.Context, event model.UIEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uiEvents = append(p.uiEvents, event)
	return nil
}

func (p *fakePublisher) PublishDomainEvent(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.domainEvents = append(p.domainEvents, event)
	return nil
}

func (p *fakePublisher) uiEventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.uiEvents))
	for _, ev := range p.uiEvents {
		types = append(types, ev.Type)
	}
	return types
}

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error { return nil }

type machineFixture struct {
	machine   *Machine
	store     *statestore.MemoryStore
	gateway   *fakeGateway
	publisher *fakePublisher
	datasetId uuid.UUID
	userId    uuid.UUID
}

func newMachineFixture(t *testing.T, mode string, withDataset bool) *machineFixture {
	t.Helper()
	ctx := context.Background()

	store := statestore.NewMemoryStore()
	require.NoError(t, statestore.Initialize(ctx, store))
	require.NoError(t, statestore.SetString(ctx, store, statestore.KeyMode, mode))

	userId := uuid.New()
	userRaw, err := json.Marshal(identity.User{Id: userId.String(), Email: "capture@example.com"})
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, map[string]json.RawMessage{statestore.KeyUser: userRaw}))

	datasetId := uuid.New()
	if withDataset {
		require.NoError(t, statestore.SetString(ctx, store, statestore.KeySelectedDataset, datasetId.String()))
	}

	gateway := newFakeGateway()
	publisher := &fakePublisher{}
	machine := NewMachine(store, gateway, publisher, nopLogger{})

	return &machineFixture{
		machine:   machine,
		store:     store,
		gateway:   gateway,
		publisher: publisher,
		datasetId: datasetId,
		userId:    userId,
	}
}

func TestManualCaptureRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newMachineFixture(t, statestore.ModeManual, true)

	require.NoError(t, f.machine.HandleTrigger(ctx, "What is X?"))
	assert.Equal(t, PhaseAwaitingLabel, f.machine.Phase())

	require.NoError(t, f.machine.HandleTrigger(ctx, "X is Y"))
	assert.Equal(t, PhaseIdle, f.machine.Phase())

	require.Len(t, f.gateway.dataPoints, 1)
	assert.Equal(t, "What is X?", f.gateway.dataPoints[0].Content)
	assert.Equal(t, f.userId, f.gateway.dataPoints[0].UserId)

	require.Len(t, f.gateway.associations, 1)
	assert.Equal(t, f.datasetId, f.gateway.associations[0].DatasetId)
	assert.Equal(t, f.gateway.dataPoints[0].Id, f.gateway.associations[0].DataPointId)
	assert.Equal(t, "X is Y", f.gateway.associations[0].Label)
}

func TestManualCaptureEmptySelectionIsNoOp(t *testing.T) {
	ctx := context.Background()
	f := newMachineFixture(t, statestore.ModeManual, true)

	require.NoError(t, f.machine.HandleTrigger(ctx, ""))

	assert.Equal(t, PhaseIdle, f.machine.Phase())
	assert.Empty(t, f.gateway.dataPoints)
	assert.Empty(t, f.gateway.associations)
}

func TestManualCaptureMissingDatasetRetainsPendingPrompt(t *testing.T) {
	ctx := context.Background()
	f := newMachineFixture(t, statestore.ModeManual, false)

	require.NoError(t, f.machine.HandleTrigger(ctx, "What is X?"))
	require.Equal(t, PhaseAwaitingLabel, f.machine.Phase())

	// Label step without a selected dataset: status event, no store calls,
	// and the pending prompt survives.
	require.NoError(t, f.machine.HandleTrigger(ctx, "X is Y"))
	assert.Equal(t, PhaseAwaitingLabel, f.machine.Phase())
	assert.Empty(t, f.gateway.dataPoints)
	assert.Contains(t, f.publisher.uiEventTypes(), model.UIEventShowStatus)

	// Selecting a dataset and retrying the label completes the capture with
	// the original prompt.
	require.NoError(t, statestore.SetString(ctx, f.store, statestore.KeySelectedDataset, f.datasetId.String()))
	require.NoError(t, f.machine.HandleTrigger(ctx, "X is Y"))

	assert.Equal(t, PhaseIdle, f.machine.Phase())
	require.Len(t, f.gateway.dataPoints, 1)
	assert.Equal(t, "What is X?", f.gateway.dataPoints[0].Content)
}

func TestManualCaptureGatewayFailureStaysAwaitingLabel(t *testing.T) {
	ctx := context.Background()
	f := newMachineFixture(t, statestore.ModeManual, true)
	f.gateway.createErr = errors.New("store rejected the write")

	require.NoError(t, f.machine.HandleTrigger(ctx, "What is X?"))
	require.NoError(t, f.machine.HandleTrigger(ctx, "X is Y"))

	assert.Equal(t, PhaseAwaitingLabel, f.machine.Phase())
	assert.Contains(t, f.publisher.uiEventTypes(), model.UIEventShowStatus)

	// Retry after the store recovers.
	f.gateway.createErr = nil
	require.NoError(t, f.machine.HandleTrigger(ctx, "X is Y"))
	assert.Equal(t, PhaseIdle, f.machine.Phase())
	require.Len(t, f.gateway.dataPoints, 1)
	assert.Equal(t, "What is X?", f.gateway.dataPoints[0].Content)
}

func TestAutoCaptureParseFailure(t *testing.T) {
	ctx := context.Background()
	f := newMachineFixture(t, statestore.ModeAuto, true)
	f.gateway.generated = "no delimiters here"

	require.NoError(t, f.machine.HandleTrigger(ctx, "some selected text"))

	assert.Empty(t, f.gateway.dataPoints)
	assert.Empty(t, f.gateway.associations)
	assert.Equal(t, []string{model.UIEventShowStatus}, f.publisher.uiEventTypes())
}

func TestAutoCaptureSuccess(t *testing.T) {
	ctx := context.Background()
	f := newMachineFixture(t, statestore.ModeAuto, true)
	f.gateway.generated = "Sure! ###QUESTION###What is 2+2?###ANSWER###4"

	require.NoError(t, f.machine.HandleTrigger(ctx, "two plus two equals four"))

	require.Len(t, f.gateway.dataPoints, 1)
	assert.Equal(t, "What is 2+2?", f.gateway.dataPoints[0].Content)
	require.Len(t, f.gateway.associations, 1)
	assert.Equal(t, "4", f.gateway.associations[0].Label)

	var loaded *model.UIEvent
	for i := range f.publisher.uiEvents {
		if f.publisher.uiEvents[i].Type == model.UIEventLoadQA {
			loaded = &f.publisher.uiEvents[i]
		}
	}
	require.NotNil(t, loaded, "expected a LOAD_QA broadcast")
	assert.Equal(t, "What is 2+2?", loaded.Question)
	assert.Equal(t, "4", loaded.Answer)
}

func TestAutoCaptureMissingDataset(t *testing.T) {
	ctx := context.Background()
	f := newMachineFixture(t, statestore.ModeAuto, false)
	f.gateway.generated = "###QUESTION###q###ANSWER###a"

	require.NoError(t, f.machine.HandleTrigger(ctx, "some selected text"))

	assert.Empty(t, f.gateway.dataPoints)
	assert.Equal(t, []string{model.UIEventShowStatus}, f.publisher.uiEventTypes())
}

func TestModeIsReadFreshPerTrigger(t *testing.T) {
	ctx := context.Background()
	f := newMachineFixture(t, statestore.ModeManual, true)

	require.NoError(t, f.machine.HandleTrigger(ctx, "What is X?"))
	require.Equal(t, PhaseAwaitingLabel, f.machine.Phase())

	// Flipping the mode takes effect on the very next trigger.
	require.NoError(t, statestore.SetString(ctx, f.store, statestore.KeyMode, statestore.ModeAuto))
	f.gateway.generated = "###QUESTION###Q###ANSWER###A"

	require.NoError(t, f.machine.HandleTrigger(ctx, "auto text"))
	require.Len(t, f.gateway.dataPoints, 1)
	assert.Equal(t, "Q", f.gateway.dataPoints[0].Content)
}

func TestUpdateWithoutCapturedDataPoint(t *testing.T) {
	ctx := context.Background()
	f := newMachineFixture(t, statestore.ModeManual, true)

	err := f.machine.Update(ctx, "new question", "new answer", nil)
	assert.Error(t, err)
	assert.Empty(t, f.gateway.updates)
	assert.Contains(t, f.publisher.uiEventTypes(), model.UIEventShowStatus)
}

func TestUpdateAppendsNewAssociation(t *testing.T) {
	ctx := context.Background()
	f := newMachineFixture(t, statestore.ModeManual, true)

	point, err := f.machine.Add(ctx, "What is X?", "X is Y", nil)
	require.NoError(t, err)
	require.Len(t, f.gateway.associations, 1)

	otherDataset := uuid.New()
	require.NoError(t, f.machine.Update(ctx, "What is X, really?", "X is Z", &otherDataset))

	assert.Equal(t, "What is X, really?", f.gateway.updates[point.Id])
	require.Len(t, f.gateway.associations, 2)
	assert.Equal(t, otherDataset, f.gateway.associations[1].DatasetId)
	assert.Equal(t, "X is Z", f.gateway.associations[1].Label)
}
