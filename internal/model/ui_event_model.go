package model

// UI event type codes pushed to connected surfaces.
const (
	UIEventReauthRequired  = "REAUTH_REQUIRED"
	UIEventShowStatus      = "SHOW_STATUS"
	UIEventLoadQA          = "LOAD_QA"
	UIEventDatasetSelected = "DATASET_SELECTED"
	UIEventStateChanged    = "STATE_CHANGED"
)

// Status severity tags carried by SHOW_STATUS.
const (
	StatusInfo    = "info"
	StatusSuccess = "success"
	StatusError   = "error"
)

// UIEvent is the fire-and-forget broadcast envelope pushed to every
// connected surface. Fields are populated per type; zero fields are
// omitted on the wire.
type UIEvent struct {
	Type       string `json:"type"`
	Message    string `json:"message,omitempty"`
	StatusType string `json:"statusType,omitempty"`
	Question   string `json:"question,omitempty"`
	Answer     string `json:"answer,omitempty"`
	DatasetId  string `json:"datasetId,omitempty"`
	Key        string `json:"key,omitempty"`
}

func NewReauthRequiredEvent() UIEvent {
	return UIEvent{Type: UIEventReauthRequired}
}

func NewStatusEvent(message, statusType string) UIEvent {
	return UIEvent{Type: UIEventShowStatus, Message: message, StatusType: statusType}
}

func NewLoadQAEvent(question, answer string) UIEvent {
	return UIEvent{Type: UIEventLoadQA, Question: question, Answer: answer}
}

func NewDatasetSelectedEvent(datasetId string) UIEvent {
	return UIEvent{Type: UIEventDatasetSelected, DatasetId: datasetId}
}

func NewStateChangedEvent(key string) UIEvent {
	return UIEvent{Type: UIEventStateChanged, Key: key}
}
