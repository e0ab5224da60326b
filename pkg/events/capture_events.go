package events

import "time"

// Event type codes exported to the bus.
const (
	TypeUserSignedIn      = "USER_SIGNED_IN"
	TypeUserSignedOut     = "USER_SIGNED_OUT"
	TypeReauthRequired    = "REAUTH_REQUIRED"
	TypeDatasetCreated    = "DATASET_CREATED"
	TypeDataPointCaptured = "DATA_POINT_CAPTURED"
)

func NewUserSignedIn(userId, email string) Event {
	return BaseEvent{
		Type:       TypeUserSignedIn,
		Data:       map[string]interface{}{"user_id": userId, "email": email},
		OccurredAt: time.Now(),
	}
}

func NewUserSignedOut(userId string) Event {
	return BaseEvent{
		Type:       TypeUserSignedOut,
		Data:       map[string]interface{}{"user_id": userId},
		OccurredAt: time.Now(),
	}
}

func NewReauthRequired() Event {
	return BaseEvent{
		Type:       TypeReauthRequired,
		Data:       map[string]interface{}{},
		OccurredAt: time.Now(),
	}
}

func NewDatasetCreated(datasetId, name, userId string) Event {
	return BaseEvent{
		Type: TypeDatasetCreated,
		Data: map[string]interface{}{
			"dataset_id": datasetId,
			"name":       name,
			"user_id":    userId,
		},
		OccurredAt: time.Now(),
	}
}

func NewDataPointCaptured(dataPointId, datasetId, userId, mode string) Event {
	return BaseEvent{
		Type: TypeDataPointCaptured,
		Data: map[string]interface{}{
			"data_point_id": dataPointId,
			"dataset_id":    datasetId,
			"user_id":       userId,
			"mode":          mode,
		},
		OccurredAt: time.Now(),
	}
}
