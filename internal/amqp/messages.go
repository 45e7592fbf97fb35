package amqp

import (
	"encoding/json"
	"time"
)

// Transaction event names published to downstream consumers.
const (
	EventPosted  = "posted"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// TransactionEventMessage is a lightweight notification that a transaction
// changed. It carries only the ID and event kind; consumers fetch the full
// record from the database.
type TransactionEventMessage struct {
	TransactionID string    `json:"transaction_id"`
	Event         string    `json:"event"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionEventMessage(transactionID, event string) *TransactionEventMessage {
	return &TransactionEventMessage{
		TransactionID: transactionID,
		Event:         event,
		Timestamp:     time.Now(),
	}
}

func (m *TransactionEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionEventMessageFromJSON(data []byte) (*TransactionEventMessage, error) {
	var msg TransactionEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
