package printer

import (
	"encoding/json"
	"errors"
	"fmt"
)

// TaskKind is the queue task kind for print jobs.
const TaskKind = "print"

// Ticket kinds understood by the bridge.
const (
	KindReceipt = "receipt"
	KindKOT     = "kot"
)

// Job is the queue payload for one ticket to print.
type Job struct {
	OrderNumber string `json:"orderNumber"`
	Kind        string `json:"kind"`
	Ticket      []byte `json:"ticket"`
}

// Encode serializes the job for the queue.
func (j Job) Encode() ([]byte, error) {
	if j.Kind == "" {
		return nil, errors.New("printer: job kind is required")
	}
	return json.Marshal(j)
}

// DecodeJob parses a queued job payload.
func DecodeJob(data []byte) (Job, error) {
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return Job{}, fmt.Errorf("printer: decode job: %w", err)
	}
	if j.Kind == "" {
		return Job{}, errors.New("printer: job missing kind")
	}
	return j, nil
}

// IdempotencyKey dedups one ticket kind per order in the queue.
func (j Job) IdempotencyKey() string {
	return j.OrderNumber + ":" + j.Kind
}
