package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message is the payload of one chunk job. Attempt starts at 1.
type Message struct {
	ImportID string `json:"import_id"`
	ChunkID  string `json:"chunk_id"`
	Attempt  int    `json:"attempt"`
}

// DeadLetter is what lands on the dead-letter list once a job has used all attempts.
type DeadLetter struct {
	Message
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode job: %w", err)
	}
	return string(b), nil
}

func decode(payload string) (Message, error) {
	var msg Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return Message{}, fmt.Errorf("decode job: %w", err)
	}
	if msg.ChunkID == "" {
		return Message{}, fmt.Errorf("decode job: missing chunk_id")
	}
	if msg.Attempt < 1 {
		msg.Attempt = 1
	}
	return msg, nil
}

// retryDelay picks the backoff for the attempt that just failed,
// reusing the last entry once the list runs out.
func retryDelay(backoff []time.Duration, attempt int) time.Duration {
	if len(backoff) == 0 {
		return 0
	}
	i := attempt - 1
	if i < 0 {
		i = 0
	}
	if i >= len(backoff) {
		i = len(backoff) - 1
	}
	return backoff[i]
}
