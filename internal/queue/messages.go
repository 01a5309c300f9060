package queue

import (
	"encoding/json"

	"github.com/go-playground/validator"
)

var validate = validator.New()

// IngestMessage asks the worker to parse an uploaded model file and import
// it into the session's graph partition.
type IngestMessage struct {
	SessionID string `json:"session_id" validate:"required"`
	FileKey   string `json:"file_key" validate:"required"`
	Filename  string `json:"filename" validate:"required"`
}

// DeleteMessage asks the worker to remove a session: graph partition,
// uploaded files, and the registry row.
type DeleteMessage struct {
	SessionID string `json:"session_id" validate:"required"`
}

func decodeMessage(msg string, out any) error {
	if err := json.Unmarshal([]byte(msg), out); err != nil {
		return err
	}
	return validate.Struct(out)
}
