package katago

import (
	"encoding/json"

	"github.com/pkg/errors"

	"kata_review/internal/domain"
)

// Codec is the JSON line protocol of `katago analysis`: it marshals queries
// and interprets the matching responses.
type Codec struct {
	*Interpreter
}

func NewCodec(interpreter *Interpreter) *Codec {
	return &Codec{Interpreter: interpreter}
}

// Marshal returns the request for q without the trailing newline.
func (c *Codec) Marshal(q domain.AnalysisQuery) ([]byte, error) {
	req, err := Request(q)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}
	return payload, nil
}
