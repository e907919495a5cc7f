package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// MaxRequestBody bounds request bodies.
const MaxRequestBody = 8 << 20

func DecodeJSONRequest(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRequestBody))
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	return DecodeJSON(body, dst)
}

// DecodeJSON decodes one object and rejects unknown fields.
func DecodeJSON(data []byte, dst interface{}) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
