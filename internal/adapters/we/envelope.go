package we

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// envelope is the {header, body} wrapper around every portal response.
type envelope struct {
	Header *envelopeHeader `json:"header"`
	Body   json.RawMessage `json:"body"`
}

type envelopeHeader struct {
	RetCode flexString `json:"retCode"`
	ErrorNo flexString `json:"errorNo"`
}

func (e envelope) retCode() string {
	if e.Header == nil {
		return ""
	}
	return string(e.Header.RetCode)
}

func (e envelope) errorNo() string {
	if e.Header == nil {
		return ""
	}
	return string(e.Header.ErrorNo)
}

func (e envelope) succeeded() bool {
	return e.retCode() == "0"
}

// flexString accepts both JSON strings and numbers; the portal is not consistent about ids.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*s = ""
		return nil
	}

	if len(trimmed) > 0 && trimmed[0] == '"' {
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return err
		}
		*s = flexString(value)
		return nil
	}

	var number json.Number
	if err := json.Unmarshal(trimmed, &number); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(trimmed))
	}
	*s = flexString(number.String())
	return nil
}
