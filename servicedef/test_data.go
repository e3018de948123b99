package servicedef

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const (
	MockTestPath = "/api/test-data/mock-test"
	CleanupPath  = "/api/test-data/cleanup"
	TestUserPath = "/api/auth/test-user"
)

// ID is a fixture identifier. The backend returns numeric ids from some tables and
// string ids from others; both are accepted and kept as a string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	v := ldvalue.Parse(data)
	switch v.Type() {
	case ldvalue.StringType:
		*id = ID(v.StringValue())
	case ldvalue.NumberType:
		if v.IsInt() {
			*id = ID(strconv.Itoa(v.IntValue()))
		} else {
			*id = ID(strconv.FormatFloat(v.Float64Value(), 'f', -1, 64))
		}
	case ldvalue.NullType:
		*id = ""
	default:
		return fmt.Errorf("invalid id %s", string(data))
	}
	return nil
}

func (id ID) String() string {
	return string(id)
}

type CreateMockTestParams struct {
	RunID         string              `json:"runId"`
	Title         string              `json:"title"`
	QuestionCount ldvalue.OptionalInt `json:"questionCount"`
	TestRun       bool                `json:"testRun"`
}

type MockTest struct {
	ID    ID     `json:"id"`
	Title string `json:"title,omitempty"`
}

type CreateTestUserParams struct {
	RunID   string `json:"runId"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	TestRun bool   `json:"testRun"`
}

type TestUser struct {
	ID    ID     `json:"id"`
	Email string `json:"email,omitempty"`
}

// CleanupParams is the body of the cleanup signal. TestRun marks every fixture created
// during test runs as eligible for removal.
type CleanupParams struct {
	TestRun bool `json:"testRun"`
}

// ErrorResponse is the body the backend sends with a non-2xx status, when it sends one.
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// DecodeError extracts a readable message from an error body, falling back to the raw text.
func DecodeError(body []byte) string {
	var e ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return string(body)
}
