package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactArguments(t *testing.T) {
	args := map[string]any{
		"dataset_id": "X001",
		"appId":      "secret-app-id",
		"api_key":    "k",
		"limit":      100,
	}

	redacted := RedactArguments(args)

	assert.Equal(t, "X001", redacted["dataset_id"])
	assert.Equal(t, "***", redacted["appId"])
	assert.Equal(t, "***", redacted["api_key"])
	assert.Equal(t, 100, redacted["limit"])

	// Input is untouched.
	assert.Equal(t, "secret-app-id", args["appId"])
}

func TestRedactArgumentsNil(t *testing.T) {
	assert.Nil(t, RedactArguments(nil))
}
