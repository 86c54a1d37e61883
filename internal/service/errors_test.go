package service

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindAndStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		kind   string
		status int
	}{
		{"nil", nil, "none", http.StatusOK},
		{"user input", &UserInputError{Message: "Please specify a city for foods recommendations."}, "user_input", http.StatusBadRequest},
		{"wrapped upstream", fmt.Errorf("find foods: %w", ErrUpstreamUnavailable), "upstream", http.StatusBadGateway},
		{"internal", fmt.Errorf("render prompt: %w", ErrInternal), "internal", http.StatusInternalServerError},
		{"unclassified", errors.New("boom"), "internal", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, ErrorKind(tt.err))
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestUserInputError_MessageIsVerbatim(t *testing.T) {
	err := error(&UserInputError{Message: "Query must not be empty."})
	assert.Equal(t, "Query must not be empty.", err.Error())
	assert.True(t, errors.Is(err, ErrUserInput))
}
