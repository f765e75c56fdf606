package auth

import (
	"testing"

	"github.com/anis2566/monorepo-new-sub002/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVerifierDisabled(t *testing.T) {
	assert.Nil(t, NewVerifier(config.AuthConfig{Enabled: false}))
}

func TestCasdoorVerifierRejectsGarbage(t *testing.T) {
	v := NewCasdoorVerifier(config.AuthConfig{
		Enabled:          true,
		Endpoint:         "http://casdoor.local",
		ClientID:         "client",
		ClientSecret:     "secret",
		OrganizationName: "exams",
		ApplicationName:  "exam-portal",
	})

	_, err := v.Verify("")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = v.Verify("not-a-jwt")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
