package validator

import (
	"testing"

	apperrors "github.com/anis2566/monorepo-new-sub002/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"01711111111", "01711111111"},
		{"+8801711111111", "01711111111"},
		{"8801711111111", "01711111111"},
		{"00880 1711-111111", "01711111111"},
		{" 017 1111 1111 ", "01711111111"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.in))
		})
	}
}

func TestIsValidPhone(t *testing.T) {
	assert.True(t, IsValidPhone("01711111111"))
	assert.True(t, IsValidPhone("+8801911111111"))
	assert.False(t, IsValidPhone("01211111111"), "operator prefix 2 is not allocated")
	assert.False(t, IsValidPhone("0171111111"))
	assert.False(t, IsValidPhone("017111111112"))
	assert.False(t, IsValidPhone("phone"))
}

type sampleRequest struct {
	Phone   string  `json:"phone" validate:"required,bd_phone"`
	Code    string  `json:"code" validate:"required,otp_code"`
	Letter  *string `json:"letter" validate:"omitempty,option_letter"`
	Reason  string  `json:"reason" validate:"required,submission_reason"`
	Variant string  `json:"variant" validate:"omitempty,leaderboard_variant"`
}

func TestValidator_CustomRules(t *testing.T) {
	v := New()
	letter := "b"

	require.NoError(t, v.Validate(&sampleRequest{
		Phone:   "01711111111",
		Code:    "123456",
		Letter:  &letter,
		Reason:  "TabSwitch",
		Variant: "weekly",
	}))

	bad := "AB"
	err := v.Validate(&sampleRequest{
		Phone:   "12345",
		Code:    "12a456",
		Letter:  &bad,
		Reason:  "Later",
		Variant: "monthly",
	})
	require.Error(t, err)

	var errs apperrors.ValidationErrors
	require.ErrorAs(t, err, &errs)

	rules := map[string]string{}
	for _, e := range errs {
		rules[e.Field] = e.Rule
	}
	assert.Equal(t, map[string]string{
		"phone":   "bd_phone",
		"code":    "otp_code",
		"letter":  "option_letter",
		"reason":  "submission_reason",
		"variant": "leaderboard_variant",
	}, rules)
}
