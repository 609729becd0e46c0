//nolint:revive // types is a standard Go package name pattern
package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func TestSignupRequest_Validation(t *testing.T) {
	tests := []struct {
		name    string
		request SignupRequest
		wantErr bool
		errMsg  string
	}{
		{name: "valid email", request: SignupRequest{Email: "jane@example.com"}},
		{name: "missing email", request: SignupRequest{}, wantErr: true, errMsg: "required"},
		{name: "malformed email", request: SignupRequest{Email: "not-an-email"}, wantErr: true, errMsg: "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAnswersPatchRequest_Validation(t *testing.T) {
	tests := []struct {
		name    string
		request AnswersPatchRequest
		wantErr bool
	}{
		{name: "empty patch", request: AnswersPatchRequest{}},
		{name: "known level", request: AnswersPatchRequest{Level: strPtr("Mid-level")}},
		{name: "unknown level", request: AnswersPatchRequest{Level: strPtr("Principal")}, wantErr: true},
		{name: "known areas", request: AnswersPatchRequest{TargetAreas: []string{"Confidence", "STAR Method"}}},
		{name: "unknown area", request: AnswersPatchRequest{TargetAreas: []string{"Juggling"}}, wantErr: true},
		{name: "duplicate areas", request: AnswersPatchRequest{TargetAreas: []string{"Confidence", "Confidence"}}, wantErr: true},
		{name: "role text too long", request: AnswersPatchRequest{RoleText: strPtr(string(make([]byte, 121)))}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestToggleTargetAreaRequest_Validation(t *testing.T) {
	assert.NoError(t, (&ToggleTargetAreaRequest{Tag: "Body Language"}).Validate())
	assert.Error(t, (&ToggleTargetAreaRequest{Tag: ""}).Validate())
	assert.Error(t, (&ToggleTargetAreaRequest{Tag: "body language"}).Validate())
}

func TestRoleNavigateRequest_Validation(t *testing.T) {
	for _, action := range []string{NavigateNext, NavigatePrev, NavigateConfirm} {
		assert.NoError(t, (&RoleNavigateRequest{Action: action}).Validate(), action)
	}
	assert.Error(t, (&RoleNavigateRequest{Action: "wrap"}).Validate())
}

func TestRoleSelectRequest_Validation(t *testing.T) {
	assert.NoError(t, (&RoleSelectRequest{Index: intPtr(0)}).Validate())
	assert.Error(t, (&RoleSelectRequest{}).Validate())
	assert.Error(t, (&RoleSelectRequest{Index: intPtr(-1)}).Validate())
}
