package shared

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type coverBody struct {
	TaskID string `json:"taskId" validate:"required"`
	URL    string `json:"url"    validate:"required,url"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name        string
		requestBody string
		wantErr     bool
		errIs       error
		errContains string
	}{
		{
			name:        "valid json",
			requestBody: `{"taskId": "t1", "url": "https://img.example.com/a.png"}`,
		},
		{
			name:        "invalid json",
			requestBody: `{"taskId": "t1",}`,
			wantErr:     true,
			errContains: "invalid character",
		},
		{
			name:        "empty body",
			requestBody: "",
			wantErr:     true,
			errIs:       ErrEmptyBody,
		},
		{
			name:        "unknown field",
			requestBody: `{"taskId": "t1", "owner": "x"}`,
			wantErr:     true,
			errContains: "unknown field",
		},
		{
			name:        "trailing data",
			requestBody: `{"taskId": "t1"} {"taskId": "t2"}`,
			wantErr:     true,
			errContains: "unexpected data",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(tc.requestBody))

			var body coverBody
			err := DecodeJSON(req, &body)

			if !tc.wantErr {
				require.NoError(t, err)
				assert.Equal(t, "t1", body.TaskID)
				assert.Equal(t, "https://img.example.com/a.png", body.URL)
				return
			}
			require.Error(t, err)
			if tc.errIs != nil {
				assert.ErrorIs(t, err, tc.errIs)
			}
			if tc.errContains != "" {
				assert.Contains(t, err.Error(), tc.errContains)
			}
		})
	}
}

type errorReader struct{}

func (errorReader) Read(p []byte) (n int, err error) {
	return 0, io.ErrUnexpectedEOF
}

func TestDecodeJSONWithReadError(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", errorReader{})

	var target coverBody
	err := DecodeJSON(req, &target)

	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

type selfValidating struct {
	Name string
}

func (v *selfValidating) Validate() error {
	if v.Name == "invalid" {
		return errors.New("name is invalid")
	}
	return nil
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(&selfValidating{Name: "ok"}))
	assert.Error(t, ValidateRequest(&selfValidating{Name: "invalid"}))

	assert.NoError(t, ValidateRequest(&coverBody{TaskID: "t1", URL: "https://img.example.com/a.png"}))

	err := ValidateRequest(&coverBody{TaskID: "t1", URL: "not a url"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "URL", verrs[0].Field())
	assert.Equal(t, "url", verrs[0].Tag())
}
