package sms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) Config {
	return Config{
		AccountSID: "AC00000000000000000000000000000000",
		AuthToken:  "token",
		FromNumber: "+15550001111",
		BaseURL:    baseURL,
		Timeout:    5 * time.Second,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing sid", mutate: func(c *Config) { c.AccountSID = "" }, wantErr: true},
		{name: "missing token", mutate: func(c *Config) { c.AuthToken = "" }, wantErr: true},
		{name: "non-e164 from number", mutate: func(c *Config) { c.FromNumber = "5550001111" }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := testConfig("")
			tt.mutate(&config)
			err := config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTwilio_SendSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid, _, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "AC00000000000000000000000000000000", sid)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+15551230001", r.PostForm.Get("To"))
		assert.Equal(t, "+15550001111", r.PostForm.Get("From"))
		assert.Equal(t, "Happy birthday!", r.PostForm.Get("Body"))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM123","status":"queued"}`))
	}))
	defer server.Close()

	channel, err := NewTwilio(testConfig(server.URL))
	require.NoError(t, err)

	outcome, err := channel.Send(context.Background(), "+15551230001", "Happy birthday!")
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, "SM123", outcome.MessageID)
}

func TestTwilio_SendRejectedNumber(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21614,"message":"To number is not a valid mobile number"}`))
	}))
	defer server.Close()

	channel, err := NewTwilio(testConfig(server.URL))
	require.NoError(t, err)

	outcome, err := channel.Send(context.Background(), "+15551230001", "Happy birthday!")
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.Equal(t, "21614", outcome.ErrorCode)
	assert.Contains(t, outcome.Description, "not a valid mobile number")
}

func TestTwilio_SendAuthFailureIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":20003,"message":"Authenticate"}`))
	}))
	defer server.Close()

	channel, err := NewTwilio(testConfig(server.URL))
	require.NoError(t, err)

	outcome, err := channel.Send(context.Background(), "+15551230001", "Happy birthday!")
	require.Error(t, err)
	assert.Nil(t, outcome)
	assert.Contains(t, err.Error(), "authentication failed")
}

func TestTwilio_SendServerErrorIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":20500,"message":"Internal server error"}`))
	}))
	defer server.Close()

	channel, err := NewTwilio(testConfig(server.URL))
	require.NoError(t, err)

	outcome, err := channel.Send(context.Background(), "+15551230001", "Happy birthday!")
	require.Error(t, err)
	assert.Nil(t, outcome)
}

func TestTwilio_Ping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "healthy", status: http.StatusOK},
		{name: "bad credentials", status: http.StatusUnauthorized, wantErr: true},
		{name: "provider down", status: http.StatusServiceUnavailable, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{}`))
			}))
			defer server.Close()

			channel, err := NewTwilio(testConfig(server.URL))
			require.NoError(t, err)

			err = channel.Ping(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTwilio_Name(t *testing.T) {
	channel, err := NewTwilio(testConfig(""))
	require.NoError(t, err)
	assert.Equal(t, "twilio-sms", channel.Name())
}
