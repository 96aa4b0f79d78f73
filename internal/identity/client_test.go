package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/v1/users/user_1":
			w.Write([]byte(`{"username":null,"first_name":"Ada","last_name":"Lovelace","image_url":"https://img/ada.png","email_addresses":[{"email_address":"ada@example.com"}]}`))
		case "/v1/users/user_2":
			w.Write([]byte(`{"username":"grace","image_url":""}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v1/", "key", time.Second)

	p, err := c.Profile(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", p.Label)
	assert.Equal(t, "https://img/ada.png", p.AvatarURL)
	assert.Equal(t, "ada@example.com", p.Email)

	p, err = c.Profile(context.Background(), "user_2")
	require.NoError(t, err)
	assert.Equal(t, "grace", p.Label)
	assert.Empty(t, p.Email)

	_, err = c.Profile(context.Background(), "missing")
	assert.Error(t, err)
}

func TestClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, "", 50*time.Millisecond)
	_, err := c.Profile(context.Background(), "slow")
	assert.Error(t, err)
}
