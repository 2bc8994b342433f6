package main

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_BearerToken_Sources(t *testing.T) {
	req := require.New(t)

	r := httptest.NewRequest("GET", "/ws", nil)
	req.Equal("", bearerToken(r))

	r = httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer abc123def")
	req.Equal("abc123def", bearerToken(r))

	r = httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "rawtoken")
	req.Equal("rawtoken", bearerToken(r))

	r = httptest.NewRequest("GET", "/ws?token=querytoken", nil)
	req.Equal("querytoken", bearerToken(r))
}
