package handlers

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedirectWithToken(t *testing.T) {
	const token = "YWxpY2U6MTAwMDpQN29Cb3ZZL2daWWp2OHNWbXd4R0RVR0g5dlh2MktseGR4WFVjZVVmdStRPQ=="

	cases := []struct {
		target string
		want   string
	}{
		{"blog.example.com", "https://blog.example.com"},
		{"http://localhost:3000/cb", "http://localhost:3000/cb"},
		{"https://blog.example.com/login?next=%2Fposts", "https://blog.example.com/login"},
	}
	for _, tc := range cases {
		t.Run(tc.target, func(t *testing.T) {
			got, err := RedirectWithToken(tc.target, token)
			require.NoError(t, err)

			u, err := url.Parse(got)
			require.NoError(t, err)
			assert.Equal(t, tc.want, u.Scheme+"://"+u.Host+u.Path)
			assert.Equal(t, token, u.Query().Get("token"))
		})
	}

	got, err := RedirectWithToken("https://blog.example.com/login?next=%2Fposts&token=stale", token)
	require.NoError(t, err)
	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "/posts", u.Query().Get("next"))
	assert.Equal(t, []string{token}, u.Query()["token"])
}

func TestRedirectWithTokenRejectsBadTargets(t *testing.T) {
	for _, target := range []string{"https://", "https://bad host/"} {
		_, err := RedirectWithToken(target, "t")
		assert.Error(t, err, target)
	}
}
