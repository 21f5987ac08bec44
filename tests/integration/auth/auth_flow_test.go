package auth

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shantanuk7/prism-film-observatory/internal/service/auth"
	"github.com/shantanuk7/prism-film-observatory/internal/testutil"
	"github.com/shantanuk7/prism-film-observatory/tests/integration"
)

type tokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type userPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Verified bool   `json:"verified"`
}

type authResponse struct {
	User userPayload `json:"user"`
	tokenPairResponse
}

func doJSON(t *testing.T, method string, url string, body string, access string) (int, string) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "request should always complete")
	defer resp.Body.Close() // nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(respBody)
}

func Test_AuthFlow(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("full credential lifecycle", func(t *testing.T) {
		integration.Serve(pg.Pool, t, auth.Config{}, func(srvURL string, s integration.Services) {
			// Signup: 201, unverified, no tokens yet
			code, body := doJSON(t, http.MethodPost, srvURL+"/auth/signup",
				`{"username": "alice", "email": "a@x.com", "password": "Passw0rd!", "role": "observer"}`, "")
			require.Equalf(t, http.StatusCreated, code, "signup failed. Body: %s", body)

			var signedUp authResponse
			require.NoError(t, json.Unmarshal([]byte(body), &signedUp))
			assert.Equal(t, "alice", signedUp.User.Username)
			assert.Equal(t, "observer", signedUp.User.Role)
			assert.False(t, signedUp.User.Verified, "new user must not be verified")
			assert.Empty(t, signedUp.AccessToken, "no tokens before verification")

			// Login before verification: 403
			code, body = doJSON(t, http.MethodPost, srvURL+"/auth/login",
				`{"email": "a@x.com", "password": "Passw0rd!"}`, "")
			require.Equalf(t, http.StatusForbidden, code, "unverified login must be blocked. Body: %s", body)

			// Verify email with the mailed token: 200
			token, ok := s.Mailer.Token("a@x.com")
			require.True(t, ok, "verification token should have been mailed")

			code, body = doJSON(t, http.MethodPost, srvURL+"/auth/verify-email",
				fmt.Sprintf(`{"token": %q}`, token), "")
			require.Equalf(t, http.StatusOK, code, "verification failed. Body: %s", body)

			// Same token a second time: 404
			code, _ = doJSON(t, http.MethodPost, srvURL+"/auth/verify-email",
				fmt.Sprintf(`{"token": %q}`, token), "")
			require.Equal(t, http.StatusNotFound, code, "verification token is single use")

			// Login now succeeds with a token pair
			code, body = doJSON(t, http.MethodPost, srvURL+"/auth/login",
				`{"email": "a@x.com", "password": "Passw0rd!"}`, "")
			require.Equalf(t, http.StatusOK, code, "login failed. Body: %s", body)

			var loggedIn authResponse
			require.NoError(t, json.Unmarshal([]byte(body), &loggedIn))
			require.NotEmpty(t, loggedIn.AccessToken)
			require.NotEmpty(t, loggedIn.RefreshToken)
			assert.True(t, loggedIn.User.Verified)

			// The access claims carry exactly the user id and role
			principal, err := s.AuthService.Authenticate(t.Context(), loggedIn.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, signedUp.User.ID, principal.UserID.String())
			assert.Equal(t, "observer", principal.Role.String())

			// Me returns the sanitized user
			code, body = doJSON(t, http.MethodGet, srvURL+"/auth/me", "", loggedIn.AccessToken)
			require.Equalf(t, http.StatusOK, code, "me failed. Body: %s", body)
			var me userPayload
			require.NoError(t, json.Unmarshal([]byte(body), &me))
			assert.Equal(t, signedUp.User.ID, me.ID)

			// Refresh rotates the pair
			code, body = doJSON(t, http.MethodPost, srvURL+"/auth/refresh",
				fmt.Sprintf(`{"refreshToken": %q}`, loggedIn.RefreshToken), "")
			require.Equalf(t, http.StatusOK, code, "refresh failed. Body: %s", body)

			var rotated tokenPairResponse
			require.NoError(t, json.Unmarshal([]byte(body), &rotated))
			require.NotEqual(t, loggedIn.RefreshToken, rotated.RefreshToken, "refresh token should be rotated")
			require.NotEqual(t, loggedIn.AccessToken, rotated.AccessToken, "access token should be rotated")

			// The consumed token is permanently unusable
			code, body = doJSON(t, http.MethodPost, srvURL+"/auth/refresh",
				fmt.Sprintf(`{"refreshToken": %q}`, loggedIn.RefreshToken), "")
			require.Equalf(t, http.StatusUnauthorized, code, "rotated token must not refresh again. Body: %s", body)
			require.JSONEq(t, `
				{
					"error": "service_error",
					"message": "Invalid refresh token"
				}`, body)

			// Logout revokes the live token, idempotently
			code, _ = doJSON(t, http.MethodPost, srvURL+"/auth/logout",
				fmt.Sprintf(`{"refreshToken": %q}`, rotated.RefreshToken), rotated.AccessToken)
			require.Equal(t, http.StatusOK, code)

			code, _ = doJSON(t, http.MethodPost, srvURL+"/auth/refresh",
				fmt.Sprintf(`{"refreshToken": %q}`, rotated.RefreshToken), "")
			require.Equal(t, http.StatusUnauthorized, code, "logged out token must not refresh")

			code, _ = doJSON(t, http.MethodPost, srvURL+"/auth/logout",
				fmt.Sprintf(`{"refreshToken": %q}`, rotated.RefreshToken), rotated.AccessToken)
			require.Equal(t, http.StatusOK, code, "logout is idempotent")
		})
	})

	t.Run("role guard on admin surface", func(t *testing.T) {
		integration.Serve(pg.Pool, t, auth.Config{SkipVerification: true}, func(srvURL string, s integration.Services) {
			signupAndLogin := func(username string, email string) tokenPairResponse {
				code, body := doJSON(t, http.MethodPost, srvURL+"/auth/signup",
					fmt.Sprintf(`{"username": %q, "email": %q, "password": "Passw0rd!"}`, username, email), "")
				require.Equalf(t, http.StatusCreated, code, "signup failed. Body: %s", body)

				var resp authResponse
				require.NoError(t, json.Unmarshal([]byte(body), &resp))
				return resp.tokenPairResponse
			}

			observer := signupAndLogin("guard-observer", "guard-observer@x.com")
			admin := signupAndLogin("guard-admin", "guard-admin@x.com")

			// Admin accounts are provisioned out of band
			_, err := pg.Pool.Exec(t.Context(), "UPDATE users SET role = 'admin' WHERE email = $1", "guard-admin@x.com")
			require.NoError(t, err)

			// The old access token still says observer; mint a fresh admin one
			code, body := doJSON(t, http.MethodPost, srvURL+"/auth/refresh",
				fmt.Sprintf(`{"refreshToken": %q}`, admin.RefreshToken), "")
			require.Equalf(t, http.StatusOK, code, "refresh failed. Body: %s", body)
			var rotated tokenPairResponse
			require.NoError(t, json.Unmarshal([]byte(body), &rotated))

			// No credential at all: 401
			code, _ = doJSON(t, http.MethodGet, srvURL+"/admin/users", "", "")
			require.Equal(t, http.StatusUnauthorized, code)

			// Observer: authenticated but not allowed
			code, _ = doJSON(t, http.MethodGet, srvURL+"/admin/users", "", observer.AccessToken)
			require.Equal(t, http.StatusForbidden, code)

			// Admin: allowed
			code, body = doJSON(t, http.MethodGet, srvURL+"/admin/users", "", rotated.AccessToken)
			require.Equalf(t, http.StatusOK, code, "admin listing failed. Body: %s", body)
			require.Contains(t, body, "guard-observer@x.com")
		})
	})

	t.Run("signup with admin role rejected", func(t *testing.T) {
		integration.Serve(pg.Pool, t, auth.Config{}, func(srvURL string, s integration.Services) {
			code, body := doJSON(t, http.MethodPost, srvURL+"/auth/signup",
				`{"username": "sneaky", "email": "sneaky@x.com", "password": "Passw0rd!", "role": "admin"}`, "")

			require.Equalf(t, http.StatusBadRequest, code, "self-signup as admin must fail. Body: %s", body)
		})
	})

	t.Run("duplicate signup conflict", func(t *testing.T) {
		integration.Serve(pg.Pool, t, auth.Config{}, func(srvURL string, s integration.Services) {
			code, body := doJSON(t, http.MethodPost, srvURL+"/auth/signup",
				`{"username": "dup", "email": "dup@x.com", "password": "Passw0rd!"}`, "")
			require.Equalf(t, http.StatusCreated, code, "signup failed. Body: %s", body)

			code, body = doJSON(t, http.MethodPost, srvURL+"/auth/signup",
				`{"username": "dup", "email": "dup-other@x.com", "password": "Passw0rd!"}`, "")
			require.Equal(t, http.StatusConflict, code)
			require.JSONEq(t, `
				{
					"error": "service_error",
					"message": "Email or username already in use"
				}`, body)
		})
	})
}
