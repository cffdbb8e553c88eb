package google

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const installedClient = `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"secret",
"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token",
"redirect_uris":["http://localhost"]}}`

func TestOAuthConfig(t *testing.T) {
	cfg, err := OAuthConfig([]byte(installedClient))
	require.NoError(t, err)
	assert.Equal(t, "id.apps.googleusercontent.com", cfg.ClientID)
	assert.Equal(t, []string{"https://www.googleapis.com/auth/spreadsheets"}, cfg.Scopes)

	_, err = OAuthConfig([]byte(`{}`))
	assert.Error(t, err)
}

func TestReadOAuthClient(t *testing.T) {
	b, err := ReadOAuthClient("  "+installedClient+"  ", "/ignored")
	require.NoError(t, err)
	assert.Equal(t, installedClient, string(b))

	path := filepath.Join(t.TempDir(), "client.json")
	require.NoError(t, os.WriteFile(path, []byte(installedClient), 0o600))
	b, err = ReadOAuthClient("", path)
	require.NoError(t, err)
	assert.Equal(t, installedClient, string(b))

	_, err = ReadOAuthClient("", "")
	assert.ErrorContains(t, err, "GOOGLE_OAUTH_CLIENT_JSON")
}

func TestSavedTokenIsPrivateAndLoadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	tok := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour).UTC()}
	require.NoError(t, SaveToken(path, tok))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "r", loaded.RefreshToken)

	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{}`), 0o600))
	_, err = LoadToken(empty)
	assert.ErrorContains(t, err, "holds no token")

	_, err = LoadToken(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestNewFallsBackToUserToken(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token.json")
	require.NoError(t, SaveToken(tokenFile, &oauth2.Token{RefreshToken: "r"}))

	c, err := New(context.Background(), Options{
		SpreadsheetID:   "sheet",
		OAuthClientJSON: installedClient,
		OAuthTokenFile:  tokenFile,
	})
	require.NoError(t, err)
	assert.NotNil(t, c.svc)

	_, err = New(context.Background(), Options{
		SpreadsheetID:   "sheet",
		OAuthClientJSON: installedClient,
		OAuthTokenFile:  filepath.Join(dir, "missing.json"),
	})
	assert.ErrorContains(t, err, "read token file")
}
