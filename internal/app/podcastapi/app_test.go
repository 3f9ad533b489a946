package podcastapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podcastapi/internal/configs"
)

func TestNewBoltDB(t *testing.T) {
	db, err := NewBoltDB(filepath.Join(t.TempDir(), "sub", "files.bdb"))
	require.NoError(t, err)
	assert.NotNil(t, db)
	assert.NoError(t, db.Close())
}

func TestNewS3Client(t *testing.T) {
	client, err := NewS3Client("localhost:9000", "key", "secret", "us-east-1", false)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000", client.EndpointURL().String())
}

func TestNewApplication(t *testing.T) {
	dir := t.TempDir()
	conf := &configs.Conf{}
	// same layout as the shipped config, var/ does not exist yet
	conf.Database.DSN = filepath.Join(dir, "var", "podcastapi.db")
	conf.Storage.Path = filepath.Join(dir, "var", "files.bdb")
	conf.SetDefaults()

	app, err := NewApplication(context.Background(), conf)
	require.NoError(t, err)
	defer func() { assert.NoError(t, app.Close()) }()

	assert.NotNil(t, app.Processor().Storage)
	assert.NotNil(t, app.Processor().Files)

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"result":{"status":"ok"}}`, rec.Body.String())
	assert.FileExists(t, conf.Database.DSN)
}

func TestNewApplicationUnknownBackend(t *testing.T) {
	conf := &configs.Conf{}
	conf.Database.DSN = filepath.Join(t.TempDir(), "podcasts.db")
	conf.Storage.Backend = "ftp"
	conf.SetDefaults()

	app, err := NewApplication(context.Background(), conf)
	assert.Nil(t, app)
	assert.EqualError(t, err, `unknown storage backend "ftp"`)
}
