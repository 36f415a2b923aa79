package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"immigration/internal/cli/bootstrap"
	"immigration/internal/config"
	"immigration/internal/middleware"
	"immigration/internal/model"
	"immigration/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		DatabaseDSN:  filepath.Join(dir, "immigration.db"),
		MediaRoot:    filepath.Join(dir, "media"),
		PhotoBackend: "fs",
		PhotoMaxMB:   5,
		PhotoMaxPx:   1024,
		AuthSecret:   "test-secret",
		RecentDays:   30,
	}
}

// seed создаёт документы через те же сервисы, что и команды.
func seed(t *testing.T, cfg *config.Config, fn func(app *bootstrap.App)) {
	t.Helper()
	app, cleanup, err := bootstrap.Open(cfg, Logger)
	require.NoError(t, err)
	defer func() { require.NoError(t, cleanup()) }()
	fn(app)
}

func newDocument(region string) *model.TravelDocument {
	birth := time.Date(1988, 2, 14, 0, 0, 0, 0, time.UTC)
	return &model.TravelDocument{
		FullName:             "Xaliimo Cabdi Nuur",
		MotherName:           "Hodan Axmed",
		BirthDate:            &birth,
		BirthPlace:           "Hargeysa",
		IdentificationNumber: "ID77812",
		Region:               region,
		District:             "Hodan",
		SponsorName:          "Hormuud",
		PhoneNumber:          "+252 61 555 0101",
		HasSponsorID:         true,
	}
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{G: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestStatsCmd(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	seed(t, cfg, func(app *bootstrap.App) {
		for _, region := range []string{"Banadir", "Banadir", "Bari"} {
			_, err := app.Documents.Create(ctx, newDocument(region), service.Actor{})
			require.NoError(t, err)
		}
	})

	out := withStdoutCapture(t, func() {
		require.NoError(t, (statsCmd{}).Run(ctx, cfg, nil))
	})
	assert.Contains(t, out, "Travel documents: 3")
	assert.Contains(t, out, "filled:   3")
	assert.Contains(t, out, "Top regions:")
	assert.Contains(t, out, "Banadir")
	assert.Contains(t, out, "degmada:  0")

	out = withStdoutCapture(t, func() {
		require.NoError(t, (statsCmd{}).Run(ctx, cfg, []string{"7"}))
	})
	assert.Contains(t, out, "created in last 7 days")

	assert.ErrorIs(t, (statsCmd{}).Run(ctx, cfg, []string{"zero"}), ErrUsage)
	assert.ErrorIs(t, (statsCmd{}).Run(ctx, cfg, []string{"-3"}), ErrUsage)
	assert.ErrorIs(t, (statsCmd{}).Run(ctx, cfg, []string{"1", "2"}), ErrUsage)
}

func TestBackupCmd(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	seed(t, cfg, func(app *bootstrap.App) {
		_, err := app.Documents.Create(ctx, newDocument("Banadir"), service.Actor{})
		require.NoError(t, err)
	})

	path := filepath.Join(t.TempDir(), "dump.json")
	out := withStdoutCapture(t, func() {
		require.NoError(t, (backupCmd{}).Run(ctx, cfg, []string{path}))
	})
	assert.Contains(t, out, "Backup written to "+path+": 1 documents, 0 degmada forms, 0 kafiilka forms")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var dump service.Backup
	require.NoError(t, json.Unmarshal(raw, &dump))
	require.Len(t, dump.TravelDocuments, 1)
	assert.Equal(t, "Banadir", dump.TravelDocuments[0].Region)
	assert.NotNil(t, dump.DegmadaForms)

	assert.ErrorIs(t, (backupCmd{}).Run(ctx, cfg, []string{"a", "b"}), ErrUsage)
	assert.Error(t, (backupCmd{}).Run(ctx, cfg, []string{filepath.Join(t.TempDir(), "missing", "dump.json")}))
}

func TestCleanupPhotosCmd(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	var kept string
	seed(t, cfg, func(app *bootstrap.App) {
		doc, err := app.Documents.Create(ctx, newDocument("Banadir"), service.Actor{})
		require.NoError(t, err)
		kept, err = app.Documents.SetPhoto(ctx, doc.ID, pngImage(t))
		require.NoError(t, err)
	})
	stray := filepath.Join(cfg.MediaRoot, "travel_documents", "stray.jpg")
	require.NoError(t, os.MkdirAll(filepath.Dir(stray), 0o755))
	require.NoError(t, os.WriteFile(stray, []byte("x"), 0o644))

	out := withStdoutCapture(t, func() {
		require.NoError(t, (cleanupPhotosCmd{}).Run(ctx, cfg, []string{"--dry-run"}))
	})
	assert.Contains(t, out, "Would remove 1 orphaned photos:")
	assert.Contains(t, out, "travel_documents/stray.jpg")
	assert.NotContains(t, out, kept)
	assert.FileExists(t, stray)

	out = withStdoutCapture(t, func() {
		require.NoError(t, (cleanupPhotosCmd{}).Run(ctx, cfg, nil))
	})
	assert.Contains(t, out, "Removed 1 of 1 orphaned photos")
	assert.NoFileExists(t, stray)
	assert.FileExists(t, filepath.Join(cfg.MediaRoot, filepath.FromSlash(kept)))

	out = withStdoutCapture(t, func() {
		require.NoError(t, (cleanupPhotosCmd{}).Run(ctx, cfg, nil))
	})
	assert.Contains(t, out, "No orphaned photos found")

	assert.ErrorIs(t, (cleanupPhotosCmd{}).Run(ctx, cfg, []string{"--force"}), ErrUsage)
}

func TestTokenCmd(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	out := withStdoutCapture(t, func() {
		require.NoError(t, (tokenCmd{}).Run(ctx, cfg, []string{"clerk"}))
	})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Created user clerk")
	uid, err := middleware.ParseToken(lines[1], cfg.AuthSecret)
	require.NoError(t, err)
	assert.NotZero(t, uid)

	out = withStdoutCapture(t, func() {
		require.NoError(t, (tokenCmd{}).Run(ctx, cfg, []string{"clerk"}))
	})
	lines = strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	again, err := middleware.ParseToken(lines[0], cfg.AuthSecret)
	require.NoError(t, err)
	assert.Equal(t, uid, again)

	assert.ErrorIs(t, (tokenCmd{}).Run(ctx, cfg, nil), ErrUsage)
}

func TestPasswdCmd(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	out := withStdoutCapture(t, func() {
		require.NoError(t, (passwdCmd{}).Run(ctx, cfg, []string{"clerk", "s3cret"}))
	})
	assert.Contains(t, out, "Created user clerk")
	assert.Contains(t, out, "Password updated for clerk")

	seed(t, cfg, func(app *bootstrap.App) {
		u, err := app.Users.Login(ctx, "clerk", "s3cret")
		require.NoError(t, err)
		assert.Equal(t, "clerk", u.Username)
		_, err = app.Users.Login(ctx, "clerk", "other")
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	assert.ErrorIs(t, (passwdCmd{}).Run(ctx, cfg, []string{"clerk"}), ErrUsage)
	assert.ErrorIs(t, (passwdCmd{}).Run(ctx, cfg, []string{"clerk", ""}), ErrUsage)
}
