package admin

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/fruitful/internal/common"
	"github.com/dmitrijs2005/fruitful/internal/server/config"
	"github.com/dmitrijs2005/fruitful/internal/server/models"
	"github.com/dmitrijs2005/fruitful/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, input string) (*App, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabaseDriver = config.DriverSQLite
	cfg.DatabaseDSN = "file:" + filepath.Join(t.TempDir(), "admin.db") + "?_pragma=foreign_keys(1)&_time_format=sqlite"
	cfg.LogLevel = "ERROR"

	var out bytes.Buffer
	app, err := NewApp(cfg, strings.NewReader(input), &out)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app, &out
}

func stubPasswords(t *testing.T, pws ...string) {
	t.Helper()
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) {
		pw := pws[0]
		pws = pws[1:]
		return []byte(pw), nil
	}
}

func TestRun_Commands(t *testing.T) {
	ctx := context.Background()
	app, out := newTestApp(t, "")

	assert.Error(t, app.Run(ctx, nil))
	assert.Contains(t, out.String(), "usage: admin")

	assert.Error(t, app.Run(ctx, []string{"frobnicate"}))
	assert.NoError(t, app.Run(ctx, []string{"help"}))

	out.Reset()
	require.NoError(t, app.Run(ctx, []string{"migrate", "-driver", "sqlite"}))
	assert.Equal(t, "Migrations applied\n", out.String())
	require.NoError(t, app.Run(ctx, []string{"migrate"}))
}

func TestCreateSuperuser(t *testing.T) {
	ctx := context.Background()
	app, out := newTestApp(t, "root@example.com\nRoot User\n")
	stubPasswords(t, "password123", "password123")

	require.NoError(t, app.Run(ctx, []string{"createsuperuser"}))
	assert.Contains(t, out.String(), "Superuser root@example.com created")

	u, err := app.users.GetByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.True(t, u.IsSuperuser)
	assert.Equal(t, "Root User", u.FullName)
}

func TestCreateSuperuser_Existing(t *testing.T) {
	ctx := context.Background()
	app, out := newTestApp(t, "root@example.com\nRoot\nroot@example.com\nRoot\n")
	stubPasswords(t, "password123", "password123", "password123", "password123")

	require.NoError(t, app.Run(ctx, []string{"createsuperuser"}))
	out.Reset()
	require.NoError(t, app.Run(ctx, []string{"createsuperuser"}))

	assert.Equal(t, "Email\n> Full name\n> Password: \nPassword (again): \nUser root@example.com already exists\n", out.String())
}

func TestCreateSuperuser_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		pws     []string
		wantErr error
	}{
		{name: "mismatch", input: "a@example.com\nA\n", pws: []string{"password123", "password124"}, wantErr: ErrPasswordMismatch},
		{name: "short password", input: "a@example.com\nA\n", pws: []string{"short", "short"}, wantErr: common.ErrorValidation},
		{name: "bad email", input: "nope\nA\n", pws: []string{"password123", "password123"}, wantErr: common.ErrorValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := newTestApp(t, tt.input)
			stubPasswords(t, tt.pws...)

			err := app.Run(context.Background(), []string{"createsuperuser"})

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	app, out := newTestApp(t, "")
	require.NoError(t, app.Run(ctx, []string{"migrate"}))

	now := timex.Stamp(time.Now())
	owner, err := app.repomanager.Users(app.db).Create(ctx, &models.User{
		Email: "owner@example.com", HashedPassword: "x", CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	stale := &models.Fruit{
		Name:      "old banana",
		UserID:    owner.ID,
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
		UpdatedAt: now.Add(-2 * time.Hour),
	}
	fresh := &models.Fruit{
		Name:      "new banana",
		UserID:    owner.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
		UpdatedAt: now,
	}
	require.NoError(t, app.repomanager.Fruits(app.db).Create(ctx, stale))
	require.NoError(t, app.repomanager.Fruits(app.db).Create(ctx, fresh))

	out.Reset()
	require.NoError(t, app.Run(ctx, []string{"sweep"}))
	assert.Equal(t, "Deleted 1 expired fruits\n", out.String())

	left, err := app.repomanager.Fruits(app.db).GetByIDs(ctx, []string{stale.ID, fresh.ID})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, fresh.ID, left[0].ID)
}
