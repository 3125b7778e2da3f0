package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carebook-server/internal/models"
	"carebook-server/internal/store"
	"carebook-server/internal/testutil"
)

type failingPurger struct{}

func (failingPurger) PurgeRefreshTokens(context.Context, time.Time) (int64, error) {
	return 0, errors.New("db down")
}

func TestPurgeTokens(t *testing.T) {
	st := store.New(testutil.NewDB(t))
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, st.SaveRefreshToken(ctx, &models.RefreshToken{UserID: "u1", Token: "live", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, st.SaveRefreshToken(ctx, &models.RefreshToken{UserID: "u1", Token: "old", ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, st.SaveRefreshToken(ctx, &models.RefreshToken{UserID: "u1", Token: "revoked", ExpiresAt: now.Add(time.Hour), IsRevoked: true}))

	s := NewScheduler(st, zerolog.Nop())
	s.now = func() time.Time { return now }
	assert.Equal(t, int64(2), s.PurgeTokens(ctx))

	_, err := st.ActiveRefreshToken(ctx, "live", "u1")
	assert.NoError(t, err)
}

func TestPurgeTokens_ErrorIsLogged(t *testing.T) {
	s := NewScheduler(failingPurger{}, zerolog.Nop())
	assert.Equal(t, int64(0), s.PurgeTokens(context.Background()))
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	s := NewScheduler(failingPurger{}, zerolog.Nop())
	assert.Error(t, s.Start("not a schedule"))

	require.NoError(t, s.Start("@daily"))
	s.Stop()
}
