package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ethduel/duel-server-go/internal/config"
	"github.com/ethduel/duel-server-go/internal/game"
	"github.com/ethduel/duel-server-go/internal/game/rules"
	"github.com/ethduel/duel-server-go/internal/notify"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("DUEL_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("DUEL_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := NewDB(ctx, config.DatabaseConfig{URL: url, MaxConns: 4}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	return db
}

func finishedState(id string) *game.StateView {
	created := time.Now().UTC().Truncate(time.Microsecond)
	finished := created.Add(time.Minute)
	return &game.StateView{
		GameID:     id,
		Status:     game.StatusFinished,
		Player1:    &game.PlayerView{Player: "0xAlice", ETH: 21},
		Player2:    &game.PlayerView{Player: "0xBob", ETH: 4},
		TurnNumber: 9,
		IsStarted:  true,
		IsFinished: true,
		Winner:     "0xAlice",
		Seq:        42,
		CreatedAt:  created,
		StartedAt:  &created,
		FinishedAt: &finished,
		Checksum:   "abc",
	}
}

func TestSaveAndGetFinishedGame(t *testing.T) {
	db := testDB(t)
	repo := NewGameRecordRepository(db)
	ctx := context.Background()
	id := uuid.NewString()

	state := finishedState(id)
	require.NoError(t, repo.SaveFinishedGame(ctx, state))
	// Upsert is idempotent.
	require.NoError(t, repo.SaveFinishedGame(ctx, state))

	got, err := repo.GetFinishedGame(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, state.Winner, got.Winner)
	assert.Equal(t, state.Seq, got.Seq)
	assert.Equal(t, int64(21), got.Player1.ETH)

	wins, err := repo.CountWins(ctx, "0xAlice")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, wins, 1)
}

func TestGetFinishedGameNotFound(t *testing.T) {
	repo := NewGameRecordRepository(testDB(t))
	_, err := repo.GetFinishedGame(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRejectsUnfinishedGame(t *testing.T) {
	repo := NewGameRecordRepository(&DB{})
	err := repo.SaveFinishedGame(context.Background(), &game.StateView{GameID: "g"})
	assert.Error(t, err)
}

func TestNotificationJournal(t *testing.T) {
	repo := NewGameRecordRepository(testDB(t))
	ctx := context.Background()
	id := uuid.NewString()
	at := time.Now().UTC().Truncate(time.Microsecond)

	ns := []notify.Notification{
		{Seq: 2, Kind: rules.EventPlayerJoined, GameID: id, Actor: "0xBob", Timestamp: at},
		{Seq: 1, Kind: rules.EventGameCreated, GameID: id, Actor: "0xAlice", Timestamp: at},
		{Seq: 3, Kind: rules.EventGameStarted, GameID: id, Actor: "0xAlice", Timestamp: at},
	}
	for _, n := range ns {
		require.NoError(t, repo.AppendNotification(ctx, n))
	}
	require.NoError(t, repo.AppendNotification(ctx, ns[0]))

	got, err := repo.ListNotifications(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, n := range got {
		assert.Equal(t, uint64(i+1), n.Seq)
	}
	assert.Equal(t, rules.EventGameCreated, got[0].Kind)
}
