package pickems

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"rinkbot/internal/nhlapi"
	"rinkbot/internal/store"
)

type fakeSource struct {
	day   []nhlapi.GameSnapshot
	games map[nhlapi.GameId]nhlapi.GameSnapshot
}

func (f *fakeSource) FetchScheduleForDate(ctx context.Context, date time.Time) ([]nhlapi.GameSnapshot, error) {
	return f.day, nil
}

func (f *fakeSource) Refresh(ctx context.Context, id nhlapi.GameId) (nhlapi.GameSnapshot, error) {
	game, ok := f.games[id]
	if !ok {
		return nhlapi.GameSnapshot{}, fmt.Errorf("no game %d", id)
	}
	return game, nil
}

type fakePoster struct {
	posted   []nhlapi.GameId
	disabled []nhlapi.GameId
}

func (f *fakePoster) PostGame(ctx context.Context, channelId string, game nhlapi.GameSnapshot) (store.MessageRef, error) {
	f.posted = append(f.posted, game.Id)
	return store.MessageRef{ChannelId: channelId, MessageId: fmt.Sprintf("msg-%d", game.Id)}, nil
}

func (f *fakePoster) DisableButtons(ctx context.Context, ref store.MessageRef, game nhlapi.GameSnapshot) error {
	f.disabled = append(f.disabled, game.Id)
	return nil
}

func openTestStore(t *testing.T) *store.PickemsStore {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewPickemsStore(db)
}

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

// The fake clock moves forward with every sleep, so the lock watch
// reaches its deadline instead of spinning
func wire(s *Scheduler) {
	current := testNow
	s.now = func() time.Time { return current }
	s.sleep = func(ctx context.Context, d time.Duration) error {
		current = current.Add(d)
		return nil
	}
}

func regularGame(id nhlapi.GameId, state nhlapi.GameState) nhlapi.GameSnapshot {
	return nhlapi.GameSnapshot{
		Id:            id,
		Season:        "20252026",
		GameType:      nhlapi.GameTypeRegularSeason,
		HomeTeamId:    1,
		AwayTeamId:    3,
		HomeName:      "New Jersey Devils",
		AwayName:      "New York Rangers",
		StartTimeUTC:  testNow.Add(7 * time.Hour),
		State:         state,
		ScheduleState: nhlapi.ScheduleStateOK,
	}
}

func TestSchedulerPostsAndLocks(t *testing.T) {
	gameA := regularGame(100, nhlapi.GameStateLive)
	playoff := regularGame(300, nhlapi.GameStateScheduled)
	playoff.GameType = nhlapi.GameTypePlayoffs

	source := &fakeSource{
		day:   []nhlapi.GameSnapshot{gameA, playoff},
		games: map[nhlapi.GameId]nhlapi.GameSnapshot{100: gameA},
	}
	poster := &fakePoster{}
	picks := openTestStore(t)
	s := NewScheduler(source, picks, poster, Config{ChannelId: "pickems"})
	wire(s)

	if err := s.runDay(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(poster.posted) != 1 || poster.posted[0] != 100 {
		t.Fatalf("posted = %v, playoff games get no prediction message", poster.posted)
	}
	if len(poster.disabled) != 1 || poster.disabled[0] != 100 {
		t.Fatalf("disabled = %v, the live game should be locked", poster.disabled)
	}

	msg, err := picks.GetMessage(100)
	if err != nil {
		t.Fatal(err)
	}
	if !msg.Locked || msg.Season != "20252026" {
		t.Errorf("message = %+v", msg)
	}
}

func TestSchedulerSkipsExistingMessage(t *testing.T) {
	game := regularGame(100, nhlapi.GameStateLive)
	source := &fakeSource{
		day:   []nhlapi.GameSnapshot{game},
		games: map[nhlapi.GameId]nhlapi.GameSnapshot{100: game},
	}
	poster := &fakePoster{}
	picks := openTestStore(t)

	// A previous run already posted this game
	existing := store.PickMessage{GameId: 100, Ref: store.MessageRef{ChannelId: "pickems", MessageId: "old"}, Season: "20252026", Date: "2026-03-15"}
	if err := picks.PutMessage(existing); err != nil {
		t.Fatal(err)
	}

	s := NewScheduler(source, picks, poster, Config{ChannelId: "pickems"})
	wire(s)
	if err := s.runDay(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(poster.posted) != 0 {
		t.Errorf("posted = %v, the existing message must be kept", poster.posted)
	}
	msg, err := picks.GetMessage(100)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Ref.MessageId != "old" {
		t.Errorf("ref = %+v, the old message record got replaced", msg.Ref)
	}
}

func TestSchedulerLocksPostponedGame(t *testing.T) {
	scheduled := regularGame(100, nhlapi.GameStateScheduled)
	ppd := scheduled
	ppd.ScheduleState = nhlapi.ScheduleStatePostponed

	source := &fakeSource{
		day:   []nhlapi.GameSnapshot{scheduled},
		games: map[nhlapi.GameId]nhlapi.GameSnapshot{100: ppd},
	}
	poster := &fakePoster{}
	s := NewScheduler(source, openTestStore(t), poster, Config{ChannelId: "pickems"})
	wire(s)

	if err := s.runDay(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(poster.disabled) != 1 {
		t.Errorf("disabled = %v, a postponed game locks too", poster.disabled)
	}
}

func TestSchedulerIgnoresUnknownReading(t *testing.T) {
	// The feed glitches and reports no recognisable state: that is
	// not a reading, the buttons stay enabled
	scheduled := regularGame(100, nhlapi.GameStateScheduled)
	glitchy := scheduled
	glitchy.State = nhlapi.GameStateUnknown

	source := &fakeSource{
		day:   []nhlapi.GameSnapshot{scheduled},
		games: map[nhlapi.GameId]nhlapi.GameSnapshot{100: glitchy},
	}
	poster := &fakePoster{}
	picks := openTestStore(t)
	s := NewScheduler(source, picks, poster, Config{ChannelId: "pickems"})
	wire(s)

	if err := s.runDay(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(poster.disabled) != 0 {
		t.Errorf("disabled = %v, an Unknown reading must not lock the game", poster.disabled)
	}
	msg, err := picks.GetMessage(100)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Locked {
		t.Error("message record should not be marked locked")
	}
}

func TestSchedulerRehydratesLockSet(t *testing.T) {
	game := regularGame(100, nhlapi.GameStateLive)
	picks := openTestStore(t)

	msg := store.PickMessage{GameId: 100, Ref: store.MessageRef{ChannelId: "pickems", MessageId: "old"}, Season: "20252026", Date: "2026-03-15"}
	if err := picks.PutMessage(msg); err != nil {
		t.Fatal(err)
	}
	if err := picks.SetLocked(100); err != nil {
		t.Fatal(err)
	}

	source := &fakeSource{
		day:   []nhlapi.GameSnapshot{game},
		games: map[nhlapi.GameId]nhlapi.GameSnapshot{100: game},
	}
	poster := &fakePoster{}
	s := NewScheduler(source, picks, poster, Config{ChannelId: "pickems"})
	wire(s)

	if err := s.runDay(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(poster.disabled) != 0 {
		t.Errorf("disabled = %v, a restart must not re-disable the buttons", poster.disabled)
	}
}

func TestSchedulerGivesUpAtDeadline(t *testing.T) {
	// The game never starts: the watch ends when the day is over
	game := regularGame(100, nhlapi.GameStateScheduled)
	source := &fakeSource{
		day:   []nhlapi.GameSnapshot{game},
		games: map[nhlapi.GameId]nhlapi.GameSnapshot{100: game},
	}
	poster := &fakePoster{}
	s := NewScheduler(source, openTestStore(t), poster, Config{ChannelId: "pickems"})
	wire(s)

	if err := s.runDay(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(poster.disabled) != 0 {
		t.Errorf("disabled = %v", poster.disabled)
	}
}
