package store

import (
	"testing"
	"time"

	"rinkbot/internal/nhlapi"
)

func TestPickRoundTrip(t *testing.T) {
	picks := NewPickemsStore(openTestDB(t))

	pick := Pick{
		UserId:   "user1",
		GameId:   100,
		TeamId:   1,
		Season:   "20252026",
		Date:     "2026-03-15",
		PickedAt: time.Now(),
	}
	if err := picks.PutPick(pick); err != nil {
		t.Fatal(err)
	}

	got, err := picks.GetPick(100, "user1")
	if err != nil {
		t.Fatal(err)
	}
	if got.TeamId != 1 || got.Graded {
		t.Errorf("pick = %+v", got)
	}

	// Changing your mind before the lock is allowed
	pick.TeamId = 2
	if err := picks.PutPick(pick); err != nil {
		t.Fatal(err)
	}
	got, err = picks.GetPick(100, "user1")
	if err != nil {
		t.Fatal(err)
	}
	if got.TeamId != 2 {
		t.Errorf("pick = %+v", got)
	}

	if _, err := picks.GetPick(100, "nobody"); err != NotFoundErr {
		t.Errorf("err = %v, want NotFoundErr", err)
	}
}

func TestGradePickIdempotent(t *testing.T) {
	picks := NewPickemsStore(openTestDB(t))

	pick := Pick{UserId: "user1", GameId: 100, TeamId: 1, Season: "20252026", Date: "2026-03-15"}
	if err := picks.PutPick(pick); err != nil {
		t.Fatal(err)
	}

	graded, err := picks.GradePick(100, "user1", true)
	if err != nil {
		t.Fatal(err)
	}
	if !graded {
		t.Fatal("first grading should report work done")
	}

	// Grading again changes nothing
	graded, err = picks.GradePick(100, "user1", true)
	if err != nil {
		t.Fatal(err)
	}
	if graded {
		t.Fatal("second grading should be a no-op")
	}

	record, err := picks.GetRecord("20252026", "user1")
	if err != nil {
		t.Fatal(err)
	}
	if record.Wins != 1 || record.Losses != 0 {
		t.Errorf("record = %+v, want 1-0", record)
	}

	// A graded pick cannot be overwritten anymore
	if err := picks.PutPick(pick); err == nil {
		t.Error("overwriting a graded pick should fail")
	}
}

func TestGradePickAccumulatesRecord(t *testing.T) {
	picks := NewPickemsStore(openTestDB(t))

	for i, won := range []bool{true, false, true} {
		pick := Pick{UserId: "user1", GameId: nhlapi.GameId(100 + i), TeamId: 1, Season: "20252026", Date: "2026-03-15"}
		if err := picks.PutPick(pick); err != nil {
			t.Fatal(err)
		}
		if _, err := picks.GradePick(pick.GameId, "user1", won); err != nil {
			t.Fatal(err)
		}
	}

	record, err := picks.GetRecord("20252026", "user1")
	if err != nil {
		t.Fatal(err)
	}
	if record.Wins != 2 || record.Losses != 1 {
		t.Errorf("record = %+v, want 2-1", record)
	}
}

func TestGradeMissingPick(t *testing.T) {
	picks := NewPickemsStore(openTestDB(t))
	if _, err := picks.GradePick(100, "nobody", true); err != NotFoundErr {
		t.Errorf("err = %v, want NotFoundErr", err)
	}
}

func TestDeletePicks(t *testing.T) {
	picks := NewPickemsStore(openTestDB(t))

	for _, user := range []string{"a", "b"} {
		if err := picks.PutPick(Pick{UserId: user, GameId: 100, TeamId: 1, Date: "2026-03-15"}); err != nil {
			t.Fatal(err)
		}
	}
	// A pick on another game must survive, even with a key that starts
	// with the same digits
	if err := picks.PutPick(Pick{UserId: "a", GameId: 1001, TeamId: 1, Date: "2026-03-15"}); err != nil {
		t.Fatal(err)
	}

	if err := picks.DeletePicks(100); err != nil {
		t.Fatal(err)
	}

	if _, err := picks.GetPick(100, "a"); err != NotFoundErr {
		t.Error("pick on deleted game should be gone")
	}
	if _, err := picks.GetPick(100, "b"); err != NotFoundErr {
		t.Error("pick on deleted game should be gone")
	}
	if _, err := picks.GetPick(1001, "a"); err != nil {
		t.Error("pick on another game should survive")
	}
}

func TestPicksForDate(t *testing.T) {
	picks := NewPickemsStore(openTestDB(t))

	if err := picks.PutPick(Pick{UserId: "a", GameId: 100, Date: "2026-03-15"}); err != nil {
		t.Fatal(err)
	}
	if err := picks.PutPick(Pick{UserId: "a", GameId: 101, Date: "2026-03-16"}); err != nil {
		t.Fatal(err)
	}

	got, err := picks.PicksForDate("2026-03-15")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].GameId != 100 {
		t.Errorf("picks = %+v", got)
	}
}

func TestMessageLockRehydration(t *testing.T) {
	picks := NewPickemsStore(openTestDB(t))

	for id, locked := range map[nhlapi.GameId]bool{100: true, 101: false, 102: true} {
		msg := PickMessage{GameId: id, Ref: MessageRef{ChannelId: "c", MessageId: "m"}, Date: "2026-03-15"}
		if err := picks.PutMessage(msg); err != nil {
			t.Fatal(err)
		}
		if locked {
			if err := picks.SetLocked(msg.GameId); err != nil {
				t.Fatal(err)
			}
		}
	}

	lockedSet, err := picks.LockedGames()
	if err != nil {
		t.Fatal(err)
	}
	if len(lockedSet) != 2 {
		t.Fatalf("locked = %v, want two games", lockedSet)
	}
	if _, ok := lockedSet[nhlapi.GameId(101)]; ok {
		t.Error("game 101 was never locked")
	}
}

func TestSetLockedMissingMessage(t *testing.T) {
	picks := NewPickemsStore(openTestDB(t))
	if err := picks.SetLocked(999); err != NotFoundErr {
		t.Errorf("err = %v, want NotFoundErr", err)
	}
}
