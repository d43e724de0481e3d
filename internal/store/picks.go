package store

import (
	"encoding/json"
	"fmt"
	"time"

	"rinkbot/internal/nhlapi"

	bolt "go.etcd.io/bbolt"
)

const (
	picksBucket    = "picks"
	messagesBucket = "messages"
	recordsBucket  = "records"
)

// A Discord message, addressed by channel and message id.
// Kept as a struct on purpose: no composite string keys
type MessageRef struct {
	ChannelId string `json:"channel_id"`
	MessageId string `json:"message_id"`
}

type Pick struct {
	UserId   string        `json:"user_id"`
	GameId   nhlapi.GameId `json:"game_id"`
	TeamId   nhlapi.TeamId `json:"team_id"`
	Season   nhlapi.Season `json:"season"`
	Date     string        `json:"date"`
	PickedAt time.Time     `json:"picked_at"`
	Graded   bool          `json:"graded"`
	Won      bool          `json:"won"`
}

// One prediction message per game. Locked mirrors the disabled state
// of the buttons so the lock set survives a restart
type PickMessage struct {
	GameId nhlapi.GameId `json:"game_id"`
	Ref    MessageRef    `json:"ref"`
	Season nhlapi.Season `json:"season"`
	Date   string        `json:"date"`
	Locked bool          `json:"locked"`
}

type Record struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
}

type PickemsStore struct {
	db *DB
}

func NewPickemsStore(db *DB) *PickemsStore {
	return &PickemsStore{db: db}
}

func gameKey(id nhlapi.GameId) []byte {
	return []byte(fmt.Sprintf("%d", id))
}

func pickKey(id nhlapi.GameId, user string) []byte {
	return []byte(fmt.Sprintf("%d/%s", id, user))
}

func recordKey(season nhlapi.Season, user string) []byte {
	return []byte(fmt.Sprintf("%s/%s", season, user))
}

func (s *PickemsStore) PutMessage(msg PickMessage) error {
	return s.db.DB.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(messagesBucket))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		return b.Put(gameKey(msg.GameId), data)
	})
}

func (s *PickemsStore) GetMessage(id nhlapi.GameId) (PickMessage, error) {
	var msg PickMessage
	err := s.db.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(messagesBucket))
		if b == nil {
			return NotFoundErr
		}
		data := b.Get(gameKey(id))
		if data == nil {
			return NotFoundErr
		}
		return json.Unmarshal(data, &msg)
	})
	return msg, err
}

// Mark the game's buttons as disabled. Safe to call again for a
// game that is already locked
func (s *PickemsStore) SetLocked(id nhlapi.GameId) error {
	return s.db.DB.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(messagesBucket))
		if b == nil {
			return NotFoundErr
		}
		data := b.Get(gameKey(id))
		if data == nil {
			return NotFoundErr
		}
		var msg PickMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		msg.Locked = true
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		return b.Put(gameKey(id), data)
	})
}

// The set of games whose buttons have been disabled this season.
// Read once at start-up to rehydrate the in-memory lock set
func (s *PickemsStore) LockedGames() (map[nhlapi.GameId]struct{}, error) {
	locked := map[nhlapi.GameId]struct{}{}
	err := s.db.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(messagesBucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var msg PickMessage
			if err := json.Unmarshal(v, &msg); err != nil {
				return fmt.Errorf("unmarshal: %w", err)
			}
			if msg.Locked {
				locked[msg.GameId] = struct{}{}
			}
			return nil
		})
	})
	return locked, err
}

// Create or update a user's pick for a game.
// A graded pick does not change anymore
func (s *PickemsStore) PutPick(pick Pick) error {
	return s.db.DB.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(picksBucket))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		key := pickKey(pick.GameId, pick.UserId)
		if data := b.Get(key); data != nil {
			var existing Pick
			if err := json.Unmarshal(data, &existing); err == nil && existing.Graded {
				return fmt.Errorf("pick for game %d by %s is already graded", pick.GameId, pick.UserId)
			}
		}
		data, err := json.Marshal(pick)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		return b.Put(key, data)
	})
}

func (s *PickemsStore) GetPick(id nhlapi.GameId, user string) (Pick, error) {
	var pick Pick
	err := s.db.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(picksBucket))
		if b == nil {
			return NotFoundErr
		}
		data := b.Get(pickKey(id, user))
		if data == nil {
			return NotFoundErr
		}
		return json.Unmarshal(data, &pick)
	})
	return pick, err
}

// All picks made for games on one calendar date
func (s *PickemsStore) PicksForDate(date string) ([]Pick, error) {
	var picks []Pick
	err := s.db.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(picksBucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var pick Pick
			if err := json.Unmarshal(v, &pick); err != nil {
				return fmt.Errorf("unmarshal: %w", err)
			}
			if pick.Date == date {
				picks = append(picks, pick)
			}
			return nil
		})
	})
	return picks, err
}

// Remove every pick for a game. Postponed and cancelled games have
// no outcome to grade against
func (s *PickemsStore) DeletePicks(id nhlapi.GameId) error {
	return s.db.DB.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(picksBucket))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		prefix := []byte(fmt.Sprintf("%d/", id))
		for k, _ := c.Seek(prefix); k != nil && len(k) >= len(prefix) && string(k[:len(prefix)]) == string(prefix); k, _ = c.Next() {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Grade one pick against the game's outcome and bump the user's
// season record, all in one transaction. A pick that is already
// graded is left alone, so re-running a grading pass for the same
// date cannot double count
func (s *PickemsStore) GradePick(id nhlapi.GameId, user string, won bool) (bool, error) {
	graded := false
	err := s.db.DB.Update(func(tx *bolt.Tx) error {
		picks := tx.Bucket([]byte(picksBucket))
		if picks == nil {
			return NotFoundErr
		}
		key := pickKey(id, user)
		data := picks.Get(key)
		if data == nil {
			return NotFoundErr
		}
		var pick Pick
		if err := json.Unmarshal(data, &pick); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if pick.Graded {
			return nil
		}
		pick.Graded = true
		pick.Won = won

		data, err := json.Marshal(pick)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		if err := picks.Put(key, data); err != nil {
			return err
		}

		records, err := tx.CreateBucketIfNotExists([]byte(recordsBucket))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		var record Record
		if data := records.Get(recordKey(pick.Season, user)); data != nil {
			if err := json.Unmarshal(data, &record); err != nil {
				return fmt.Errorf("unmarshal: %w", err)
			}
		}
		if won {
			record.Wins++
		} else {
			record.Losses++
		}
		data, err = json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		if err := records.Put(recordKey(pick.Season, user), data); err != nil {
			return err
		}
		graded = true
		return nil
	})
	return graded, err
}

func (s *PickemsStore) GetRecord(season nhlapi.Season, user string) (Record, error) {
	var record Record
	err := s.db.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(recordsBucket))
		if b == nil {
			return NotFoundErr
		}
		data := b.Get(recordKey(season, user))
		if data == nil {
			return NotFoundErr
		}
		return json.Unmarshal(data, &record)
	})
	return record, err
}
