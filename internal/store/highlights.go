package store

import (
	"encoding/json"
	"fmt"

	"rinkbot/internal/nhlapi"

	bolt "go.etcd.io/bbolt"
)

const highlightsBucket = "highlights"

// One posted goal. The description is the text the watcher compares
// to detect a scoring change on review: when it changes, the posted
// message gets edited in place, never reposted
type GoalRecord struct {
	EventId     int64      `json:"event_id"`
	Description string     `json:"description"`
	Scorer      string     `json:"scorer"`
	Assists     string     `json:"assists"`
	Time        string     `json:"time"`
	Message     MessageRef `json:"message"`
}

// Goal records persisted per game, so a watcher restarted in the
// middle of a game picks up its cache instead of reposting
type HighlightStore struct {
	db *DB
}

func NewHighlightStore(db *DB) *HighlightStore {
	return &HighlightStore{db: db}
}

func eventKey(event int64) []byte {
	return []byte(fmt.Sprintf("%d", event))
}

func (s *HighlightStore) Goals(id nhlapi.GameId) (map[int64]GoalRecord, error) {
	goals := map[int64]GoalRecord{}
	err := s.db.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(highlightsBucket))
		if b == nil {
			return nil
		}
		game := b.Bucket(gameKey(id))
		if game == nil {
			return nil
		}
		return game.ForEach(func(k, v []byte) error {
			var record GoalRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("unmarshal: %w", err)
			}
			goals[record.EventId] = record
			return nil
		})
	})
	return goals, err
}

func (s *HighlightStore) PutGoal(id nhlapi.GameId, record GoalRecord) error {
	return s.db.DB.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(highlightsBucket))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		game, err := b.CreateBucketIfNotExists(gameKey(id))
		if err != nil {
			return fmt.Errorf("create game bucket: %w", err)
		}
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		return game.Put(eventKey(record.EventId), data)
	})
}

// Drop the whole cache for a game once its watcher is done with it
func (s *HighlightStore) DeleteGame(id nhlapi.GameId) error {
	return s.db.DB.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(highlightsBucket))
		if b == nil {
			return nil
		}
		if b.Bucket(gameKey(id)) == nil {
			return nil
		}
		return b.DeleteBucket(gameKey(id))
	})
}
