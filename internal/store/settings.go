package store

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// Destination categories the bot posts to and gates permissions on
type Category string

const (
	GameChannels        Category = "GameChannels"
	HighlightChannels   Category = "HighlightChannels"
	MeetupChannels      Category = "MeetupChannels"
	FourTwentyChannels  Category = "FourTwentyChannels"
	SocialMediaChannels Category = "SocialMediaChannels"
	ModMailChannels     Category = "ModMailChannels"
)

const settingsBucket = "settings"

type ChannelSet struct {
	Channels []string `json:"channels"`
	Roles    []string `json:"roles"`
}

type SettingsStore struct {
	db *DB
}

func NewSettingsStore(db *DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) get(category Category) (ChannelSet, error) {
	var set ChannelSet
	err := s.db.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(settingsBucket))
		if b == nil {
			return NotFoundErr
		}
		data := b.Get([]byte(category))
		if data == nil {
			return NotFoundErr
		}
		if err := json.Unmarshal(data, &set); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		return nil
	})
	return set, err
}

// Channels configured for a category. An unconfigured category is
// an empty list, not an error: the loops treat it as nothing to do
func (s *SettingsStore) Channels(category Category) ([]string, error) {
	set, err := s.get(category)
	if err == NotFoundErr {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return set.Channels, nil
}

func (s *SettingsStore) Roles(category Category) ([]string, error) {
	set, err := s.get(category)
	if err == NotFoundErr {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return set.Roles, nil
}

func (s *SettingsStore) Set(category Category, set ChannelSet) error {
	return s.db.DB.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(settingsBucket))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		data, err := json.Marshal(set)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		return b.Put([]byte(category), data)
	})
}
