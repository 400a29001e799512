package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shard-legends/clan-service/internal/models"
)

// UserFixture is a user row; ClanTag and Privilege place them in a clan
type UserFixture struct {
	ID        int    `yaml:"id"`
	Username  string `yaml:"username"`
	ClanTag   string `yaml:"clan_tag"`
	Privilege string `yaml:"privilege"`
}

// ClanFixture is a clan row; its owner is attached with Owner privilege
type ClanFixture struct {
	Name        string  `yaml:"name"`
	Tag         string  `yaml:"tag"`
	Description *string `yaml:"description"`
	OwnerID     int     `yaml:"owner_id"`
}

// StatsFixture is one user_stats row
type StatsFixture struct {
	UserID      int     `yaml:"user_id"`
	Mode        string  `yaml:"mode"`
	PP          float64 `yaml:"pp"`
	Accuracy    float64 `yaml:"accuracy"`
	RankedScore int64   `yaml:"ranked_score"`
	PlayCount   int64   `yaml:"play_count"`
}

// GradesFixture is one user_grades row
type GradesFixture struct {
	UserID int    `yaml:"user_id"`
	Mode   string `yaml:"mode"`
	XH     int64  `yaml:"xh"`
	X      int64  `yaml:"x"`
	SH     int64  `yaml:"sh"`
	S      int64  `yaml:"s"`
	A      int64  `yaml:"a"`
}

// Fixture is one seed file. Every section is optional.
type Fixture struct {
	Users  []UserFixture   `yaml:"users"`
	Clans  []ClanFixture   `yaml:"clans"`
	Stats  []StatsFixture  `yaml:"stats"`
	Grades []GradesFixture `yaml:"grades"`
}

func readFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return parseFixture(data)
}

func parseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("yaml parse: %w", err)
	}
	if err := f.normalize(); err != nil {
		return nil, err
	}
	return &f, nil
}

func parsePrivilege(raw string) (models.Privilege, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "member":
		return models.PrivilegeMember, nil
	case "officer":
		return models.PrivilegeOfficer, nil
	case "owner":
		return models.PrivilegeOwner, nil
	default:
		return models.PrivilegeNone, fmt.Errorf("unknown privilege %q", raw)
	}
}

// normalize upper-cases tags and checks the clan rules the service enforces
func (f *Fixture) normalize() error {
	tags := make(map[string]int, len(f.Clans))
	owners := make(map[int]string, len(f.Clans))

	for i := range f.Clans {
		c := &f.Clans[i]
		in := models.NormalizeClanInput(c.Name, c.Tag, c.Description)
		if err := models.ValidateClanInput(in); err != nil {
			return fmt.Errorf("clan %q: %w", c.Tag, err)
		}
		c.Name, c.Tag, c.Description = in.Name, in.Tag, in.Description

		if _, dup := tags[c.Tag]; dup {
			return fmt.Errorf("clan tag %s listed twice", c.Tag)
		}
		if other, dup := owners[c.OwnerID]; dup {
			return fmt.Errorf("user %d owns both %s and %s", c.OwnerID, other, c.Tag)
		}
		tags[c.Tag] = c.OwnerID
		owners[c.OwnerID] = c.Tag
	}

	for i := range f.Users {
		u := &f.Users[i]
		if u.ID <= 0 || u.Username == "" {
			return fmt.Errorf("user #%d needs an id and a username", i+1)
		}
		u.ClanTag = models.NormalizeTag(u.ClanTag)
		if u.ClanTag == "" {
			continue
		}

		priv, err := parsePrivilege(u.Privilege)
		if err != nil {
			return fmt.Errorf("user %d: %w", u.ID, err)
		}
		ownerID, known := tags[u.ClanTag]
		if !known {
			continue
		}
		if (priv == models.PrivilegeOwner) != (ownerID == u.ID) {
			return fmt.Errorf("user %d: owner privilege must match clan %s owner_id", u.ID, u.ClanTag)
		}
	}

	for _, s := range f.Stats {
		if _, err := models.ParseGameMode(s.Mode); err != nil {
			return fmt.Errorf("stats for user %d: %w", s.UserID, err)
		}
	}
	for _, g := range f.Grades {
		if _, err := models.ParseGameMode(g.Mode); err != nil {
			return fmt.Errorf("grades for user %d: %w", g.UserID, err)
		}
	}
	return nil
}
