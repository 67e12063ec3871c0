// Package seed loads demo data into a hybrid-work database.
package seed

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/hybrid-work/internal/persistence"
)

//go:embed demo.yaml
var demoYAML []byte

// Dataset is the YAML document accepted by the seeder.
type Dataset struct {
	Org            string          `yaml:"org"`
	Users          []UserSeed      `yaml:"users"`
	DeskGrids      []DeskGrid      `yaml:"desk_grids"`
	Presence       []PresenceSeed  `yaml:"presence"`
	DirectMessages []DirectMessage `yaml:"direct_messages"`
	Events         []EventSeed     `yaml:"events"`
}

// UserSeed is a member account. The password is hashed on insert.
type UserSeed struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	TimeZone string `yaml:"time_zone"`
}

// DeskGrid lays out Count desks labelled Prefix1..PrefixN row by row.
type DeskGrid struct {
	Floor   string `yaml:"floor"`
	Prefix  string `yaml:"prefix"`
	Count   int    `yaml:"count"`
	Columns int    `yaml:"columns"`
	Spacing int    `yaml:"spacing"`
	Margin  int    `yaml:"margin"`
}

// Desks expands the grid. Desk i (zero based) sits at
// x = (i%Columns)*Spacing+Margin, y = (i/Columns)*Spacing+Margin.
func (g DeskGrid) Desks() []persistence.Desk {
	desks := make([]persistence.Desk, 0, g.Count)
	for i := 0; i < g.Count; i++ {
		desks = append(desks, persistence.Desk{
			FloorID: g.Floor,
			Label:   fmt.Sprintf("%s%d", g.Prefix, i+1),
			X:       (i%g.Columns)*g.Spacing + g.Margin,
			Y:       (i/g.Columns)*g.Spacing + g.Margin,
		})
	}
	return desks
}

// PresenceSeed sets the presence row of a user.
type PresenceSeed struct {
	User     string `yaml:"user"`
	Status   string `yaml:"status"`
	Location string `yaml:"location"`
}

// DirectMessage is a DM thread and the messages posted when it is empty.
type DirectMessage struct {
	Participants []string      `yaml:"participants"`
	Messages     []MessageSeed `yaml:"messages"`
}

// MessageSeed is one message of a seeded thread.
type MessageSeed struct {
	Sender string `yaml:"sender"`
	Body   string `yaml:"body"`
}

// EventSeed is a calendar event placed relative to the seeding time. The ID
// is stable so reseeding moves the event instead of duplicating it.
type EventSeed struct {
	ID         string        `yaml:"id"`
	Owner      string        `yaml:"owner"`
	Title      string        `yaml:"title"`
	StartsIn   time.Duration `yaml:"starts_in"`
	Duration   time.Duration `yaml:"duration"`
	Visibility string        `yaml:"visibility"`
	Location   string        `yaml:"location"`
}

// Demo returns the built-in demo dataset.
func Demo() (Dataset, error) {
	return Parse(demoYAML)
}

// LoadFile reads and validates a dataset from a YAML file.
func LoadFile(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML dataset.
func Parse(data []byte) (Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return Dataset{}, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if strings.TrimSpace(ds.Org) == "" {
		ds.Org = "acme"
	}
	for i := range ds.DeskGrids {
		grid := &ds.DeskGrids[i]
		if grid.Columns <= 0 {
			grid.Columns = 5
		}
		if grid.Spacing <= 0 {
			grid.Spacing = 120
		}
	}
	for i := range ds.Users {
		if ds.Users[i].TimeZone == "" {
			ds.Users[i].TimeZone = "UTC"
		}
	}
	if err := ds.Validate(); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}

// Validate checks references between sections and enum values.
func (d Dataset) Validate() error {
	users := make(map[string]bool, len(d.Users))
	for i, u := range d.Users {
		if u.ID == "" || u.Email == "" || u.Name == "" {
			return fmt.Errorf("users[%d]: id, name and email are required", i)
		}
		if len(u.Password) < 6 {
			return fmt.Errorf("user %q: password must be at least 6 characters long", u.ID)
		}
		users[u.ID] = true
	}
	for i, g := range d.DeskGrids {
		if g.Floor == "" || g.Count <= 0 {
			return fmt.Errorf("desk_grids[%d]: floor and a positive count are required", i)
		}
	}
	for _, p := range d.Presence {
		if !users[p.User] {
			return fmt.Errorf("presence: unknown user %q", p.User)
		}
		if !persistence.PresenceStatus(p.Status).Valid() {
			return fmt.Errorf("presence %q: invalid status %q", p.User, p.Status)
		}
		if !persistence.WorkLocation(p.Location).Valid() {
			return fmt.Errorf("presence %q: invalid location %q", p.User, p.Location)
		}
	}
	for i, dm := range d.DirectMessages {
		if len(dm.Participants) != 2 || dm.Participants[0] == dm.Participants[1] {
			return fmt.Errorf("direct_messages[%d]: exactly two distinct participants are required", i)
		}
		members := map[string]bool{}
		for _, id := range dm.Participants {
			if !users[id] {
				return fmt.Errorf("direct_messages[%d]: unknown user %q", i, id)
			}
			members[id] = true
		}
		for _, m := range dm.Messages {
			if !members[m.Sender] {
				return fmt.Errorf("direct_messages[%d]: sender %q is not a participant", i, m.Sender)
			}
		}
	}
	for _, e := range d.Events {
		if e.ID == "" || !users[e.Owner] {
			return fmt.Errorf("event %q: id and a known owner are required", e.ID)
		}
		if e.Duration <= 0 {
			return fmt.Errorf("event %q: duration must be positive", e.ID)
		}
		if !persistence.Visibility(e.Visibility).Valid() {
			return fmt.Errorf("event %q: invalid visibility %q", e.ID, e.Visibility)
		}
	}
	return nil
}
