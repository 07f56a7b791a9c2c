package corpus

import (
	"slices"
	"time"

	"github.com/FocuswithJustin/corporeum/core/errors"
)

// timeNow is the clock used for created/modified stamps. Tests replace it.
var timeNow = time.Now

// Metadata describes a corpus: its name, authors and revision history.
type Metadata struct {
	name        string
	description string
	version     uint16
	created     time.Time
	modified    time.Time
	authors     []Author
}

// NewMetadata creates metadata for a corpus called name, at version 0,
// stamped as created now.
func NewMetadata(name string) *Metadata {
	return &Metadata{
		name:    name,
		created: stamp(timeNow()),
	}
}

func (m *Metadata) Name() string            { return m.name }
func (m *Metadata) SetName(name string)     { m.name = name }
func (m *Metadata) Description() string     { return m.description }
func (m *Metadata) SetDescription(d string) { m.description = d }
func (m *Metadata) Version() uint16         { return m.version }
func (m *Metadata) SetVersion(v uint16)     { m.version = v }

// Created returns the creation time; the zero time means unknown.
func (m *Metadata) Created() time.Time { return m.created }

// SetCreated sets the creation time, truncated to whole seconds in UTC to
// match what every codec stores.
func (m *Metadata) SetCreated(t time.Time) { m.created = stamp(t) }

// Modified returns the last modification time; the zero time means unknown.
func (m *Metadata) Modified() time.Time { return m.modified }

// SetModified sets the last modification time, truncated like SetCreated.
func (m *Metadata) SetModified(t time.Time) { m.modified = stamp(t) }

// stamp normalizes a timestamp to stored precision. The zero time stays
// zero.
func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC().Truncate(time.Second)
}

// BumpVersion increments the version and stamps the modification time.
// The version saturates at its maximum.
func (m *Metadata) BumpVersion() uint16 {
	if m.version < ^uint16(0) {
		m.version++
	}
	m.modified = stamp(timeNow())
	return m.version
}

// Authors returns a copy of the author list.
func (m *Metadata) Authors() []Author {
	return slices.Clone(m.authors)
}

// AddAuthor appends an author. Authors are unique by first and last name;
// a second author with the same pair is rejected.
func (m *Metadata) AddAuthor(a Author) error {
	if a.firstName == "" && a.lastName == "" {
		return errors.NewValidation("author", "first or last name is required")
	}
	if err := checkUTF8("author", a.firstName, a.lastName, a.mail); err != nil {
		return err
	}
	if m.authorIndex(a.firstName, a.lastName) >= 0 {
		return errors.NewDuplicate("author", a.FullName()+" already listed")
	}
	m.authors = append(m.authors, a)
	return nil
}

// RemoveAuthor removes the author with the given names.
func (m *Metadata) RemoveAuthor(firstName, lastName string) error {
	i := m.authorIndex(firstName, lastName)
	if i < 0 {
		return errors.NewNotFound("author", firstName+" "+lastName)
	}
	m.authors = slices.Delete(m.authors, i, i+1)
	return nil
}

func (m *Metadata) authorIndex(firstName, lastName string) int {
	return slices.IndexFunc(m.authors, func(a Author) bool {
		return a.firstName == firstName && a.lastName == lastName
	})
}

// Author is a corpus contributor. Mail is optional.
type Author struct {
	firstName string
	lastName  string
	mail      string
}

// NewAuthor creates an author. Pass "" for an unknown mail address.
func NewAuthor(firstName, lastName, mail string) Author {
	return Author{firstName: firstName, lastName: lastName, mail: mail}
}

func (a Author) FirstName() string { return a.firstName }
func (a Author) LastName() string  { return a.lastName }
func (a Author) Mail() string      { return a.mail }

// FullName joins the first and last name with a space.
func (a Author) FullName() string {
	switch {
	case a.firstName == "":
		return a.lastName
	case a.lastName == "":
		return a.firstName
	}
	return a.firstName + " " + a.lastName
}
