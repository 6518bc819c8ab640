package users

import (
	"strconv"
)

// Column names of the user table. Header names in a CSV source must match exactly.
const (
	FieldName  = "name"
	FieldAge   = "age"
	FieldIsNew = "is_new"
)

// RequiredColumns are the columns every tabular source has to provide
var RequiredColumns = []string{FieldName, FieldAge}

// KnownFields contains every column of the user table
var KnownFields = map[string]bool{
	FieldName:  true,
	FieldAge:   true,
	FieldIsNew: true,
}

// Provenance tells where a user row came from
type Provenance string

const (
	// ProvenancePersisted marks rows loaded from the bootstrap source
	ProvenancePersisted Provenance = "persisted"
	// ProvenanceNew marks rows created while the process is running
	ProvenanceNew Provenance = "new"
)

// User is a single row of the user table
type User struct {
	Name  string `json:"name"`
	Age   int    `json:"age"`
	IsNew bool   `json:"is_new"`
}

// NewPersistedUser builds a validated user loaded from the bootstrap source
func NewPersistedUser(name string, age int) (User, error) {
	return newUser(name, age, ProvenancePersisted)
}

// NewAddedUser builds a validated user created at runtime
func NewAddedUser(name string, age int) (User, error) {
	return newUser(name, age, ProvenanceNew)
}

func newUser(name string, age int, p Provenance) (User, error) {
	if err := Validate(name, age); err != nil {
		return User{}, err
	}
	return User{Name: name, Age: age, IsNew: p == ProvenanceNew}, nil
}

// Validate checks the field rules shared by both provenances
func Validate(name string, age int) error {
	if len(name) == 0 {
		return NewEmptyNameError()
	}
	if age < 0 {
		return NewNegativeAgeError(age)
	}
	return nil
}

// Provenance returns the provenance carried by the is_new flag
func (u User) Provenance() Provenance {
	if u.IsNew {
		return ProvenanceNew
	}
	return ProvenancePersisted
}

// SameAs reports whether both rows identify the same user.
// Identity is (name, age); provenance is ignored.
func (u User) SameAs(other User) bool {
	return u.Name == other.Name && u.Age == other.Age
}

// value returns the string form of a column, used as a group key
func (u User) value(field string) string {
	switch field {
	case FieldName:
		return u.Name
	case FieldAge:
		return strconv.Itoa(u.Age)
	case FieldIsNew:
		return strconv.FormatBool(u.IsNew)
	}
	return ""
}

// numeric returns the numeric value of a column
func (u User) numeric(field string) (float64, bool) {
	switch field {
	case FieldAge:
		return float64(u.Age), true
	case FieldIsNew:
		if u.IsNew {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// CreateUserRequest represents the request to create a user
type CreateUserRequest struct {
	Name string `json:"name"`
	Age  *int   `json:"age" binding:"required"`
}

// DeleteUserRequest represents the request to delete a user
type DeleteUserRequest struct {
	Name string `json:"name"`
	Age  *int   `json:"age" binding:"required"`
}

// ImportResult summarizes a bulk import
type ImportResult struct {
	Imported int `json:"imported"`
	Total    int `json:"total"`
}
