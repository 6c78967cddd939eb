package model

import "fmt"

// ObjectClass is the catalog class of an object.
type ObjectClass string

const (
	ClassExtension ObjectClass = "extension"
	ClassSchema    ObjectClass = "schema"
	ClassRole      ObjectClass = "role"
)

// ObjectIdentity names a catalog object independently of its textual name.
// It is stable for the object's lifetime.
type ObjectIdentity struct {
	Class ObjectClass `json:"class"`
	ID    uint32      `json:"id"`
}

func (i ObjectIdentity) String() string {
	return fmt.Sprintf("%s(%d)", i.Class, i.ID)
}

// ObjectKind is the keyword a statement uses for its object type.
type ObjectKind string

const (
	KindExtension ObjectKind = "EXTENSION"
	KindSchema    ObjectKind = "SCHEMA"
	KindRole      ObjectKind = "ROLE"
)

// Class returns the catalog class objects of this kind belong to.
func (k ObjectKind) Class() ObjectClass {
	switch k {
	case KindSchema:
		return ClassSchema
	case KindRole:
		return ClassRole
	default:
		return ClassExtension
	}
}

// Kind returns the statement keyword of the class.
func (c ObjectClass) Kind() ObjectKind {
	switch c {
	case ClassSchema:
		return KindSchema
	case ClassRole:
		return KindRole
	default:
		return KindExtension
	}
}
