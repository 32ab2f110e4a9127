package domain

import (
	"encoding/json"
	"fmt"
)

// Category is the object type named at the start of an editor comment
type Category string

const (
	Ability      Category = "Abilities"
	BuffEffect   Category = "Buffs/Effects"
	Destructible Category = "Destructibles"
	Doodad       Category = "Doodads"
	Item         Category = "Items"
	Unit         Category = "Units"
	Upgrade      Category = "Upgrades"
)

var categoryNames = map[Category]string{
	Ability:      "Ability",
	BuffEffect:   "BuffEffect",
	Destructible: "Destructible",
	Doodad:       "Doodad",
	Item:         "Item",
	Unit:         "Unit",
	Upgrade:      "Upgrade",
}

// Categories lists every known category in declaration order
var Categories = []Category{Ability, BuffEffect, Destructible, Doodad, Item, Unit, Upgrade}

// Name returns the short identifier of the category, e.g. "Unit" for "Units"
func (c Category) Name() string {
	return categoryNames[c]
}

// Valid reports whether c is a known category literal
func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

// ParseCategory accepts either the comment literal ("Units") or the name ("Unit")
func ParseCategory(s string) (Category, bool) {
	if c := Category(s); c.Valid() {
		return c, true
	}
	for c, name := range categoryNames {
		if name == s {
			return c, true
		}
	}
	return "", false
}

// Field is the object-data field a string belongs to
type Field string

const (
	// Abilities
	Researchhotkey  Field = "Researchhotkey"
	Researchtip     Field = "Researchtip"
	Researchubertip Field = "Researchubertip"
	Unhotkey        Field = "Unhotkey"
	Untip           Field = "Untip"
	Unubertip       Field = "Unubertip"

	// Buffs/Effects
	Bufftip     Field = "Bufftip"
	Buffubertip Field = "Buffubertip"
	EditorName  Field = "EditorName"

	// Heroes
	Awakentip   Field = "Awakentip" // instant revive in a tavern
	Revivetip   Field = "Revivetip" // revive in an altar
	Propernames Field = "Propernames"

	// Units
	Casterupgradename Field = "Casterupgradename"
	Casterupgradetip  Field = "Casterupgradetip"

	// Common
	Description  Field = "Description"
	EditorSuffix Field = "EditorSuffix"
	Hotkey       Field = "Hotkey"
	Name         Field = "Name"
	Tip          Field = "Tip"
	Ubertip      Field = "Ubertip"
)

// Fields lists every known field
var Fields = []Field{
	Researchhotkey, Researchtip, Researchubertip, Unhotkey, Untip, Unubertip,
	Bufftip, Buffubertip, EditorName,
	Awakentip, Revivetip, Propernames,
	Casterupgradename, Casterupgradetip,
	Description, EditorSuffix, Hotkey, Name, Tip, Ubertip,
}

var knownFields = func() map[Field]bool {
	m := make(map[Field]bool, len(Fields))
	for _, f := range Fields {
		m[f] = true
	}
	return m
}()

// Valid reports whether f is a known field literal
func (f Field) Valid() bool {
	return knownFields[f]
}

// ParseField returns the field named s
func ParseField(s string) (Field, bool) {
	f := Field(s)
	return f, f.Valid()
}

// Key identifies the group of entries that share a classification.
// Entries in the same group are the levels of one field.
type Key struct {
	Category Category
	Entity   string
	Field    Field
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Category.Name(), k.Entity, k.Field)
}

// MarshalJSON renders the key with the category's short name
func (k Key) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"category": k.Category.Name(),
		"entity":   k.Entity,
		"field":    string(k.Field),
	})
}
