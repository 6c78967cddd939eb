package model

import "strconv"

// Option names understood by the protocol.
const (
	OptionSchema     = "schema"
	OptionNewVersion = "new_version"
	OptionPassword   = "password"
)

type ValueKind int

const (
	// ValueNull is an option given without argument or with an explicit NULL.
	ValueNull ValueKind = iota
	ValueString
	ValueInteger
)

// Value is a literal option argument.
type Value struct {
	Kind ValueKind
	Str  string
	Int  int64
}

func StringValue(s string) Value { return Value{Kind: ValueString, Str: s} }

func IntValue(i int64) Value { return Value{Kind: ValueInteger, Int: i} }

func NullValue() Value { return Value{Kind: ValueNull} }

// IsNull reports whether the value carries no argument.
func (v Value) IsNull() bool { return v.Kind == ValueNull }

// String returns the textual form of the value, empty for null.
func (v Value) String() string {
	switch v.Kind {
	case ValueString:
		return v.Str
	case ValueInteger:
		return strconv.FormatInt(v.Int, 10)
	}
	return ""
}

// Option is one name/value pair of a statement's option list.
type Option struct {
	Name  string
	Value Value
}

// OptionList is an ordered option list. Names are case-sensitive and lookups
// return the first match.
type OptionList []Option

// Get returns the value of the first option named name.
func (l OptionList) Get(name string) (Value, bool) {
	for _, opt := range l {
		if opt.Name == name {
			return opt.Value, true
		}
	}
	return Value{}, false
}

// GetString returns the string form of the first option named name, or "" if
// the option is absent or null.
func (l OptionList) GetString(name string) string {
	v, ok := l.Get(name)
	if !ok {
		return ""
	}
	return v.String()
}

// Has reports whether an option named name is present.
func (l OptionList) Has(name string) bool {
	_, ok := l.Get(name)
	return ok
}

// Clone returns a copy that shares nothing with l.
func (l OptionList) Clone() OptionList {
	if l == nil {
		return nil
	}
	ret := make(OptionList, len(l))
	copy(ret, l)
	return ret
}

// With returns a copy of l with opt appended.
func (l OptionList) With(opt Option) OptionList {
	ret := make(OptionList, 0, len(l)+1)
	ret = append(ret, l...)
	return append(ret, opt)
}

// Replace returns a copy of l in which the first option named name carries v.
func (l OptionList) Replace(name string, v Value) OptionList {
	ret := l.Clone()
	for i := range ret {
		if ret[i].Name == name {
			ret[i].Value = v
			break
		}
	}
	return ret
}
