package runtime

// IsInstance reports whether a value is a tracked instance. It never fails.
func IsInstance(v Value) bool {
	return v.Type == TypeInstance && v.InstanceVal != nil && v.InstanceVal.ClassName != ""
}

// TypeOf returns the declared class name of a tracked instance, or the
// primitive kind of anything else. isInstance distinguishes the two.
// It never fails.
func TypeOf(v Value) (name string, isInstance bool) {
	if IsInstance(v) {
		return v.InstanceVal.ClassName, true
	}
	return v.Kind(), false
}

// IsType reports whether a value is of the named type. For primitives this
// compares kind names; for instances it walks the declared class's
// linearization front to back.
func (os *ObjectSpace) IsType(v Value, name string) bool {
	tname, isInst := TypeOf(v)
	if !isInst {
		return tname == name
	}
	c := os.GetClass(tname)
	if c == nil {
		// Foreign instance: the tag itself is all we can compare.
		return tname == name
	}
	for _, a := range c.linear {
		if a == name {
			return true
		}
	}
	return false
}
