package jsonstreams

import "iter"

// Object streams the members of a JSON object. Keys must be strings (or of a
// type whose underlying kind is string); anything else fails with
// ErrInvalidType before a byte of the member is written.
type Object struct {
	*container
}

var _ Container = &Object{}

// Write encodes v and appends it to the object under key.
func (o *Object) Write(key, v any) error {
	return o.write("write", key, true, v)
}

// IterWrite writes every key/value pair produced by seq, pulling one at a
// time. It stops at the first failing pair; pairs written before it stay
// written.
func (o *Object) IterWrite(seq iter.Seq2[any, any]) error {
	return WriteAllPairs(o, seq)
}

// SubObject opens an object stored under key. The parent is blocked until
// the returned object is closed.
func (o *Object) SubObject(key any) (*Object, error) {
	c, err := o.open("subobject", key, true, KindObject)
	if err != nil {
		return nil, err
	}
	return o.s.adoptObject(c), nil
}

// SubArray opens an array stored under key. The parent is blocked until the
// returned array is closed.
func (o *Object) SubArray(key any) (*Array, error) {
	c, err := o.open("subarray", key, true, KindArray)
	if err != nil {
		return nil, err
	}
	return o.s.adoptArray(c), nil
}

// WithSubObject opens an object under key, passes it to fn and closes it when
// fn returns or panics.
func (o *Object) WithSubObject(key any, fn func(*Object) error) error {
	child, err := o.SubObject(key)
	if err != nil {
		return err
	}
	return scoped(child, func() error { return fn(child) })
}

// WithSubArray opens an array under key, passes it to fn and closes it when
// fn returns or panics.
func (o *Object) WithSubArray(key any, fn func(*Array) error) error {
	a, err := o.SubArray(key)
	if err != nil {
		return err
	}
	return scoped(a, func() error { return fn(a) })
}

// WriteAllPairs writes every key/value pair of seq into o.
func WriteAllPairs[K, V any](o *Object, seq iter.Seq2[K, V]) error {
	for k, v := range seq {
		if err := o.Write(k, v); err != nil {
			return err
		}
	}
	return nil
}
