package jsonstreams

import "iter"

// Array streams the entries of a JSON array. Only the topmost open container
// of a stream accepts writes; an Array with an open child returns
// ErrModifyWrongStream until that child is closed.
type Array struct {
	*container
}

var _ Container = &Array{}

// Write encodes v and appends it to the array.
func (a *Array) Write(v any) error {
	return a.write("write", nil, false, v)
}

// IterWrite writes every value produced by seq, pulling one at a time. It
// stops at the first failing value; values written before it stay written.
func (a *Array) IterWrite(seq iter.Seq[any]) error {
	return WriteAll(a, seq)
}

// SubObject opens an object as the next entry of the array. The array is
// blocked until the returned object is closed.
func (a *Array) SubObject() (*Object, error) {
	c, err := a.open("subobject", nil, false, KindObject)
	if err != nil {
		return nil, err
	}
	return a.s.adoptObject(c), nil
}

// SubArray opens an array as the next entry of the array. The array is
// blocked until the returned array is closed.
func (a *Array) SubArray() (*Array, error) {
	c, err := a.open("subarray", nil, false, KindArray)
	if err != nil {
		return nil, err
	}
	return a.s.adoptArray(c), nil
}

// WithSubObject opens an object, passes it to fn and closes it when fn
// returns or panics.
func (a *Array) WithSubObject(fn func(*Object) error) error {
	o, err := a.SubObject()
	if err != nil {
		return err
	}
	return scoped(o, func() error { return fn(o) })
}

// WithSubArray opens an array, passes it to fn and closes it when fn returns
// or panics.
func (a *Array) WithSubArray(fn func(*Array) error) error {
	child, err := a.SubArray()
	if err != nil {
		return err
	}
	return scoped(child, func() error { return fn(child) })
}

// WriteAll writes every value of seq into a.
func WriteAll[T any](a *Array, seq iter.Seq[T]) error {
	for v := range seq {
		if err := a.Write(v); err != nil {
			return err
		}
	}
	return nil
}

// scoped runs fn and closes c afterwards, including while a panic unwinds.
// A container fn already closed is left alone.
func scoped(c Container, fn func() error) (err error) {
	defer func() {
		if c.Closed() {
			return
		}
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}()
	return fn()
}
