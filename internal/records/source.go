package records

import "iter"

// Source adapts a record sequence to the value sequences the stream
// containers consume. A read error ends the sequence early; check Err once
// the sequence has been drained.
type Source struct {
	seq   iter.Seq2[Record, error]
	err   error
	count int
}

func NewSource(seq iter.Seq2[Record, error]) *Source {
	return &Source{seq: seq}
}

// Values yields every record.
func (s *Source) Values() iter.Seq[any] {
	return func(yield func(any) bool) {
		for rec, err := range s.seq {
			if err != nil {
				s.err = err
				return
			}
			s.count++
			if !yield(rec) {
				return
			}
		}
	}
}

// Pairs yields every record keyed by its keyField value. A record without
// the field is yielded with a nil key, which an object refuses.
func (s *Source) Pairs(keyField string) iter.Seq2[any, any] {
	return func(yield func(any, any) bool) {
		for rec, err := range s.seq {
			if err != nil {
				s.err = err
				return
			}
			s.count++
			if !yield(rec[keyField], rec) {
				return
			}
		}
	}
}

// Err returns the read error that ended the sequence, if any.
func (s *Source) Err() error {
	return s.err
}

// Count returns the number of records yielded so far.
func (s *Source) Count() int {
	return s.count
}
