package store

import "errors"

// TeeSink fans every write out to several sinks. LastByKey reads from
// the first sink.
type TeeSink struct {
	sinks []Sink
}

// NewTeeSink creates a TeeSink over sinks, which must not be empty.
func NewTeeSink(sinks ...Sink) *TeeSink {
	return &TeeSink{sinks: sinks}
}

func (t *TeeSink) SetHeader(header []string) error {
	var errs []error
	for _, s := range t.sinks {
		errs = append(errs, s.SetHeader(header))
	}
	return errors.Join(errs...)
}

func (t *TeeSink) Write(row []any) error {
	var errs []error
	for _, s := range t.sinks {
		errs = append(errs, s.Write(row))
	}
	return errors.Join(errs...)
}

func (t *TeeSink) LastByKey(column string) (any, bool) {
	if len(t.sinks) == 0 {
		return nil, false
	}
	return t.sinks[0].LastByKey(column)
}
