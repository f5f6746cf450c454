// Package sequence issues the monotonic session identifiers of a run.
package sequence

import (
	"strconv"
	"time"
)

// Generator hands out strictly increasing identifiers.
type Generator interface {
	// Next returns the current value and advances by one.
	Next() int64
}

// Counter is a Generator starting at a caller-supplied value.
// It is not safe for concurrent use; a run owns exactly one.
type Counter struct {
	next int64
}

// NewCounter returns a Counter whose first value is start.
func NewCounter(start int64) *Counter {
	return &Counter{next: start}
}

// NewClockCounter seeds a Counter from the epoch seconds of now.
// Identifiers produced this way differ between runs over the same input.
func NewClockCounter(now time.Time) *Counter {
	return NewCounter(now.Unix())
}

// Next returns the current value and advances by one.
func (c *Counter) Next() int64 {
	v := c.next
	c.next++
	return v
}

// Peek returns the value the next call to Next will return.
func (c *Counter) Peek() int64 {
	return c.next
}

// Format renders an identifier the way the upload document expects it.
func Format(id int64) string {
	return strconv.FormatInt(id, 10)
}
