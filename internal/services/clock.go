package services

import "time"

// Clock отдает текущее время; в тестах подменяется фиксированными часами.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
