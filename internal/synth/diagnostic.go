package synth

import (
	"log/slog"
	"time"
)

// Tag names the outcome of a press or release request.
type Tag string

// Scancode key outcomes.
const (
	Pressed         Tag = "PRESSED"
	Released        Tag = "RELEASED"
	Ignored         Tag = "IGNORED"
	AlreadyReleased Tag = "ALREADY_RELEASED"
)

// Virtual-key and modifier outcomes.
const (
	VKPressed         Tag = "VK_PRESSED"
	VKReleased        Tag = "VK_RELEASED"
	VKIgnored         Tag = "VK_IGNORED"
	VKAlreadyReleased Tag = "VK_ALREADY_RELEASED"
)

// Tags lists every tag.
var Tags = []Tag{
	Pressed, Released, Ignored, AlreadyReleased,
	VKPressed, VKReleased, VKIgnored, VKAlreadyReleased,
}

func tagFor(kind Kind, tag Tag) Tag {
	if kind != VirtualKey {
		return tag
	}
	switch tag {
	case Pressed:
		return VKPressed
	case Released:
		return VKReleased
	case Ignored:
		return VKIgnored
	case AlreadyReleased:
		return VKAlreadyReleased
	}
	return tag
}

// Diagnostic records one press or release request.
type Diagnostic struct {
	Tag    Tag
	Code   Code
	Source string
	Time   time.Time
}

// Observer receives the diagnostic stream of an Engine.
type Observer interface {
	Observe(d Diagnostic)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(d Diagnostic)

// Observe calls f.
func (f ObserverFunc) Observe(d Diagnostic) {
	f(d)
}

// LogObserver writes each diagnostic as an info line whose message is the tag.
func LogObserver(logger *slog.Logger) Observer {
	return ObserverFunc(func(d Diagnostic) {
		logger.Info(string(d.Tag), "code", d.Code.String(), "source", d.Source)
	})
}
