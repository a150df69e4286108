// Package builtin registers the profiles that ship with the daemon.
// Import it for side effects from binaries that resolve profiles by name
package builtin

import (
	"warden/internal/core/message"
	perr "warden/internal/platform/errors"
	"warden/internal/services/profiles/domain"
)

func init() {
	domain.Register("greeting", func() domain.Profile { return greeting{} })
}

// greeting matches the heartbeat transport's payloads. It exists for
// demos and end-to-end smoke tests against a running stack
type greeting struct{}

func (greeting) Name() string { return "greeting" }

func (greeting) Matches(msg message.Message) bool { return msg.Has("greeting") }

func (greeting) Actor(msg message.Message) (string, error) {
	actor, ok := msg.GetString("person")
	if !ok || actor == "" {
		return "", perr.Extractionf("greeting message has no person")
	}
	return actor, nil
}

func (greeting) Fields() []domain.FieldSpec {
	return []domain.FieldSpec{
		domain.Single("greeting", "mandatory"),
	}
}
