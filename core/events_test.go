package core

import (
	"testing"

	"github.com/gookit/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventerAttachTo(t *testing.T) {
	em := event.NewManager("test")

	var evt Eventer = (&Event{}).SetName("testing.attached")
	evt.AttachTo(em)

	fired := false
	em.On("testing.attached", event.ListenerFunc(func(e event.Event) error {
		fired = true
		return nil
	}))

	require.NoError(t, em.FireEvent(evt))
	assert.True(t, fired)
}
