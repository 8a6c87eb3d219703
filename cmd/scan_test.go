package cmd

import (
	"testing"
	"time"

	"github.com/iksnae/msghelp/internal"
	"github.com/iksnae/msghelp/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotChat() internal.TestChat {
	base := time.Now().Add(-time.Hour).Truncate(time.Minute)
	return internal.TestChat{
		Title: "Alice",
		Bubbles: []internal.TestBubble{
			{Text: "Dinner tonight?", Direction: internal.DirectionOutgoing, Annotation: internal.Annotation(base, "Me")},
			{Text: "See you at 6", Direction: internal.DirectionIncoming, Annotation: internal.Annotation(base.Add(time.Minute), "Alice")},
		},
	}
}

func TestScanCommand(t *testing.T) {
	env := newCmdEnv(t)
	path := testutil.CreateSnapshotFixture(t, env.dir, "chat.html", snapshotChat().HTML())

	out, err := env.run(t, "scan", path, "--url", "https://web.whatsapp.com/#chat-a")
	require.NoError(t, err)
	assert.Contains(t, out, "Session: Alice::chat-a")
	assert.Contains(t, out, "Bubbles: 2, stored: 2")
	assert.Contains(t, out, "Outcome: suggest")

	out, err = env.run(t, "history", "show", "Alice::chat-a")
	require.NoError(t, err)
	assert.Contains(t, out, "See you at 6")
}

func TestScanCommand_Errors(t *testing.T) {
	env := newCmdEnv(t)

	_, err := env.run(t, "scan", env.dir+"/missing.html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open snapshot")

	path := testutil.CreateSnapshotFixture(t, env.dir, "empty.html", internal.TestChat{NoContainer: true}.HTML())
	_, err = env.run(t, "scan", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, internal.ErrContainerNotFound)
}
