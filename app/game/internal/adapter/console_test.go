package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandler struct {
	mu  sync.Mutex
	got []*model.Intent
}

func (h *stubHandler) Handle(ctx context.Context, in *model.Intent) (*model.View, error) {
	h.mu.Lock()
	h.got = append(h.got, in)
	h.mu.Unlock()

	switch in.Kind {
	case "explode":
		return nil, errors.New("database is down")
	case model.IntentSetupEvents:
		_ = in.Sink.Send(ctx, model.NewView("Treasure Chest", ""))
	case model.IntentDuel:
		v := model.NewView("Duel Challenge", "")
		v.Recipient = in.Args["opponent"]
		_ = in.Sink.Send(ctx, v)
	}
	return model.NewView(in.Kind, ""), nil
}

func decode(t *testing.T, out string) []Output {
	t.Helper()
	var res []Output
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var o Output
		require.NoError(t, json.Unmarshal([]byte(line), &o))
		res = append(res, o)
	}
	return res
}

func TestConsole_RoundTrip(t *testing.T) {
	input := strings.Join([]string{
		`{"user_id":"u1","server_id":"s","kind":"profile"}`,
		``,
		`not json`,
		`{"user_id":"u1","server_id":"s","kind":"explode"}`,
		`{"user_id":"u1","server_id":"s","kind":"duel","args":{"opponent":"u2"}}`,
		`{"user_id":"admin","server_id":"s","channel_id":"general","kind":"setup_events"}`,
	}, "\n")

	h := &stubHandler{}
	var out bytes.Buffer
	c := NewConsole(logger.NewNoop(), h, strings.NewReader(input), &out)
	require.NoError(t, c.Start(context.Background()))

	res := decode(t, out.String())
	require.Len(t, res, 7)

	assert.Equal(t, SourceReply, res[0].Source)
	assert.Equal(t, "profile", res[0].View.Title)
	assert.Equal(t, "u1", res[0].UserID)

	assert.Contains(t, res[1].Error, "malformed intent")

	assert.NotEmpty(t, res[2].Error)
	assert.NotContains(t, res[2].Error, "database")

	assert.Equal(t, SourceAsync, res[3].Source)
	assert.Equal(t, "u2", res[3].UserID)
	assert.Equal(t, SourceReply, res[4].Source)

	assert.Equal(t, SourceBroadcast, res[5].Source)
	assert.Equal(t, "general", res[5].ChannelID)
	assert.Empty(t, res[5].UserID)

	require.Len(t, h.got, 4)
	assert.NotNil(t, h.got[0].Sink)
}

func TestConsole_StopAndCancel(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	c := NewConsole(logger.NewNoop(), &stubHandler{}, r, &bytes.Buffer{})
	done := make(chan error, 1)
	go func() { done <- c.Start(context.Background()) }()
	require.NoError(t, c.Stop())
	assert.NoError(t, <-done)

	ctx, cancel := context.WithCancel(context.Background())
	c = NewConsole(logger.NewNoop(), &stubHandler{}, r, &bytes.Buffer{})
	go func() { done <- c.Start(ctx) }()
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

