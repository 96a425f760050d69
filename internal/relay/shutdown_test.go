package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestShutdownClosesInReverseOrder(t *testing.T) {
	sh := NewShutdownHandler(zap.NewNop(), time.Second)

	var order []string
	for _, name := range []string{"cache", "client", "metrics"} {
		sh.AddFunc(name, func() error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, sh.Shutdown(context.Background()))
	assert.Equal(t, []string{"metrics", "client", "cache"}, order)

	// повторный вызов ничего не закрывает
	require.NoError(t, sh.Shutdown(context.Background()))
	assert.Len(t, order, 3)
}

func TestShutdownJoinsErrors(t *testing.T) {
	sh := NewShutdownHandler(zap.NewNop(), time.Second)
	errA := errors.New("a failed")
	errB := errors.New("b failed")

	closed := false
	sh.AddFunc("a", func() error { return errA })
	sh.AddFunc("ok", func() error { closed = true; return nil })
	sh.AddFunc("b", func() error { return errB })

	err := sh.Shutdown(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.True(t, closed)
}

func TestShutdownTimeout(t *testing.T) {
	sh := NewShutdownHandler(zap.NewNop(), 20*time.Millisecond)
	release := make(chan struct{})
	defer close(release)

	sh.AddFunc("stuck", func() error {
		<-release
		return nil
	})

	err := sh.Shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stuck: shutdown timeout")
}
