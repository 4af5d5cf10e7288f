package runcontext

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultLogger = logrus.NewEntry(logrus.New()).WithField("foo", "bar")

func TestNew(t *testing.T) {
	ctx := New(context.Background(), defaultLogger)
	require.Equal(t, defaultLogger, ctx.FieldLogger)
	require.Equal(t, context.Background(), ctx.Context)
}

func TestBackground(t *testing.T) {
	ctx := Background()
	require.Equal(t, context.Background(), ctx.Context)
}

func TestWithLogField(t *testing.T) {
	ctx := WithLogField(Background(), "fish", "chips")
	require.Equal(t, context.Background(), ctx.Context)
	require.Equal(t, logrus.Fields{"fish": "chips"}, ctx.FieldLogger.(*logrus.Entry).Data)
}

func TestWithLogFields(t *testing.T) {
	ctx := WithLogFields(Background(), logrus.Fields{"fish": "chips", "salt": "pepper"})
	require.Equal(t, context.Background(), ctx.Context)
	require.Equal(t, logrus.Fields{"fish": "chips", "salt": "pepper"}, ctx.FieldLogger.(*logrus.Entry).Data)
}

func TestWithCancel(t *testing.T) {
	ctx, cancel := WithCancel(New(context.Background(), defaultLogger))
	require.Equal(t, defaultLogger, ctx.FieldLogger)
	cancel()
	<-ctx.Done()
	assert.Equal(t, context.Canceled, ctx.Err())
}

func TestErrGroup(t *testing.T) {
	g, ctx := ErrGroup(New(context.Background(), defaultLogger))
	require.Equal(t, defaultLogger, ctx.FieldLogger)
	expected := errors.New("boom")
	g.Go(func() error { return expected })
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})
	assert.Equal(t, expected, g.Wait())
}
