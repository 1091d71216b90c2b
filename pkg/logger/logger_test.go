package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLoggerFallsBackToGlobal(t *testing.T) {
	entry := G(context.Background())
	require.NotNil(t, entry)
	assert.Equal(t, L.Logger, entry.Logger)
}

func TestWithLoggerRoundTrip(t *testing.T) {
	ctx := context.Background()
	entry := L.WithField("snapshot", 3)

	ctx = WithLogger(ctx, entry)
	got := G(ctx)

	assert.Equal(t, 3, got.Data["snapshot"])
}

func TestContextFieldsPropagate(t *testing.T) {
	buf := &bytes.Buffer{}
	l := logrus.New()
	l.SetOutput(buf)
	l.SetFormatter(&logrus.JSONFormatter{})

	ctx := WithLogger(context.Background(), logrus.NewEntry(l).WithField("query", "q-1"))
	G(ctx).Info("scored")

	assert.Contains(t, buf.String(), `"query":"q-1"`)
	assert.Contains(t, buf.String(), "scored")
}

func TestSetLogLevel(t *testing.T) {
	original := L.Logger.GetLevel()
	defer L.Logger.SetLevel(original)

	require.NoError(t, SetLogLevel("debug"))
	assert.Equal(t, logrus.DebugLevel, L.Logger.GetLevel())

	assert.Error(t, SetLogLevel("nonsense"))
}
