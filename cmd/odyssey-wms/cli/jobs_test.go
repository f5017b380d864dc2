package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnconfiguredCLIReportsErrors(t *testing.T) {
	var c *JobsCLI
	_, err := c.Trigger(context.Background(), "snapshot")
	assert.ErrorContains(t, err, "client not configured")
	_, err = c.InspectQueue(context.Background())
	assert.ErrorContains(t, err, "inspector not configured")
	_, err = c.ListScheduled(context.Background(), 0)
	assert.ErrorContains(t, err, "inspector not configured")
}

func TestRunValidatesArguments(t *testing.T) {
	c := &JobsCLI{}
	var out bytes.Buffer

	require.Error(t, c.Run(context.Background(), &out, nil))
	assert.ErrorContains(t, c.Run(context.Background(), &out, []string{"trigger"}), "usage")
	assert.ErrorContains(t, c.Run(context.Background(), &out, []string{"purge"}), "unknown command purge")
	assert.ErrorContains(t, c.Run(context.Background(), &out, []string{"trigger", "snapshot"}), "client not configured")
	assert.Empty(t, out.String())
}
