package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionRoundtrip(t *testing.T) {
	req := require.New(t)
	c := New()
	ctx := context.Background()

	userID, err := c.GetSession(ctx, "missing")
	req.NoError(err)
	req.Empty(userID)

	req.NoError(c.SetSession(ctx, "s1", "u1"))
	userID, err = c.GetSession(ctx, "s1")
	req.NoError(err)
	req.Equal("u1", userID)

	req.NoError(c.DeleteSession(ctx, "s1"))
	userID, err = c.GetSession(ctx, "s1")
	req.NoError(err)
	req.Empty(userID)
}
