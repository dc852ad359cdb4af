package rabbit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusconnect/internal/notify"
)

// Runs against a real broker only when CAMPUS_TEST_AMQP_URL is set.
func TestPublishConsume(t *testing.T) {
	url := os.Getenv("CAMPUS_TEST_AMQP_URL")
	if url == "" {
		t.Skip("CAMPUS_TEST_AMQP_URL not set")
	}

	suffix := uuid.NewString()
	c, err := NewRabbit(url, "campus.test."+suffix, "campus.test."+suffix)
	require.NoError(t, err)
	defer c.Close()

	got := make(chan notify.Message, 1)
	require.NoError(t, c.Consume(func(m notify.Message) error {
		got <- m
		return nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Publish(ctx, notify.Message{Kind: notify.KindRegistered, EventID: "e1", UserID: "u1", Title: "Hackathon"}))

	select {
	case m := <-got:
		assert.Equal(t, notify.KindRegistered, m.Kind)
		assert.Equal(t, "e1", m.EventID)
		assert.Equal(t, "Hackathon", m.Title)
		assert.False(t, m.At.IsZero())
	case <-ctx.Done():
		t.Fatal("message not delivered")
	}
}
