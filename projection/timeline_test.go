package projection

import (
	"testing"
	"time"

	"guild-chat/domain/envelope"

	"github.com/stretchr/testify/require"
)

func msg(id, sender, content string, at time.Time) envelope.Message {
	return envelope.Message{Type: envelope.TypeMessage, ID: id, SenderID: sender, Username: sender, Content: content, CreatedAt: at}
}

func TestTimeline_Baseline_Then_Live(t *testing.T) {
	req := require.New(t)
	now := time.Now().UTC()
	timeline := NewTimeline()

	timeline.Load([]envelope.Message{
		msg("1", "Alice", "Hello Bob", now),
		msg("2", "Clara", "Hi Bob", now.Add(time.Second)),
	})
	req.True(timeline.Consume(msg("3", "Bob", "hey", now.Add(2*time.Second))))

	messages := timeline.Messages()
	req.Len(messages, 3)
	req.Equal([]string{"1", "2", "3"}, []string{messages[0].ID, messages[1].ID, messages[2].ID})
}

func TestTimeline_Never_Resorts(t *testing.T) {
	req := require.New(t)
	now := time.Now().UTC()
	timeline := NewTimeline()
	timeline.Load([]envelope.Message{msg("2", "Alice", "later", now)})

	// Given a live message older than the baseline
	timeline.Consume(msg("1", "Bob", "earlier", now.Add(-time.Minute)))

	// Then it is still appended at the end
	messages := timeline.Messages()
	req.Equal("2", messages[0].ID)
	req.Equal("1", messages[1].ID)
}

func TestTimeline_Overlap_Shows_Twice_By_Default(t *testing.T) {
	req := require.New(t)
	now := time.Now().UTC()
	overlap := msg("1", "Alice", "raced", now)
	timeline := NewTimeline()
	timeline.Load([]envelope.Message{overlap})

	// When the same message arrives on the live stream after the snapshot
	req.True(timeline.Consume(overlap))

	// Then it is appended again
	req.Equal(2, timeline.Len())
}

func TestTimeline_WithDeduplication(t *testing.T) {
	req := require.New(t)
	now := time.Now().UTC()
	overlap := msg("1", "Alice", "raced", now)
	timeline := NewTimeline(WithDeduplication())
	timeline.Load([]envelope.Message{overlap})

	req.False(timeline.Consume(overlap))
	req.True(timeline.Consume(msg("2", "Alice", "raced", now)))
	req.False(timeline.Consume(msg("2", "Alice", "raced", now)))

	// Same content with a different id is not a duplicate
	req.Equal(2, timeline.Len())
}

func TestTimeline_Listener_And_Copy(t *testing.T) {
	req := require.New(t)
	var notified []string
	timeline := NewTimeline(WithListener(func(m envelope.Message) { notified = append(notified, m.ID) }))

	timeline.Consume(msg("1", "Alice", "a", time.Now()))
	snapshot := timeline.Messages()
	snapshot[0].Content = "mutated"

	req.Equal([]string{"1"}, notified)
	req.Equal("a", timeline.Messages()[0].Content)
}
