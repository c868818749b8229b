package connectors

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/taberna/internal/commerce"
	"github.com/ternarybob/taberna/internal/common"
	"github.com/ternarybob/taberna/internal/interfaces"
	"github.com/ternarybob/taberna/internal/models"
)

// ConversationConnector normalizes assistant transcripts into source records.
type ConversationConnector struct {
	base
}

// NewConversationConnector creates the conversations connector.
func NewConversationConnector(client *commerce.Client, config *common.CommerceConfig, logger arbor.ILogger) interfaces.SourceConnector {
	return &ConversationConnector{base: newBase(client, config, logger)}
}

func (c *ConversationConnector) DataType() models.DataType {
	return models.DataTypeConversations
}

func (c *ConversationConnector) Fetch(ctx context.Context, creds *models.StoreCredentials, sinceCursor string) (*interfaces.FetchResult, error) {
	threads, err := fetchAll(ctx, c.base, func(ctx context.Context, cursor string) (*commerce.Page[models.ConversationThread], error) {
		return c.client.ListConversations(ctx, creds, cursor, sinceCursor)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch conversations: %w", err)
	}

	result := &interfaces.FetchResult{NextCursor: sinceCursor}
	for _, thread := range threads {
		if thread.ID == "" || len(thread.Messages) == 0 {
			result.Skipped++
			c.logger.Warn().
				Str("store_id", creds.StoreID).
				Str("conversation_id", thread.ID).
				Msg("Skipping empty conversation thread")
			continue
		}

		var sb strings.Builder
		for i, msg := range thread.Messages {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(fmt.Sprintf("%s: %s", msg.Role, msg.Text))
		}

		metadata, err := (&models.ConversationMetadata{
			ConversationID: thread.ID,
			Channel:        thread.Channel,
			MessageCount:   len(thread.Messages),
			StartedAt:      thread.StartedAt,
		}).ToMap()
		if err != nil {
			result.Skipped++
			continue
		}

		result.Records = append(result.Records, models.SourceRecord{
			SourceID:  thread.ID,
			DataType:  models.DataTypeConversations,
			Text:      sb.String(),
			Metadata:  metadata,
			UpdatedAt: thread.UpdatedAt,
		})
		result.NextCursor = cursorAfter(result.NextCursor, thread.UpdatedAt)
	}

	return result, nil
}
