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

// AnalyticsConnector normalizes reporting snapshots into source records.
type AnalyticsConnector struct {
	base
}

// NewAnalyticsConnector creates the analytics connector.
func NewAnalyticsConnector(client *commerce.Client, config *common.CommerceConfig, logger arbor.ILogger) interfaces.SourceConnector {
	return &AnalyticsConnector{base: newBase(client, config, logger)}
}

func (c *AnalyticsConnector) DataType() models.DataType {
	return models.DataTypeAnalytics
}

func (c *AnalyticsConnector) Fetch(ctx context.Context, creds *models.StoreCredentials, sinceCursor string) (*interfaces.FetchResult, error) {
	snapshots, err := fetchAll(ctx, c.base, func(ctx context.Context, cursor string) (*commerce.Page[models.AnalyticsSnapshot], error) {
		return c.client.ListAnalytics(ctx, creds, cursor, sinceCursor)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch analytics: %w", err)
	}

	result := &interfaces.FetchResult{NextCursor: sinceCursor}
	for _, snapshot := range snapshots {
		if snapshot.ID == "" || snapshot.PeriodStart.IsZero() {
			result.Skipped++
			c.logger.Warn().
				Str("store_id", creds.StoreID).
				Str("snapshot_id", snapshot.ID).
				Msg("Skipping malformed analytics snapshot")
			continue
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Analytics %s to %s: %d visits, %d orders, %.2f revenue.",
			snapshot.PeriodStart.UTC().Format("2006-01-02"),
			snapshot.PeriodEnd.UTC().Format("2006-01-02"),
			snapshot.Visits, snapshot.OrderCount, snapshot.Revenue))
		if len(snapshot.TopProducts) > 0 {
			sb.WriteString(" Top products: ")
			sb.WriteString(strings.Join(snapshot.TopProducts, ", "))
			sb.WriteString(".")
		}

		metadata, err := (&models.AnalyticsMetadata{
			PeriodStart: snapshot.PeriodStart,
			PeriodEnd:   snapshot.PeriodEnd,
			Visits:      snapshot.Visits,
			Revenue:     snapshot.Revenue,
			OrderCount:  snapshot.OrderCount,
		}).ToMap()
		if err != nil {
			result.Skipped++
			continue
		}

		result.Records = append(result.Records, models.SourceRecord{
			SourceID:  snapshot.ID,
			DataType:  models.DataTypeAnalytics,
			Text:      sb.String(),
			Metadata:  metadata,
			UpdatedAt: snapshot.UpdatedAt,
		})
		result.NextCursor = cursorAfter(result.NextCursor, snapshot.UpdatedAt)
	}

	return result, nil
}
