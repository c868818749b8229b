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

// OrderConnector normalizes purchase records into source records.
type OrderConnector struct {
	base
}

// NewOrderConnector creates the orders connector.
func NewOrderConnector(client *commerce.Client, config *common.CommerceConfig, logger arbor.ILogger) interfaces.SourceConnector {
	return &OrderConnector{base: newBase(client, config, logger)}
}

func (c *OrderConnector) DataType() models.DataType {
	return models.DataTypeOrders
}

func (c *OrderConnector) Fetch(ctx context.Context, creds *models.StoreCredentials, sinceCursor string) (*interfaces.FetchResult, error) {
	orders, err := fetchAll(ctx, c.base, func(ctx context.Context, cursor string) (*commerce.Page[models.Order], error) {
		return c.client.ListOrders(ctx, creds, cursor, sinceCursor)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}

	result := &interfaces.FetchResult{NextCursor: sinceCursor}
	for _, order := range orders {
		if order.ID == "" {
			result.Skipped++
			c.logger.Warn().
				Str("store_id", creds.StoreID).
				Msg("Skipping order record with no ID")
			continue
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Order %s, status %s, total %.2f %s.", order.ID, order.Status, order.Total, order.Currency))
		if order.PlacedAt != nil {
			sb.WriteString(fmt.Sprintf(" Placed %s.", order.PlacedAt.UTC().Format("2006-01-02")))
		}
		for _, item := range order.Items {
			name := c.resolve(item.Name, creds, item.ProductID)
			sb.WriteString(fmt.Sprintf("\n- %dx %s at %.2f", item.Quantity, name, item.UnitPrice))
		}

		metadata, err := (&models.OrderMetadata{
			OrderID:     order.ID,
			CustomerID:  order.CustomerID,
			Total:       order.Total,
			Currency:    order.Currency,
			Status:      order.Status,
			ItemCount:   len(order.Items),
			PlacedAt:    order.PlacedAt,
			FulfilledAt: order.FulfilledAt,
		}).ToMap()
		if err != nil {
			result.Skipped++
			continue
		}

		result.Records = append(result.Records, models.SourceRecord{
			SourceID:  order.ID,
			DataType:  models.DataTypeOrders,
			Text:      sb.String(),
			Metadata:  metadata,
			UpdatedAt: order.UpdatedAt,
		})
		result.NextCursor = cursorAfter(result.NextCursor, order.UpdatedAt)
	}

	return result, nil
}
