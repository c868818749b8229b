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

// CustomerConnector normalizes buyer profiles into source records.
type CustomerConnector struct {
	base
}

// NewCustomerConnector creates the customers connector.
func NewCustomerConnector(client *commerce.Client, config *common.CommerceConfig, logger arbor.ILogger) interfaces.SourceConnector {
	return &CustomerConnector{base: newBase(client, config, logger)}
}

func (c *CustomerConnector) DataType() models.DataType {
	return models.DataTypeCustomers
}

func (c *CustomerConnector) Fetch(ctx context.Context, creds *models.StoreCredentials, sinceCursor string) (*interfaces.FetchResult, error) {
	customers, err := fetchAll(ctx, c.base, func(ctx context.Context, cursor string) (*commerce.Page[models.Customer], error) {
		return c.client.ListCustomers(ctx, creds, cursor, sinceCursor)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch customers: %w", err)
	}

	result := &interfaces.FetchResult{NextCursor: sinceCursor}
	for _, customer := range customers {
		if customer.ID == "" {
			result.Skipped++
			c.logger.Warn().
				Str("store_id", creds.StoreID).
				Msg("Skipping customer record with no ID")
			continue
		}

		name := strings.TrimSpace(customer.FirstName + " " + customer.LastName)
		if name == "" {
			name = customer.Email
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Customer %s", name))
		if customer.Email != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", customer.Email))
		}
		sb.WriteString(fmt.Sprintf(". %d orders, %.2f total spent.", customer.OrdersCount, customer.TotalSpent))
		if customer.LastOrderAt != nil {
			sb.WriteString(fmt.Sprintf(" Last order %s.", customer.LastOrderAt.UTC().Format("2006-01-02")))
		}

		metadata, err := (&models.CustomerMetadata{
			CustomerID:  customer.ID,
			Email:       customer.Email,
			OrdersCount: customer.OrdersCount,
			TotalSpent:  customer.TotalSpent,
			LastOrderAt: customer.LastOrderAt,
		}).ToMap()
		if err != nil {
			result.Skipped++
			continue
		}

		result.Records = append(result.Records, models.SourceRecord{
			SourceID:  customer.ID,
			DataType:  models.DataTypeCustomers,
			Text:      sb.String(),
			Metadata:  metadata,
			UpdatedAt: customer.UpdatedAt,
		})
		result.NextCursor = cursorAfter(result.NextCursor, customer.UpdatedAt)
	}

	return result, nil
}
