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

// ProductConnector normalizes catalog entries into source records.
type ProductConnector struct {
	base
}

// NewProductConnector creates the products connector.
func NewProductConnector(client *commerce.Client, config *common.CommerceConfig, logger arbor.ILogger) interfaces.SourceConnector {
	return &ProductConnector{base: newBase(client, config, logger)}
}

func (c *ProductConnector) DataType() models.DataType {
	return models.DataTypeProducts
}

func (c *ProductConnector) Fetch(ctx context.Context, creds *models.StoreCredentials, sinceCursor string) (*interfaces.FetchResult, error) {
	products, err := fetchAll(ctx, c.base, func(ctx context.Context, cursor string) (*commerce.Page[models.Product], error) {
		return c.client.ListProducts(ctx, creds, cursor, sinceCursor)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	result := &interfaces.FetchResult{NextCursor: sinceCursor}
	for _, product := range products {
		title := c.resolve(product.Title, creds, "")
		if product.ID == "" || title == "" {
			result.Skipped++
			c.logger.Warn().
				Str("store_id", creds.StoreID).
				Str("product_id", product.ID).
				Msg("Skipping malformed product record")
			continue
		}

		description := c.resolve(product.Description, creds, "")

		var sb strings.Builder
		sb.WriteString(title)
		if description != "" {
			sb.WriteString("\n\n")
			sb.WriteString(description)
		}
		sb.WriteString(fmt.Sprintf("\n\nPrice: %.2f %s. Stock: %d.", product.Price, product.Currency, product.Stock))
		if len(product.Categories) > 0 {
			sb.WriteString(" Categories: ")
			sb.WriteString(strings.Join(product.Categories, ", "))
			sb.WriteString(".")
		}

		metadata, err := (&models.ProductMetadata{
			ProductID:   product.ID,
			Title:       title,
			Price:       product.Price,
			Currency:    product.Currency,
			Stock:       product.Stock,
			Categories:  product.Categories,
			PublishedAt: product.PublishedAt,
		}).ToMap()
		if err != nil {
			result.Skipped++
			continue
		}

		result.Records = append(result.Records, models.SourceRecord{
			SourceID:  product.ID,
			DataType:  models.DataTypeProducts,
			Text:      sb.String(),
			Metadata:  metadata,
			UpdatedAt: product.UpdatedAt,
		})
		result.NextCursor = cursorAfter(result.NextCursor, product.UpdatedAt)
	}

	return result, nil
}
