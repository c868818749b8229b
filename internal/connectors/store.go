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

// StoreConnector normalizes the store's own profile into a single source
// record. The profile is always re-fetched in full; sinceCursor is ignored.
type StoreConnector struct {
	base
}

// NewStoreConnector creates the store profile connector.
func NewStoreConnector(client *commerce.Client, config *common.CommerceConfig, logger arbor.ILogger) interfaces.SourceConnector {
	return &StoreConnector{base: newBase(client, config, logger)}
}

func (c *StoreConnector) DataType() models.DataType {
	return models.DataTypeStore
}

func (c *StoreConnector) Fetch(ctx context.Context, creds *models.StoreCredentials, sinceCursor string) (*interfaces.FetchResult, error) {
	profile, err := c.client.GetStoreProfile(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch store profile: %w", err)
	}

	result := &interfaces.FetchResult{}
	name := c.resolve(profile.Name, creds, profile.Domain)
	if profile.ID == "" || name == "" {
		result.Skipped = 1
		c.logger.Warn().
			Str("store_id", creds.StoreID).
			Msg("Skipping malformed store profile")
		return result, nil
	}

	description := c.resolve(profile.Description, creds, "")

	var sb strings.Builder
	sb.WriteString(name)
	if description != "" {
		sb.WriteString("\n\n")
		sb.WriteString(description)
	}
	sb.WriteString(fmt.Sprintf("\n\nDomain: %s. Plan: %s. Locale: %s.", profile.Domain, profile.Plan, profile.Locale))

	metadata, err := (&models.StoreMetadata{
		StoreName: name,
		Domain:    profile.Domain,
		Plan:      profile.Plan,
		Locale:    profile.Locale,
	}).ToMap()
	if err != nil {
		result.Skipped = 1
		return result, nil
	}

	result.Records = append(result.Records, models.SourceRecord{
		SourceID:  profile.ID,
		DataType:  models.DataTypeStore,
		Text:      sb.String(),
		Metadata:  metadata,
		UpdatedAt: profile.UpdatedAt,
	})
	return result, nil
}
