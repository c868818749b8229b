package commerce

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/taberna/internal/common"
	"github.com/ternarybob/taberna/internal/interfaces"
	"github.com/ternarybob/taberna/internal/models"
)

// StaticAccountStore serves store credentials from configuration. It stands
// in for the account/session service that owns merchant authorization in a
// full deployment; credential validity is still verified against the platform
// on every sync (401/403 surfaces ReconnectRequiredError).
type StaticAccountStore struct {
	accounts map[string]*models.StoreCredentials
	logger   arbor.ILogger
}

// NewStaticAccountStore creates an account store from configured accounts.
func NewStaticAccountStore(accounts []common.StoreAccountConfig, logger arbor.ILogger) interfaces.AccountStore {
	byID := make(map[string]*models.StoreCredentials, len(accounts))
	for _, account := range accounts {
		locale := account.PrimaryLocale
		if locale == "" {
			locale = "en"
		}
		byID[account.StoreID] = &models.StoreCredentials{
			StoreID:       account.StoreID,
			AccessToken:   account.AccessToken,
			APIBaseURL:    account.APIBaseURL,
			PrimaryLocale: locale,
		}
	}
	return &StaticAccountStore{accounts: byID, logger: logger}
}

// GetCredentials returns the credentials for a connected store. An unknown
// store is the same class of failure as a revoked token: no amount of
// retrying fixes it, the merchant has to connect the store first.
func (s *StaticAccountStore) GetCredentials(ctx context.Context, storeID string) (*models.StoreCredentials, error) {
	creds, ok := s.accounts[storeID]
	if !ok {
		return nil, fmt.Errorf("store %s is not connected: %w", storeID, &models.ReconnectRequiredError{StoreID: storeID})
	}
	return creds, nil
}
