package connectors

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/taberna/internal/commerce"
	"github.com/ternarybob/taberna/internal/common"
	"github.com/ternarybob/taberna/internal/interfaces"
	"github.com/ternarybob/taberna/internal/models"
)

// NewRegistry builds one connector per data type, all sharing the same
// platform client.
func NewRegistry(client *commerce.Client, config *common.CommerceConfig, logger arbor.ILogger) map[models.DataType]interfaces.SourceConnector {
	return map[models.DataType]interfaces.SourceConnector{
		models.DataTypeStore:         NewStoreConnector(client, config, logger),
		models.DataTypeProducts:      NewProductConnector(client, config, logger),
		models.DataTypeOrders:        NewOrderConnector(client, config, logger),
		models.DataTypeCustomers:     NewCustomerConnector(client, config, logger),
		models.DataTypeAnalytics:     NewAnalyticsConnector(client, config, logger),
		models.DataTypeConversations: NewConversationConnector(client, config, logger),
	}
}
