package constants

// Имена очередей
const (
	QueueIngestedProperties = "hemnet_ingested_properties"
	QueueNotifications      = "hemnet_notifications"
)

// Ключи маршрутизации
const (
	RoutingKeyPropertyIngested = "hemnet.property.ingested"
	RoutingKeyNotification     = "hemnet.notification.received"
)
