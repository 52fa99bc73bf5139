package infra

import "fmt"

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "vhp"
)

// Ключи хранения
const (
	RedisKeyAuditLog = RedisNamespace + ":audit:log"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanDriverNotify — план действий отправлен водителю
	RedisChanDriverNotify = RedisNamespace + ":notifications:driver"
	// RedisChanSecurityBlock — прогон заблокирован compliance-проверкой
	RedisChanSecurityBlock = RedisNamespace + ":security:blocked"
)

// VehicleChannel канал уведомлений конкретной машины
func VehicleChannel(vehicleID string) string {
	return fmt.Sprintf("%s:vehicle:%s", RedisNamespace, vehicleID)
}
