package relay

import (
	"time"

	"relaypool/internal/domain/entity"
)

// DTO is the external representation of a relay. Credentials never leave the
// service.
type DTO struct {
	ID                 string     `json:"id"`
	Host               string     `json:"host"`
	Port               int        `json:"port"`
	Active             bool       `json:"active"`
	SuccessRate        float64    `json:"success_rate"`
	TotalRequests      int64      `json:"total_requests"`
	SuccessfulRequests int64      `json:"successful_requests"`
	FailedRequests     int64      `json:"failed_requests"`
	AvgResponseTimeMs  float64    `json:"avg_response_time_ms"`
	LastUsedAt         *time.Time `json:"last_used_at,omitempty"`
	LastErrorMessage   *string    `json:"last_error_message,omitempty"`
	HealthStatus       string     `json:"health_status"`
}

func toDTO(r *entity.Relay) DTO {
	return DTO{
		ID:                 r.ID,
		Host:               r.Host,
		Port:               r.Port,
		Active:             r.Active,
		SuccessRate:        r.SuccessRate,
		TotalRequests:      r.TotalRequests,
		SuccessfulRequests: r.SuccessfulRequests,
		FailedRequests:     r.FailedRequests,
		AvgResponseTimeMs:  r.AvgResponseTimeMs,
		LastUsedAt:         r.LastUsedAt,
		LastErrorMessage:   r.LastErrorMessage,
		HealthStatus:       string(r.HealthStatus),
	}
}
