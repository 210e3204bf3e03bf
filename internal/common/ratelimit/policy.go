package ratelimit

import (
	"fmt"
	"time"
)

// Policy is a per-endpoint limit
type Policy struct {
	Name        string        `json:"name"`
	MaxRequests int           `json:"max_requests"`
	Window      time.Duration `json:"window"`
	// FailClosed denies requests when the store cannot be reached
	FailClosed bool `json:"fail_closed"`
}

// Predefined policies
var (
	Contact      = Policy{Name: "contact", MaxRequests: 5, Window: 15 * time.Minute}
	Feedback     = Policy{Name: "feedback", MaxRequests: 10, Window: 30 * time.Minute}
	Upload       = Policy{Name: "upload", MaxRequests: 20, Window: 24 * time.Hour, FailClosed: true}
	UploadStatus = Policy{Name: "upload-status", MaxRequests: 60, Window: time.Minute}
)

// Validate checks that the policy can be enforced
func (p Policy) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("rate limit policy name is required")
	}
	if p.MaxRequests <= 0 {
		return fmt.Errorf("rate limit policy %s: max requests must be positive", p.Name)
	}
	if p.Window <= 0 {
		return fmt.Errorf("rate limit policy %s: window must be positive", p.Name)
	}
	return nil
}
