package domain

import "time"

// Provider, Patient and Validator mirror the read-only reference
// directory: the core reads these, it never mutates them.

type Provider struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
}

type Patient struct {
	ID               string    `json:"id"`
	FullName         string    `json:"fullName"`
	DOB              time.Time `json:"dob"`
	PrimaryProviderID string   `json:"primaryProviderId"`
}

type Validator struct {
	ID             string    `json:"id"`
	Tier           int       `json:"tier"`
	Reputation     float64   `json:"reputation"`
	BlocksProposed int       `json:"blocksProposed"`
	Uptime         float64   `json:"uptime"`
	LastSeen       time.Time `json:"lastSeen"`
}
