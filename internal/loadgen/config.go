// Package loadgen drives a running review server with synthetic applicants:
// it creates profiles, submits applications concurrently and checks that
// resubmissions are refused.
package loadgen

import (
	"errors"
	"strings"
	"time"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL    string        // Base URL of the review server
	EventSlug  string        // Event the applicants apply to
	Applicants int           // Number of synthetic applicants
	Resubmit   int           // How many of them submit a second time
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	Verbose    bool          // Log every failed request
}

// Applicant is one synthetic person with the answers they will submit.
type Applicant struct {
	Email   string
	Profile Profile
	Answers map[string]string
}

// Profile mirrors the editable profile fields of the review API.
type Profile struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	LinkedIn    string `json:"linkedin"`
	Location    string `json:"location"`
	CurrentRole string `json:"current_role"`
	PriorRole   string `json:"prior_role"`
	Education   string `json:"education"`
}

// Stats holds run statistics.
type Stats struct {
	Generated  int
	Submitted  int
	Accepted   int
	Duplicate  int
	Failed     int
	Resubmits  int
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Throughput float64
}

// Validate fills defaults and rejects unusable values.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.BaseURL) == "":
		return errors.New("loadgen: base url is required")
	case strings.TrimSpace(c.EventSlug) == "":
		return errors.New("loadgen: event slug is required")
	case c.Applicants < 1:
		return errors.New("loadgen: at least one applicant is required")
	case c.Resubmit < 0 || c.Resubmit > c.Applicants:
		return errors.New("loadgen: resubmit must be between zero and the applicant count")
	}
	if c.Workers < 1 {
		c.Workers = DefaultWorkers
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return nil
}
