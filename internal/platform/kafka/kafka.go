// Package kafka holds the franz-go plumbing shared by the closure job producer
// and the closure worker.
package kafka

import (
	"errors"

	platformstrings "youthsessions/pkg/platform/strings"
)

// ErrNoBrokers is returned when the broker list is empty.
var ErrNoBrokers = errors.New("kafka brokers not configured")

// SeedBrokers turns a comma-separated broker list into seed addresses.
func SeedBrokers(list string) ([]string, error) {
	brokers := platformstrings.SplitList(list)
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	return brokers, nil
}
