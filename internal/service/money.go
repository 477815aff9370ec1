package service

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// parseMoney parses a decimal money string, treating empty as zero
func parseMoney(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(value)
}

// parseUUID parses a UUID string
func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(value)
}
