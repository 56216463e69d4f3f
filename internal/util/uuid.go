package util

import (
	"fmt"

	"github.com/google/uuid"
)

func GenerateUUID() (string, error) {
	newUUID, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID: %w", err)
	}
	return newUUID.String(), nil
}
