package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"strangerchat/internal/models"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrAlreadyQueued is returned when a user with an active ticket
	// attempts to enqueue again.
	ErrAlreadyQueued = fmt.Errorf("user already has an active ticket")

	// ErrClaimConflict is returned when a conditional claim loses the race
	// against a concurrent pairing pass. It is handled internally by the
	// matchmaker and never surfaces to callers.
	ErrClaimConflict = fmt.Errorf("ticket claim lost to a concurrent pass")

	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = fmt.Errorf("record not found")
)

// Classify maps a store failure to the monitor's error taxonomy. Claim
// conflicts are expected and retried; everything else surfaces to listeners
// as a status object, never as a raw exception.
func Classify(err error) models.ErrorCode {
	if err == nil {
		return models.ErrorNone
	}

	if errors.Is(err, ErrClaimConflict) {
		return models.ErrorConflict
	}

	if errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return models.ErrorOffline
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return models.ErrorOffline
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		switch cmdErr.Code {
		case 13: // Unauthorized
			return models.ErrorPermissionDenied
		case 27, 291: // IndexNotFound, NoQueryExecutionPlans
			return models.ErrorMissingIndex
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "permission denied"):
		return models.ErrorPermissionDenied
	case strings.Contains(msg, "index not found"), strings.Contains(msg, "no index"):
		return models.ErrorMissingIndex
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no reachable servers"),
		strings.Contains(msg, "server selection error"):
		return models.ErrorOffline
	}

	return models.ErrorUnknown
}
