package auth

import (
	"strconv"
	"strings"
)

const (
	sessionPrefix = "USER:"
	// DevSessionValue is honoured in development only and maps to a fixed local identity.
	DevSessionValue = "DEV:dummy"

	devEmail = "dummy@example.com"
	devName  = "Dummy User"
)

// EncodeSession mints the session credential for a user id.
func EncodeSession(userID int64) string {
	return sessionPrefix + strconv.FormatInt(userID, 10)
}

type sessionKind int

const (
	sessionAbsent sessionKind = iota
	sessionUser
	sessionDev
)

// parseSession classifies a raw cookie value. Values that do not start with
// a known prefix are treated as absent.
func parseSession(raw string) (sessionKind, int64, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return sessionAbsent, 0, nil
	case raw == DevSessionValue:
		return sessionDev, 0, nil
	case strings.HasPrefix(raw, sessionPrefix):
		id, err := strconv.ParseInt(strings.TrimPrefix(raw, sessionPrefix), 10, 64)
		if err != nil || id <= 0 {
			return sessionAbsent, 0, ErrSessionUnrecognized
		}
		return sessionUser, id, nil
	default:
		return sessionAbsent, 0, nil
	}
}
