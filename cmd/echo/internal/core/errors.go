package core

import "errors"

// IsTransient reports whether err is an interruption that should be retried
// without being surfaced, such as EINTR.
func IsTransient(err error) bool {
	return isAny(err, transientErrnos)
}

// IsPeerGone reports whether err means the peer already went away
// (broken pipe, connection reset).
func IsPeerGone(err error) bool {
	return isAny(err, peerGoneErrnos)
}

func isAny(err error, targets []error) bool {
	if err == nil {
		return false
	}
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
