package vault

import "fmt"

// AdditionalLockSeconds computes the argument for a lock extension: the
// number of seconds to add on top of the current unlock time so that the
// lock ends durationSeconds from now.
//
// The unlock time may only move forward. When now + durationSeconds does not
// pass the current unlock time the extension is rejected with
// ErrNonIncreasingLock before anything reaches the network.
func AdditionalLockSeconds(nowUnixUTC int64, durationSeconds int64, currentUnlockUnixUTC int64) (int64, error) {
	if durationSeconds <= 0 {
		return 0, fmt.Errorf("%w: duration must be positive", ErrInvalidDuration)
	}
	desiredEndUnixUTC := nowUnixUTC + durationSeconds
	additionalSeconds := desiredEndUnixUTC - currentUnlockUnixUTC
	if additionalSeconds <= 0 {
		return 0, fmt.Errorf("%w: desired end %d is not after current unlock %d", ErrNonIncreasingLock, desiredEndUnixUTC, currentUnlockUnixUTC)
	}
	return additionalSeconds, nil
}
