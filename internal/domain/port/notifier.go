package port

import "context"

// RosterFailure describes a job that will not be retried.
type RosterFailure struct {
	UserEmail string
	ClubID    string
	JobID     string
	VideoKey  string
	Reason    string
}

type FailureNotifier interface {
	NotifyFailure(ctx context.Context, failure RosterFailure) error
}
