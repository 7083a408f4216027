package attribution

import "moveo/models"

// Outcome is the business result of a command. Rejections are outcomes,
// not errors.
type Outcome string

const (
	OutcomeBroadcasting        Outcome = "broadcasting"
	OutcomeNoEligibleProviders Outcome = "no_eligible_providers"
	OutcomeAccepted            Outcome = "accepted"
	OutcomeRefused             Outcome = "refused"
	OutcomeReBroadcast         Outcome = "re_broadcast"
	OutcomeExpired             Outcome = "expired"
	OutcomeCompleted           Outcome = "completed"
	OutcomeCancelled           Outcome = "cancelled"

	OutcomeAlreadyAttributed Outcome = "already_attributed"
	OutcomeClosed            Outcome = "closed"
	OutcomeExcluded          Outcome = "excluded"
	OutcomeNotInvited        Outcome = "not_invited"
	OutcomeAlreadyResponded  Outcome = "already_responded"
	OutcomeNotAttributed     Outcome = "not_attributed"
	OutcomeNotAssignee       Outcome = "not_assignee"
	OutcomeNotDue            Outcome = "not_due"
)

// Status reasons written on transitions.
const (
	ReasonNoEligibleProviders = "no eligible providers"
	ReasonAllRefused          = "all providers refused"
	ReasonTimedOut            = "no provider accepted in time"
	ReasonProviderCancelled   = "cancelled by provider"
)

type StartResult struct {
	Attribution *models.Attribution           `json:"attribution"`
	Invited     []models.ProviderWithDistance `json:"invited"`
	Outcome     Outcome                       `json:"outcome"`
	// Resumed is set when an interrupted broadcast was completed.
	Resumed     bool                          `json:"resumed,omitempty"`
}

type AcceptResult struct {
	Success         bool                `json:"success"`
	Outcome         Outcome             `json:"outcome"`
	AlreadyAccepted bool                `json:"alreadyAccepted,omitempty"`
	Attribution     *models.Attribution `json:"attribution,omitempty"`
}

type RefusalResult struct {
	Success     bool                `json:"success"`
	Outcome     Outcome             `json:"outcome"`
	Blacklisted bool                `json:"blacklisted,omitempty"`
	Expired     bool                `json:"expired,omitempty"`
	Attribution *models.Attribution `json:"attribution,omitempty"`
}

type CancellationResult struct {
	Success     bool                          `json:"success"`
	Outcome     Outcome                       `json:"outcome"`
	Invited     []models.ProviderWithDistance `json:"invited,omitempty"`
	Expired     bool                          `json:"expired,omitempty"`
	Attribution *models.Attribution           `json:"attribution,omitempty"`
}

type ExpiryResult struct {
	Expired     bool                `json:"expired"`
	Outcome     Outcome             `json:"outcome"`
	Attribution *models.Attribution `json:"attribution,omitempty"`
}

// TransitionResult is returned by the administrative transitions.
type TransitionResult struct {
	Success     bool                `json:"success"`
	Outcome     Outcome             `json:"outcome"`
	Attribution *models.Attribution `json:"attribution,omitempty"`
}
