package hunt

import "errors"

var (
	// ErrConfig marks cycle preconditions that need operator action.
	ErrConfig = errors.New("hunt: configuration error")
	// ErrCampaignNotFound is returned for ids neither stored nor configured.
	ErrCampaignNotFound = errors.New("hunt: campaign not found")
	// ErrInvalidState is returned for states outside the operator-settable set.
	ErrInvalidState = errors.New("hunt: invalid state")
	// ErrInvalidTransition is returned when leaving a terminal state.
	ErrInvalidTransition = errors.New("hunt: invalid state transition")
	// ErrMissingMeta is returned when a new item lacks community or url.
	ErrMissingMeta = errors.New("hunt: community and url are required for a new item")
	// ErrCapReached is returned by posting when today's cap is used up.
	ErrCapReached = errors.New("hunt: daily post cap reached")
	// ErrNotDrafted is returned when posting an item without a pending draft.
	ErrNotDrafted = errors.New("hunt: item has no pending draft")
)
