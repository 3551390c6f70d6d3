package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrForbidden          = errors.New("operation not permitted for this user")
	ErrLockHeld           = errors.New("lock is held by another owner")

	// Pricing / checkout
	ErrQuoteExpired      = errors.New("purchase session expired, request a new price quote")
	ErrPlanNotFound      = errors.New("plan not found")
	ErrPlanInactive      = errors.New("plan is not available for purchase")
	ErrPlanInUse         = errors.New("plan is referenced by subscriptions")
	ErrDiscountNotFound  = errors.New("discount code not found")
	ErrDiscountNotUsable = errors.New("discount code is not usable")
	ErrDiscountExhausted = errors.New("discount code usage limit reached")
	ErrReferralInvalid   = errors.New("referral code is invalid")
	ErrAmountTooLow      = errors.New("payable amount must be positive")
	ErrCheckoutInFlight  = errors.New("another checkout for this plan is in progress")

	// Payment lifecycle
	ErrPaymentNotFound        = errors.New("payment not found")
	ErrPaymentClosed          = errors.New("payment already cancelled or failed")
	ErrPaymentCancelled       = errors.New("payment cancelled by user")
	ErrPaymentFailed          = errors.New("payment failed")
	ErrVerificationInProgress = errors.New("payment verification already in progress")
	ErrPaymentNotSettled      = errors.New("payment is not settled at the gateway yet")
	ErrUnknownProvider        = errors.New("unknown payment provider")

	// Gateway outcomes
	ErrGatewayRejected    = errors.New("payment gateway rejected the transaction")
	ErrGatewayUnavailable = errors.New("payment gateway unreachable, try again")

	// Data integrity
	ErrInvariantViolation = errors.New("invariant violation")
)

// Kind groups errors by how callers are expected to react to them.
type Kind int

const (
	KindInternal Kind = iota
	KindUserRecoverable
	KindNotFound
	KindForbidden
	KindConflict
	KindGatewayFailure
	KindTransient
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindUserRecoverable:
		return "user_recoverable"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindGatewayFailure:
		return "gateway_failure"
	case KindTransient:
		return "transient"
	case KindInvariant:
		return "invariant"
	default:
		return "internal"
	}
}

var kinds = []struct {
	kind Kind
	errs []error
}{
	{KindInvariant, []error{ErrInvariantViolation}},
	{KindTransient, []error{ErrGatewayUnavailable, ErrVerificationInProgress, ErrPaymentNotSettled, ErrCheckoutInFlight, ErrLockHeld}},
	{KindGatewayFailure, []error{ErrGatewayRejected, ErrPaymentFailed, ErrPaymentCancelled}},
	{KindForbidden, []error{ErrForbidden}},
	{KindNotFound, []error{ErrNotFound, ErrPaymentNotFound, ErrPlanNotFound}},
	{KindConflict, []error{ErrAlreadyExists, ErrPlanInUse}},
	{KindUserRecoverable, []error{
		ErrQuoteExpired, ErrPlanInactive, ErrDiscountNotFound, ErrDiscountNotUsable,
		ErrDiscountExhausted, ErrReferralInvalid, ErrAmountTooLow, ErrPaymentClosed,
		ErrInvalidArgument, ErrUnknownProvider,
	}},
}

// Classify maps err onto the error taxonomy. Unknown errors are internal.
func Classify(err error) Kind {
	if err == nil {
		return KindInternal
	}
	for _, group := range kinds {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.kind
			}
		}
	}
	return KindInternal
}
