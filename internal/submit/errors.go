package submit

import (
	"errors"

	"rugal-dominion/internal/txbuilder"
	"rugal-dominion/internal/wallet"
)

var (
	// ErrSimulationFailed is returned when simulation reports an error or cannot run.
	ErrSimulationFailed = errors.New("transaction simulation failed")
	// ErrSigningFailed is returned when the wallet declines or fails to sign.
	ErrSigningFailed = errors.New("transaction signing failed")
	// ErrSendFailed is returned when the node rejects the transaction.
	ErrSendFailed = errors.New("transaction send failed")
	// ErrTransactionFailed is returned when the confirmed transaction carries an error.
	ErrTransactionFailed = errors.New("transaction failed")
	// ErrExpired is returned when the blockhash expires before confirmation.
	ErrExpired = errors.New("transaction expired before confirmation")
)

// UserMessage maps a submission error to a generic message safe to show a user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, txbuilder.ErrNothingToBuild):
		return "Nothing to process. Select at least one eligible account."
	case errors.Is(err, txbuilder.ErrFrozenAccount):
		return "Frozen accounts cannot be closed or burned."
	case errors.Is(err, wallet.ErrNotConnected):
		return "Please connect your wallet first."
	case errors.Is(err, ErrSigningFailed), errors.Is(err, wallet.ErrNotSigner):
		return "The transaction was not signed by your wallet."
	case errors.Is(err, ErrSimulationFailed):
		return "Transaction simulation failed. Please try again."
	case errors.Is(err, ErrExpired):
		return "Transaction was not confirmed in time. Please try again."
	default:
		return "Transaction failed. Please try again."
	}
}

// status labels a submission outcome for metrics.
func status(err error) string {
	switch {
	case err == nil:
		return "confirmed"
	case errors.Is(err, ErrSimulationFailed):
		return "simulation_failed"
	case errors.Is(err, ErrSigningFailed):
		return "signing_failed"
	case errors.Is(err, ErrSendFailed):
		return "send_failed"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrTransactionFailed):
		return "failed"
	default:
		return "error"
	}
}
