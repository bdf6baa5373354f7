package staking

import (
	coreerrors "github.com/zibert/ACDM/core/errors"
)

const moduleName = "staking"

var (
	errStateNotConfigured = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "state not configured")

	ErrZeroAmount         = coreerrors.New(coreerrors.ErrInvalidArgument, moduleName, "amount must be more then 0")
	ErrNotInWhiteList     = coreerrors.New(coreerrors.ErrProofRejected, moduleName, "not in white list")
	ErrNotOwner           = coreerrors.New(coreerrors.ErrUnauthorized, moduleName, "you are not a owner")
	ErrNothingToTransfer  = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "nothing to transfer")
	ErrAlreadyRequested   = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "already requested")
	ErrNotRequested       = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "unstake not requested")
	ErrUnstakeTooEarly    = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "time for unstaking has not come")
	ErrAlreadyReleased    = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "already released")
	ErrActiveVotings      = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "you have active votings")
	ErrPositionNotFound   = coreerrors.New(coreerrors.ErrNotFound, moduleName, "position not found")
	ErrOnlyOwner          = coreerrors.New(coreerrors.ErrUnauthorized, moduleName, "only owner")
	ErrGovernorNotSet     = coreerrors.New(coreerrors.ErrUnauthorized, moduleName, "dao isin't init")
	ErrNotAllowed         = coreerrors.New(coreerrors.ErrUnauthorized, moduleName, "not allowed")
	ErrGovernorAlreadySet = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "dao already set")
	ErrZeroGovernor       = coreerrors.New(coreerrors.ErrInvalidArgument, moduleName, "incorrect address")
	ErrAlreadyInitialised = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "already initialised")
)
