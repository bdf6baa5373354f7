package governance

import (
	coreerrors "github.com/zibert/ACDM/core/errors"
)

const moduleName = "governance"

var (
	errStateNotConfigured = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "state not configured")

	ErrNotChair                = coreerrors.New(coreerrors.ErrUnauthorized, moduleName, "not a chair person")
	ErrProposalNotFound        = coreerrors.New(coreerrors.ErrNotFound, moduleName, "not exist")
	ErrVotingOver              = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "voting is over")
	ErrVotingInProgress        = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "voting in progress")
	ErrVotingFinished          = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "voting is finished")
	ErrAlreadyVoted            = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "already voted")
	ErrAlreadyVotedOrDelegated = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "already voted or delegated")
	ErrNoVotingTokens          = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "voting tokens are 0")
	ErrZeroDeposit             = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "deposite is 0")
	ErrDelegationToVoted       = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "delegation to voted")
	ErrDelegationToDelegated   = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "delegation to delegated")
	ErrDelegatorHasIncoming    = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "delegations are not transitive")
	ErrSelfDelegation          = coreerrors.New(coreerrors.ErrInvalidArgument, moduleName, "self-delegation prohibited")
	ErrZeroDelegate            = coreerrors.New(coreerrors.ErrInvalidArgument, moduleName, "incorrect address")
	ErrZeroRecipient           = coreerrors.New(coreerrors.ErrInvalidArgument, moduleName, "incorrect recipient")
	ErrAlreadyInitialised      = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "already initialised")
)

var errNoExecutor = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "no executor configured")
