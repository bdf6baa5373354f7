package platform

import (
	coreerrors "github.com/zibert/ACDM/core/errors"
)

const moduleName = "platform"

var (
	errStateNotConfigured = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "state not configured")

	ErrOnlyDAO             = coreerrors.New(coreerrors.ErrUnauthorized, moduleName, "only dao")
	ErrNotOrderOwner       = coreerrors.New(coreerrors.ErrUnauthorized, moduleName, "not a owner")
	ErrAlreadyStarted      = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "already started")
	ErrNotStarted          = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "the first sale round isn't stated")
	ErrNotSaleRound        = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "not a sale round")
	ErrNotTradeRound       = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "not a trade round")
	ErrSaleInProgress      = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "sale round in progress")
	ErrTradeInProgress     = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "trade round in progress")
	ErrNoEthers            = coreerrors.New(coreerrors.ErrInvalidArgument, moduleName, "no ethers has been sent")
	ErrNotEnoughSaleTokens = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "not enough tokens to sale")
	ErrNotEnoughEthers     = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "not enough ethers")
	ErrNotEnoughTokens     = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "not enough tokens")
	ErrZeroAmount          = coreerrors.New(coreerrors.ErrInvalidArgument, moduleName, "amount is 0")
	ErrZeroPrice           = coreerrors.New(coreerrors.ErrInvalidArgument, moduleName, "price is 0")
	ErrOrderNotFound       = coreerrors.New(coreerrors.ErrNotFound, moduleName, "order not exist")
	ErrSelfRegistration    = coreerrors.New(coreerrors.ErrInvalidArgument, moduleName, "such registration is prohibited")
	ErrZeroReferrer        = coreerrors.New(coreerrors.ErrInvalidArgument, moduleName, "incorrect address")
	ErrAlreadyRegistered   = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "already registered")
	ErrAwardTooLarge       = coreerrors.New(coreerrors.ErrInvalidArgument, moduleName, "award exceeds payment")
	ErrNothingSaved        = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "nothing to transfer")
	ErrNoLiquidityPool     = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "liquidity pool not configured")
	ErrAlreadyInitialised  = coreerrors.New(coreerrors.ErrPreconditionFailed, moduleName, "already initialised")
)
