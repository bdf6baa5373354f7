package rpc

// methods routes JSON-RPC method names. Mutating methods pass through bearer
// authentication when a secret is configured; signed methods also prove the
// caller with a signature over the request.
var methods = map[string]method{
	"acdm_getBalance":  {handler: (*Server).handleGetBalance},
	"acdm_events":      {handler: (*Server).handleEvents},
	"acdm_getNonce":    {handler: (*Server).handleGetNonce},
	"acdm_fundAccount": {handler: (*Server).handleFundAccount, mutating: true},

	"staking_stake":       {handler: (*Server).handleStake, mutating: true, signed: true},
	"staking_claim":       {handler: (*Server).handleClaim, mutating: true, signed: true},
	"staking_unstake":     {handler: (*Server).handleUnstake, mutating: true, signed: true},
	"staking_getPosition": {handler: (*Server).handleGetPosition},
	"staking_positionsOf": {handler: (*Server).handlePositionsOf},
	"staking_weight":      {handler: (*Server).handleVotingWeight},
	"staking_params":      {handler: (*Server).handleStakingParams},

	"gov_addProposal":    {handler: (*Server).handleAddProposal, mutating: true, signed: true},
	"gov_vote":           {handler: (*Server).handleVote, mutating: true, signed: true},
	"gov_delegate":       {handler: (*Server).handleDelegate, mutating: true, signed: true},
	"gov_finishProposal": {handler: (*Server).handleFinishProposal, mutating: true},
	"gov_getProposal":    {handler: (*Server).handleGetProposal},
	"gov_getBallot":      {handler: (*Server).handleGetBallot},
	"gov_config":         {handler: (*Server).handleGovernanceConfig},

	"platform_register":            {handler: (*Server).handleRegister, mutating: true, signed: true},
	"platform_startFirstSaleRound": {handler: (*Server).handleStartFirstSaleRound, mutating: true},
	"platform_startSaleRound":      {handler: (*Server).handleStartSaleRound, mutating: true},
	"platform_startTradeRound":     {handler: (*Server).handleStartTradeRound, mutating: true},
	"platform_buyACDM":             {handler: (*Server).handleBuyACDM, mutating: true, signed: true},
	"platform_addOrder":            {handler: (*Server).handleAddOrder, mutating: true, signed: true},
	"platform_removeOrder":         {handler: (*Server).handleRemoveOrder, mutating: true, signed: true},
	"platform_buyOrder":            {handler: (*Server).handleBuyOrder, mutating: true, signed: true},
	"platform_round":               {handler: (*Server).handleRound},
	"platform_awards":              {handler: (*Server).handleAwards},
	"platform_getOrder":            {handler: (*Server).handleGetOrder},
	"platform_openOrders":          {handler: (*Server).handleOpenOrders},
	"platform_referrer":            {handler: (*Server).handleReferrer},
	"platform_savedEther":          {handler: (*Server).handleSavedEther},
}
