package platform

import (
	"math/big"
	"time"

	"github.com/zibert/ACDM/core/events"
	"github.com/zibert/ACDM/core/state"
	"github.com/zibert/ACDM/crypto"
)

// Address holds the sale allocation, escrowed orders and saved ether.
var Address = crypto.ModuleAddress(moduleName)

type platformState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	Balance(addr []byte, symbol string) (*big.Int, error)
	Transfer(symbol string, from, to []byte, amount *big.Int) error
	Mint(symbol string, minter, to []byte, amount *big.Int) error
	Burn(symbol string, from []byte, amount *big.Int) error
}

// LiquidityPool swaps ether held by holder for reward tokens credited back to
// holder. It returns the amount of reward tokens received.
type LiquidityPool interface {
	SwapETHForXXX(holder [20]byte, etherIn *big.Int) (*big.Int, error)
}

// Engine runs sale and trade rounds, the order book and referral payouts.
type Engine struct {
	state   platformState
	emitter events.Emitter
	nowFn   func() time.Time
	pool    LiquidityPool
}

// NewEngine constructs a platform engine with default no-op dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

func (e *Engine) SetState(s platformState) { e.state = s }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source. Nil restores the default UTC clock.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		e.nowFn = func() time.Time { return time.Now().UTC() }
		return
	}
	e.nowFn = now
}

// SetLiquidityPool wires the swap venue used by BurnXXX.
func (e *Engine) SetLiquidityPool(pool LiquidityPool) { e.pool = pool }

func (e *Engine) now() uint64 {
	if e.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	ts := e.nowFn().Unix()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func (e *Engine) emit(evt events.Event) {
	if e.emitter != nil {
		e.emitter.Emit(evt)
	}
}

// Init records the deploying owner, the administrative governor and the fixed
// round economics. Awards start at their defaults.
func (e *Engine) Init(owner, governor [20]byte, params Params) error {
	if e.state == nil {
		return errStateNotConfigured
	}
	ok, err := e.state.KVGet(paramsKey, nil)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyInitialised
	}
	defaults := DefaultParams()
	if params.RoundDuration == 0 {
		params.RoundDuration = defaults.RoundDuration
	}
	if params.InitialPrice == nil || params.InitialPrice.Sign() <= 0 {
		params.InitialPrice = defaults.InitialPrice
	}
	if params.InitialSupply == nil || params.InitialSupply.Sign() <= 0 {
		params.InitialSupply = defaults.InitialSupply
	}
	if params.PriceIncrement == nil {
		params.PriceIncrement = defaults.PriceIncrement
	}
	if err := e.state.KVPut(paramsKey, &params); err != nil {
		return err
	}
	if err := e.state.KVPut(ownerKey, owner); err != nil {
		return err
	}
	if err := e.state.KVPut(governorKey, governor); err != nil {
		return err
	}
	awards := DefaultAwards()
	return e.state.KVPut(awardsKey, &awards)
}

// Params returns the fixed round economics.
func (e *Engine) Params() (*Params, error) {
	if e.state == nil {
		return nil, errStateNotConfigured
	}
	params := DefaultParams()
	if _, err := e.state.KVGet(paramsKey, &params); err != nil {
		return nil, err
	}
	return &params, nil
}

func (e *Engine) Owner() ([20]byte, error) {
	var owner [20]byte
	if e.state == nil {
		return owner, errStateNotConfigured
	}
	_, err := e.state.KVGet(ownerKey, &owner)
	return owner, err
}

func (e *Engine) Governor() ([20]byte, error) {
	var governor [20]byte
	if e.state == nil {
		return governor, errStateNotConfigured
	}
	_, err := e.state.KVGet(governorKey, &governor)
	return governor, err
}

// Round returns the current phase. Before the first sale it reports
// RoundUninitialized with zero price and tokens.
func (e *Engine) Round() (*Round, error) {
	if e.state == nil {
		return nil, errStateNotConfigured
	}
	round := &Round{Price: big.NewInt(0), Tokens: big.NewInt(0), TradeVolume: big.NewInt(0)}
	if _, err := e.state.KVGet(roundKey, round); err != nil {
		return nil, err
	}
	return round, nil
}

func (e *Engine) putRound(round *Round) error {
	return e.state.KVPut(roundKey, round)
}

// Awards returns the governed referral shares.
func (e *Engine) Awards() (*Awards, error) {
	if e.state == nil {
		return nil, errStateNotConfigured
	}
	awards := DefaultAwards()
	if _, err := e.state.KVGet(awardsKey, &awards); err != nil {
		return nil, err
	}
	return &awards, nil
}

// SavedEther reports the ether the platform holds for its owner.
func (e *Engine) SavedEther() (*big.Int, error) {
	if e.state == nil {
		return nil, errStateNotConfigured
	}
	return e.state.Balance(Address[:], state.TokenETH)
}

// Referrer returns addr's registered referrer.
func (e *Engine) Referrer(addr [20]byte) ([20]byte, bool, error) {
	var referrer [20]byte
	if e.state == nil {
		return referrer, false, errStateNotConfigured
	}
	ok, err := e.state.KVGet(referrerKey(addr), &referrer)
	return referrer, ok, err
}

// referralChain returns up to two referrers above addr, nearest first.
func (e *Engine) referralChain(addr [20]byte) ([][20]byte, error) {
	var chain [][20]byte
	current := addr
	for level := 0; level < 2; level++ {
		next, ok, err := e.Referrer(current)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		chain = append(chain, next)
		current = next
	}
	return chain, nil
}

// Order loads an open order.
func (e *Engine) Order(id uint64) (*Order, error) {
	if e.state == nil {
		return nil, errStateNotConfigured
	}
	order := new(Order)
	ok, err := e.state.KVGet(orderKey(id), order)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// OpenOrders lists the ids of orders still holding escrow.
func (e *Engine) OpenOrders() ([]uint64, error) {
	if e.state == nil {
		return nil, errStateNotConfigured
	}
	var ids []uint64
	if _, err := e.state.KVGet(openOrdersKey, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (e *Engine) dropOrder(id uint64) error {
	ids, err := e.OpenOrders()
	if err != nil {
		return err
	}
	kept := ids[:0]
	for _, existing := range ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	if len(kept) == 0 {
		if err := e.state.KVDelete(openOrdersKey); err != nil {
			return err
		}
	} else if err := e.state.KVPut(openOrdersKey, kept); err != nil {
		return err
	}
	return e.state.KVDelete(orderKey(id))
}

// Register records referrer as the caller's referrer. The edge is permanent.
func (e *Engine) Register(caller, referrer [20]byte) error {
	if e.state == nil {
		return errStateNotConfigured
	}
	if caller == referrer {
		return ErrSelfRegistration
	}
	if referrer == ([20]byte{}) {
		return ErrZeroReferrer
	}
	if _, ok, err := e.Referrer(caller); err != nil {
		return err
	} else if ok {
		return ErrAlreadyRegistered
	}
	upstream, ok, err := e.Referrer(referrer)
	if err != nil {
		return err
	}
	if ok && upstream == caller {
		return ErrSelfRegistration
	}
	if err := e.state.KVPut(referrerKey(caller), referrer); err != nil {
		return err
	}
	e.emit(events.PlatformRegistered{Referred: caller, Referrer: referrer})
	return nil
}

func (e *Engine) roundElapsed(round *Round, params *Params) bool {
	return e.now() >= round.StartedAt+params.RoundDuration
}

func (e *Engine) openSaleRound(round *Round, params *Params, price, tokens *big.Int) error {
	supply := new(big.Int).Mul(tokens, params.unit())
	if err := e.state.Mint(state.TokenACDM, Address[:], Address[:], supply); err != nil {
		return err
	}
	round.Kind = RoundSale
	round.StartedAt = e.now()
	round.Price = price
	round.Tokens = tokens
	if err := e.putRound(round); err != nil {
		return err
	}
	e.emit(events.PlatformRoundStarted{Round: round.Kind.String(), StartedAt: round.StartedAt, Price: price, Tokens: tokens})
	return nil
}

// StartFirstSaleRound mints the initial supply and opens sales at the
// initial price. It runs once.
func (e *Engine) StartFirstSaleRound() error {
	round, err := e.Round()
	if err != nil {
		return err
	}
	if round.Kind != RoundUninitialized {
		return ErrAlreadyStarted
	}
	params, err := e.Params()
	if err != nil {
		return err
	}
	return e.openSaleRound(round, params, new(big.Int).Set(params.InitialPrice), new(big.Int).Set(params.InitialSupply))
}

// StartSaleRound closes a finished trade round. Unsold escrow goes back to
// the sellers, the price steps up and the trade volume becomes the new
// allocation at that price.
func (e *Engine) StartSaleRound() error {
	round, err := e.Round()
	if err != nil {
		return err
	}
	switch round.Kind {
	case RoundUninitialized:
		return ErrNotStarted
	case RoundSale:
		return ErrNotTradeRound
	}
	params, err := e.Params()
	if err != nil {
		return err
	}
	open, err := e.OpenOrders()
	if err != nil {
		return err
	}
	exhausted := len(open) == 0 && round.TradeVolume.Sign() > 0
	if !exhausted && !e.roundElapsed(round, params) {
		return ErrTradeInProgress
	}
	for _, id := range open {
		if err := e.closeOrder(id); err != nil {
			return err
		}
	}
	price := params.NextPrice(round.Price)
	tokens := new(big.Int).Quo(round.TradeVolume, price)
	round.TradeVolume = big.NewInt(0)
	return e.openSaleRound(round, params, price, tokens)
}

// StartTradeRound closes a sold-out or expired sale round and burns the
// allocation left on offer.
func (e *Engine) StartTradeRound() error {
	round, err := e.Round()
	if err != nil {
		return err
	}
	switch round.Kind {
	case RoundUninitialized:
		return ErrNotStarted
	case RoundTrade:
		return ErrNotSaleRound
	}
	params, err := e.Params()
	if err != nil {
		return err
	}
	if round.Tokens.Sign() > 0 && !e.roundElapsed(round, params) {
		return ErrSaleInProgress
	}
	leftover := new(big.Int).Mul(round.Tokens, params.unit())
	if err := e.state.Burn(state.TokenACDM, Address[:], leftover); err != nil {
		return err
	}
	round.Kind = RoundTrade
	round.StartedAt = e.now()
	round.Tokens = big.NewInt(0)
	round.TradeVolume = big.NewInt(0)
	if err := e.putRound(round); err != nil {
		return err
	}
	e.emit(events.PlatformRoundStarted{Round: round.Kind.String(), StartedAt: round.StartedAt, Price: round.Price, Tokens: round.Tokens})
	return nil
}

// payReferrers forwards each level's share of cost from the platform and
// returns the total paid.
func (e *Engine) payReferrers(buyer [20]byte, cost *big.Int, perLevel []uint64) (*big.Int, error) {
	chain, err := e.referralChain(buyer)
	if err != nil {
		return nil, err
	}
	paid := new(big.Int)
	for i, referrer := range chain {
		if i >= len(perLevel) {
			break
		}
		reward := share(cost, perLevel[i])
		if reward.Sign() == 0 {
			continue
		}
		if err := e.state.Transfer(state.TokenETH, Address[:], referrer[:], reward); err != nil {
			return nil, err
		}
		paid.Add(paid, reward)
		e.emit(events.PlatformReferralReward{Buyer: buyer, Referrer: referrer, Level: uint64(i + 1), Amount: reward})
	}
	return paid, nil
}

// BuyACDM sells value/price whole tokens from the current allocation. Ether
// beyond the cost of those tokens stays with the buyer.
func (e *Engine) BuyACDM(caller [20]byte, value *big.Int) (*big.Int, error) {
	round, err := e.Round()
	if err != nil {
		return nil, err
	}
	switch round.Kind {
	case RoundUninitialized:
		return nil, ErrNotStarted
	case RoundTrade:
		return nil, ErrNotSaleRound
	}
	if value == nil || value.Sign() <= 0 {
		return nil, ErrNoEthers
	}
	amount := new(big.Int).Quo(value, round.Price)
	if amount.Sign() == 0 {
		return nil, ErrNotEnoughEthers
	}
	if amount.Cmp(round.Tokens) > 0 {
		return nil, ErrNotEnoughSaleTokens
	}
	params, err := e.Params()
	if err != nil {
		return nil, err
	}
	awards, err := e.Awards()
	if err != nil {
		return nil, err
	}
	cost := new(big.Int).Mul(amount, round.Price)
	if err := e.state.Transfer(state.TokenETH, caller[:], Address[:], cost); err != nil {
		return nil, err
	}
	if _, err := e.payReferrers(caller, cost, []uint64{awards.FirstLevel, awards.SecondLevel}); err != nil {
		return nil, err
	}
	if err := e.state.Transfer(state.TokenACDM, Address[:], caller[:], new(big.Int).Mul(amount, params.unit())); err != nil {
		return nil, err
	}
	round.Tokens = new(big.Int).Sub(round.Tokens, amount)
	if err := e.putRound(round); err != nil {
		return nil, err
	}
	e.emit(events.PlatformACDMBought{Buyer: caller, Amount: amount, Cost: cost, Refunded: new(big.Int).Sub(value, cost)})
	return amount, nil
}

// AddOrder escrows amount whole tokens from the caller for sale at price.
func (e *Engine) AddOrder(caller [20]byte, amount, price *big.Int) (uint64, error) {
	round, err := e.Round()
	if err != nil {
		return 0, err
	}
	if round.Kind != RoundTrade {
		return 0, ErrNotTradeRound
	}
	if amount == nil || amount.Sign() <= 0 {
		return 0, ErrZeroAmount
	}
	if price == nil || price.Sign() <= 0 {
		return 0, ErrZeroPrice
	}
	params, err := e.Params()
	if err != nil {
		return 0, err
	}
	if err := e.state.Transfer(state.TokenACDM, caller[:], Address[:], new(big.Int).Mul(amount, params.unit())); err != nil {
		return 0, err
	}
	var id uint64
	if _, err := e.state.KVGet(nextOrderIDKey, &id); err != nil {
		return 0, err
	}
	order := &Order{ID: id, Seller: caller, Amount: new(big.Int).Set(amount), Price: new(big.Int).Set(price)}
	if err := e.state.KVPut(orderKey(id), order); err != nil {
		return 0, err
	}
	if err := e.state.KVPut(nextOrderIDKey, id+1); err != nil {
		return 0, err
	}
	open, err := e.OpenOrders()
	if err != nil {
		return 0, err
	}
	if err := e.state.KVPut(openOrdersKey, append(open, id)); err != nil {
		return 0, err
	}
	e.emit(events.PlatformAddOrder{ID: id, Seller: caller, Amount: order.Amount, TokenPriceInEther: order.Price})
	return id, nil
}

// closeOrder returns an order's unsold escrow to its seller and deletes it.
func (e *Engine) closeOrder(id uint64) error {
	order, err := e.Order(id)
	if err != nil {
		return err
	}
	params, err := e.Params()
	if err != nil {
		return err
	}
	if err := e.state.Transfer(state.TokenACDM, Address[:], order.Seller[:], new(big.Int).Mul(order.Amount, params.unit())); err != nil {
		return err
	}
	if err := e.dropOrder(id); err != nil {
		return err
	}
	e.emit(events.PlatformRemoveOrder{ID: id, Seller: order.Seller, Returned: order.Amount})
	return nil
}

// RemoveOrder cancels the caller's order.
func (e *Engine) RemoveOrder(caller [20]byte, id uint64) error {
	order, err := e.Order(id)
	if err != nil {
		return err
	}
	if order.Seller != caller {
		return ErrNotOrderOwner
	}
	return e.closeOrder(id)
}

// Buy fills amount whole tokens of an order. The seller receives the cost
// less two trade shares; each share goes to a referrer of the buyer or stays
// with the platform.
func (e *Engine) Buy(caller [20]byte, id uint64, amount, value *big.Int) error {
	round, err := e.Round()
	if err != nil {
		return err
	}
	if round.Kind != RoundTrade {
		return ErrNotTradeRound
	}
	order, err := e.Order(id)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	cost := new(big.Int).Mul(amount, order.Price)
	if value == nil || value.Cmp(cost) < 0 {
		return ErrNotEnoughEthers
	}
	if amount.Cmp(order.Amount) > 0 {
		return ErrNotEnoughTokens
	}
	params, err := e.Params()
	if err != nil {
		return err
	}
	awards, err := e.Awards()
	if err != nil {
		return err
	}

	if err := e.state.Transfer(state.TokenETH, caller[:], Address[:], cost); err != nil {
		return err
	}
	fee := share(cost, 2*awards.Trade)
	proceeds := new(big.Int).Sub(cost, fee)
	if err := e.state.Transfer(state.TokenETH, Address[:], order.Seller[:], proceeds); err != nil {
		return err
	}
	if _, err := e.payReferrers(caller, cost, []uint64{awards.Trade, awards.Trade}); err != nil {
		return err
	}
	if err := e.state.Transfer(state.TokenACDM, Address[:], caller[:], new(big.Int).Mul(amount, params.unit())); err != nil {
		return err
	}

	order.Amount = new(big.Int).Sub(order.Amount, amount)
	if order.Amount.Sign() == 0 {
		if err := e.dropOrder(id); err != nil {
			return err
		}
	} else if err := e.state.KVPut(orderKey(id), order); err != nil {
		return err
	}
	round.TradeVolume = new(big.Int).Add(round.TradeVolume, cost)
	if err := e.putRound(round); err != nil {
		return err
	}
	e.emit(events.PlatformChangeOrder{ID: id, Buyer: caller, Reduction: new(big.Int).Set(amount)})
	return nil
}

func (e *Engine) requireGovernor(caller [20]byte) error {
	governor, err := e.Governor()
	if err != nil {
		return err
	}
	if governor == ([20]byte{}) || caller != governor {
		return ErrOnlyDAO
	}
	return nil
}

func (e *Engine) updateAwards(caller [20]byte, name string, mutate func(*Awards) uint64) error {
	if err := e.requireGovernor(caller); err != nil {
		return err
	}
	awards, err := e.Awards()
	if err != nil {
		return err
	}
	value := mutate(awards)
	if value > awardDenominator || awards.FirstLevel > awardDenominator || awards.SecondLevel > awardDenominator || awards.Trade > awardDenominator {
		return ErrAwardTooLarge
	}
	if awards.FirstLevel+awards.SecondLevel > awardDenominator || 2*awards.Trade > awardDenominator {
		return ErrAwardTooLarge
	}
	awards.Version++
	if err := e.state.KVPut(awardsKey, awards); err != nil {
		return err
	}
	e.emit(events.PlatformAwardUpdated{Name: name, Value: value, Version: awards.Version})
	return nil
}

// SetFirstLevelSaleAward updates the sale share of a buyer's direct referrer.
func (e *Engine) SetFirstLevelSaleAward(caller [20]byte, value uint64) error {
	return e.updateAwards(caller, "first_level_sale", func(a *Awards) uint64 {
		a.FirstLevel = value
		return value
	})
}

// SetSecondLevelSaleAward updates the sale share of the referrer's referrer.
func (e *Engine) SetSecondLevelSaleAward(caller [20]byte, value uint64) error {
	return e.updateAwards(caller, "second_level_sale", func(a *Awards) uint64 {
		a.SecondLevel = value
		return value
	})
}

// SetTradeAward updates the per-level share of a trade.
func (e *Engine) SetTradeAward(caller [20]byte, value uint64) error {
	return e.updateAwards(caller, "trade", func(a *Awards) uint64 {
		a.Trade = value
		return value
	})
}

// SendSavedEthersToOwner sweeps the platform's ether to the deploying owner.
func (e *Engine) SendSavedEthersToOwner(caller [20]byte) error {
	if err := e.requireGovernor(caller); err != nil {
		return err
	}
	saved, err := e.SavedEther()
	if err != nil {
		return err
	}
	if saved.Sign() == 0 {
		return ErrNothingSaved
	}
	owner, err := e.Owner()
	if err != nil {
		return err
	}
	if err := e.state.Transfer(state.TokenETH, Address[:], owner[:], saved); err != nil {
		return err
	}
	e.emit(events.PlatformSavedEtherSent{To: owner, Amount: saved})
	return nil
}

// BurnXXX swaps the saved ether for reward tokens and burns them.
func (e *Engine) BurnXXX(caller [20]byte) error {
	if err := e.requireGovernor(caller); err != nil {
		return err
	}
	if e.pool == nil {
		return ErrNoLiquidityPool
	}
	saved, err := e.SavedEther()
	if err != nil {
		return err
	}
	if saved.Sign() == 0 {
		return ErrNothingSaved
	}
	received, err := e.pool.SwapETHForXXX(Address, saved)
	if err != nil {
		return err
	}
	if err := e.state.Burn(state.TokenXXX, Address[:], received); err != nil {
		return err
	}
	e.emit(events.PlatformXXXBurned{EtherIn: saved, Burned: received})
	return nil
}
