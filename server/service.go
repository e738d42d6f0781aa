package server

import (
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"strconv"

	"github.com/0xPolygonHermez/zkevm-swap-service/finality"
	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/0xPolygonHermez/zkevm-swap-service/log"
	"github.com/0xPolygonHermez/zkevm-swap-service/resolver"
	"github.com/0xPolygonHermez/zkevm-swap-service/swapctrl"
	"github.com/0xPolygonHermez/zkevm-swap-service/utils"
	"github.com/0xPolygonHermez/zkevm-swap-service/vault"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
)

const (
	defaultErrorCode   = 1
	defaultSuccessCode = 0

	defaultPageLimit = 25
	maxPageLimit     = 100
	defaultCacheSize = 1024
	maxBodyBytes     = 1 << 20
)

type swapService struct {
	coordinator      coordinator
	vaults           map[uint64]VaultReader
	guard            guardInterface
	registry         registryInterface
	defaultPageLimit uint32
	maxPageLimit     uint32
	// orders whose outcome is final never change again
	settled *lru.Cache[string, *OrderResponse]
}

// NewSwapService creates the handlers of the HTTP API. registry may be nil
func NewSwapService(cfg Config, c coordinator, vaults []VaultReader, guard guardInterface, registry registryInterface) *swapService {
	if cfg.DefaultPageLimit == 0 {
		cfg.DefaultPageLimit = defaultPageLimit
	}
	if cfg.MaxPageLimit == 0 {
		cfg.MaxPageLimit = maxPageLimit
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, *OrderResponse](cfg.CacheSize)
	if err != nil {
		panic(err)
	}
	byChain := make(map[uint64]VaultReader, len(vaults))
	for _, v := range vaults {
		byChain[v.ChainID()] = v
	}
	return &swapService{
		coordinator:      c,
		vaults:           byChain,
		guard:            guard,
		registry:         registry,
		defaultPageLimit: cfg.DefaultPageLimit,
		maxPageLimit:     cfg.MaxPageLimit,
		settled:          cache,
	}
}

// routes binds every handler to its path
func (s *swapService) routes(r *httprouter.Router) {
	r.GET("/healthz", s.health)

	r.POST("/orders", s.instrument("CreateOrder", s.createOrder))
	r.GET("/orders", s.instrument("ListOrders", s.listOrders))
	r.GET("/orders/:id", s.instrument("GetOrder", s.getOrder))
	r.GET("/orders/:id/rate", s.instrument("CurrentRate", s.currentRate))
	r.POST("/orders/:id/fill", s.instrument("FillOrder", s.fillOrder))
	r.POST("/orders/:id/fulfill", s.instrument("FulfillOrder", s.fulfillOrder))
	r.POST("/orders/:id/finish", s.instrument("FinishOrder", s.finishOrder))
	r.POST("/orders/:id/cancel", s.instrument("CancelOrder", s.cancelOrder))
	r.POST("/orders/:id/refund", s.instrument("RefundOrder", s.refundOrder))
	r.POST("/orders/:id/secret", s.instrument("ReleaseSecret", s.releaseSecret))
	r.POST("/orders/:id/bids", s.instrument("SubmitBid", s.submitBid))
	r.GET("/orders/:id/bids/best", s.instrument("BestBid", s.bestBid))

	r.GET("/chains/:chain/vaults", s.instrument("ListVaults", s.listVaults))
	r.GET("/chains/:chain/vaults/:id", s.instrument("GetVault", s.getVault))

	r.GET("/resolvers", s.instrument("ListResolvers", s.listResolvers))
	r.GET("/resolvers/:address", s.instrument("GetResolver", s.getResolver))
	r.POST("/resolvers", s.instrument("RegisterResolver", s.registerResolver))
	r.DELETE("/resolvers/:address", s.instrument("RemoveResolver", s.removeResolver))

	r.GET("/admin/pause", s.instrument("PauseStatus", s.pauseStatus))
	r.POST("/admin/pause", s.instrument("EmergencyPause", s.pause))
	r.POST("/admin/resume", s.instrument("EmergencyResume", s.resume))
}

func (s *swapService) health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, Response{Code: defaultSuccessCode, Msg: "SERVING"})
}

func (s *swapService) createOrder(r *http.Request, _ httprouter.Params) (interface{}, error) {
	var req CreateOrderRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	sourceAmount, err := parseAmount(req.SourceAmount)
	if err != nil {
		return nil, err
	}
	destAmount, err := parseAmount(req.DestinationAmount)
	if err != nil {
		return nil, err
	}
	trade := swapctrl.CreateTradeRequest{
		Maker:             req.Maker,
		SourceChain:       req.SourceChain,
		DestinationChain:  req.DestinationChain,
		SourceAmount:      sourceAmount,
		DestinationAmount: destAmount,
		MarketRate:        req.MarketRate,
		Commitment:        req.Commitment,
		DestinationRef:    req.DestinationRef,
	}
	if req.Auction != nil {
		a := req.Auction.toAuction()
		trade.Auction = &a
	}
	if req.Expiration != nil {
		trade.Expiration = *req.Expiration
	}
	o, err := s.coordinator.CreateTrade(r.Context(), trade)
	if err != nil {
		return nil, err
	}
	return s.orderResponse(o), nil
}

func (s *swapService) listOrders(r *http.Request, _ httprouter.Params) (interface{}, error) {
	limit, offset, err := s.page(r)
	if err != nil {
		return nil, err
	}
	orders, err := s.coordinator.ListOrders(r.Context(), swapctrl.Status(r.URL.Query().Get("status")), limit, offset)
	if err != nil {
		return nil, err
	}
	res := make([]*OrderResponse, 0, len(orders))
	for _, o := range orders {
		res = append(res, newOrderResponse(o))
	}
	return res, nil
}

func (s *swapService) getOrder(r *http.Request, ps httprouter.Params) (interface{}, error) {
	id := ps.ByName("id")
	if res, ok := s.settled.Get(id); ok {
		return res, nil
	}
	o, err := s.coordinator.GetOrder(r.Context(), id)
	if err != nil {
		return nil, err
	}
	return s.orderResponse(o), nil
}

func (s *swapService) currentRate(r *http.Request, ps httprouter.Params) (interface{}, error) {
	rate, status, err := s.coordinator.CurrentRate(r.Context(), ps.ByName("id"))
	if err != nil {
		return nil, err
	}
	return &RateResponse{OrderID: ps.ByName("id"), Rate: rate, Status: string(status)}, nil
}

func (s *swapService) fillOrder(r *http.Request, ps httprouter.Params) (interface{}, error) {
	var req FillOrderRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	o, err := s.coordinator.Fill(r.Context(), swapctrl.FillRequest{OrderID: ps.ByName("id"), Resolver: req.Resolver, Cost: req.Cost})
	if err != nil {
		return nil, err
	}
	return s.orderResponse(o), nil
}

func (s *swapService) fulfillOrder(r *http.Request, ps httprouter.Params) (interface{}, error) {
	var req SecretRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	o, err := s.coordinator.Fulfill(r.Context(), ps.ByName("id"), req.Secret)
	if err != nil {
		return nil, err
	}
	return s.orderResponse(o), nil
}

func (s *swapService) finishOrder(r *http.Request, ps httprouter.Params) (interface{}, error) {
	var req SecretRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	o, err := s.coordinator.Finish(r.Context(), ps.ByName("id"), req.Secret)
	if err != nil {
		return nil, err
	}
	return s.orderResponse(o), nil
}

func (s *swapService) cancelOrder(r *http.Request, ps httprouter.Params) (interface{}, error) {
	var req CallerRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	o, err := s.coordinator.Cancel(r.Context(), req.Caller, ps.ByName("id"))
	if err != nil {
		return nil, err
	}
	return s.orderResponse(o), nil
}

func (s *swapService) refundOrder(r *http.Request, ps httprouter.Params) (interface{}, error) {
	o, err := s.coordinator.Refund(r.Context(), ps.ByName("id"))
	if err != nil {
		return nil, err
	}
	return s.orderResponse(o), nil
}

// releaseSecret blocks until both vaults of the order are final
func (s *swapService) releaseSecret(r *http.Request, ps httprouter.Params) (interface{}, error) {
	var req ReleaseSecretRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	id := ps.ByName("id")
	progress := func(p finality.Progress) {
		log.WithFields(utils.TraceID, r.Context().Value(utils.CtxTraceID), "orderID", id).
			Debugf("finality of chain %d: block %d at %d, %d blocks remaining", p.ChainID, p.TargetBlock, p.CurrentBlock, p.Remaining)
	}
	released, err := s.coordinator.ReleaseSecret(r.Context(), id, req.Resolver, progress)
	if err != nil {
		return nil, err
	}
	return &ReleasedSecretResponse{
		OrderID:    released.OrderID,
		Secret:     released.Secret,
		Resolver:   released.Resolver,
		ReleasedAt: released.ReleasedAt,
		Index:      released.Index,
		Proof:      released.Proof,
		MerkleRoot: released.MerkleRoot,
	}, nil
}

func (s *swapService) submitBid(r *http.Request, ps httprouter.Params) (interface{}, error) {
	if s.registry == nil {
		return nil, errors.Wrap(gerror.ErrStorageNotRegister, "resolver registry")
	}
	var req BidRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	bid, err := s.registry.SubmitBid(r.Context(), ps.ByName("id"), req.Resolver, amount)
	if err != nil {
		return nil, err
	}
	return newBidResponse(bid), nil
}

func (s *swapService) bestBid(r *http.Request, ps httprouter.Params) (interface{}, error) {
	if s.registry == nil {
		return nil, errors.Wrap(gerror.ErrStorageNotRegister, "resolver registry")
	}
	bid, err := s.registry.BestBid(r.Context(), ps.ByName("id"))
	if err != nil {
		return nil, err
	}
	return newBidResponse(bid), nil
}

func (s *swapService) listVaults(r *http.Request, ps httprouter.Params) (interface{}, error) {
	v, err := s.vaultReader(ps)
	if err != nil {
		return nil, err
	}
	limit, offset, err := s.page(r)
	if err != nil {
		return nil, err
	}
	vaults, err := v.ListVaults(r.Context(), vault.State(r.URL.Query().Get("state")), limit, offset)
	if err != nil {
		return nil, err
	}
	res := make([]*VaultResponse, 0, len(vaults))
	for _, vt := range vaults {
		res = append(res, newVaultResponse(vt))
	}
	return res, nil
}

func (s *swapService) getVault(r *http.Request, ps httprouter.Params) (interface{}, error) {
	v, err := s.vaultReader(ps)
	if err != nil {
		return nil, err
	}
	id := ps.ByName("id")
	if !isHash(id) {
		return nil, errors.Wrapf(gerror.ErrInvalidRequest, "vault id %q", id)
	}
	vt, err := v.GetVault(r.Context(), common.HexToHash(id))
	if err != nil {
		return nil, err
	}
	return newVaultResponse(vt), nil
}

func (s *swapService) listResolvers(r *http.Request, _ httprouter.Params) (interface{}, error) {
	if s.registry == nil {
		return []*ResolverResponse{}, nil
	}
	active, err := s.registry.Active(r.Context())
	if err != nil {
		return nil, err
	}
	res := make([]*ResolverResponse, 0, len(active))
	for _, v := range active {
		res = append(res, newResolverResponse(v))
	}
	return res, nil
}

func (s *swapService) getResolver(r *http.Request, ps httprouter.Params) (interface{}, error) {
	if s.registry == nil {
		return nil, errors.Wrap(gerror.ErrStorageNotRegister, "resolver registry")
	}
	addr, err := parseAddress(ps.ByName("address"))
	if err != nil {
		return nil, err
	}
	v, err := s.registry.Get(r.Context(), addr)
	if err != nil {
		return nil, err
	}
	return newResolverResponse(v), nil
}

// registerResolver whitelists a resolver on the guard and stakes it on the registry
func (s *swapService) registerResolver(r *http.Request, _ httprouter.Params) (interface{}, error) {
	var req RegisterResolverRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	if err := s.guard.AddResolver(r.Context(), req.Caller, req.Address); err != nil {
		return nil, err
	}
	if s.registry == nil {
		return &ResolverResponse{Address: req.Address, StakedAmount: "0", IsActive: true}, nil
	}
	stake, err := parseAmount(req.Stake)
	if err == nil {
		var v *resolver.ValidatorInfo
		if v, err = s.registry.Register(r.Context(), req.Address, stake); err == nil {
			return newResolverResponse(v), nil
		}
	}
	if rerr := s.guard.RemoveResolver(r.Context(), req.Caller, req.Address); rerr != nil {
		log.Errorf("failed to remove resolver %s after failed registration: %v", req.Address.Hex(), rerr)
	}
	return nil, err
}

func (s *swapService) removeResolver(r *http.Request, ps httprouter.Params) (interface{}, error) {
	addr, err := parseAddress(ps.ByName("address"))
	if err != nil {
		return nil, err
	}
	caller, err := parseAddress(r.URL.Query().Get("caller"))
	if err != nil {
		return nil, err
	}
	if err := s.guard.RemoveResolver(r.Context(), caller, addr); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *swapService) pauseStatus(r *http.Request, _ httprouter.Params) (interface{}, error) {
	paused, err := s.guard.IsPaused(r.Context())
	if err != nil {
		return nil, err
	}
	return &PauseResponse{Paused: paused}, nil
}

func (s *swapService) pause(r *http.Request, _ httprouter.Params) (interface{}, error) {
	var req CallerRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	if err := s.guard.EmergencyPause(r.Context(), req.Caller); err != nil {
		return nil, err
	}
	return &PauseResponse{Paused: true}, nil
}

func (s *swapService) resume(r *http.Request, _ httprouter.Params) (interface{}, error) {
	var req CallerRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	if err := s.guard.EmergencyResume(r.Context(), req.Caller); err != nil {
		return nil, err
	}
	return &PauseResponse{Paused: false}, nil
}

func (s *swapService) orderResponse(o *swapctrl.Order) *OrderResponse {
	res := newOrderResponse(o)
	if o.Outcome != swapctrl.OutcomeNone && o.Outcome != "" {
		s.settled.Add(o.ID, res)
	}
	return res
}

func (s *swapService) vaultReader(ps httprouter.Params) (VaultReader, error) {
	chainID, err := strconv.ParseUint(ps.ByName("chain"), 10, 64)
	if err != nil {
		return nil, errors.Wrapf(gerror.ErrInvalidRequest, "chain %q", ps.ByName("chain"))
	}
	v, ok := s.vaults[chainID]
	if !ok {
		return nil, errors.Wrapf(gerror.ErrUnknownChain, "chain %d", chainID)
	}
	return v, nil
}

func (s *swapService) page(r *http.Request) (limit, offset uint, err error) {
	q := r.URL.Query()
	l := uint64(s.defaultPageLimit)
	if v := q.Get("limit"); v != "" {
		if l, err = strconv.ParseUint(v, 10, 32); err != nil {
			return 0, 0, errors.Wrapf(gerror.ErrInvalidRequest, "limit %q", v)
		}
		if l == 0 {
			l = uint64(s.defaultPageLimit)
		}
	}
	if l > uint64(s.maxPageLimit) {
		l = uint64(s.maxPageLimit)
	}
	var o uint64
	if v := q.Get("offset"); v != "" {
		if o, err = strconv.ParseUint(v, 10, 32); err != nil {
			return 0, 0, errors.Wrapf(gerror.ErrInvalidRequest, "offset %q", v)
		}
	}
	return uint(l), uint(o), nil
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(gerror.ErrInvalidRequest, err.Error())
	}
	return nil
}

func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	a, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.Wrapf(gerror.ErrInvalidRequest, "amount %q", s)
	}
	return a, nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.Wrapf(gerror.ErrInvalidRequest, "address %q", s)
	}
	return common.HexToAddress(s), nil
}

func isHash(s string) bool {
	b, err := hexutil.Decode(s)
	return err == nil && len(b) == common.HashLength
}

// statusOf maps the failure taxonomy onto HTTP status codes
func statusOf(err error) int {
	switch gerror.KindOf(err) {
	case gerror.KindValidation:
		return http.StatusBadRequest
	case gerror.KindAuthorization:
		return http.StatusForbidden
	case gerror.KindNotFound:
		return http.StatusNotFound
	case gerror.KindTemporal, gerror.KindResource:
		return http.StatusConflict
	case gerror.KindCryptographic:
		return http.StatusUnprocessableEntity
	case gerror.KindSecurity:
		return http.StatusLocked
	default:
		if errors.Is(err, gerror.ErrStorageNotRegister) {
			return http.StatusNotImplemented
		}
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, res Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		log.Warnf("failed to write response: %v", err)
	}
}
