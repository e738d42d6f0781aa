package main

import (
	"context"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/0xPolygonHermez/zkevm-swap-service/coinmiddleware"
	"github.com/0xPolygonHermez/zkevm-swap-service/config"
	"github.com/0xPolygonHermez/zkevm-swap-service/db"
	"github.com/0xPolygonHermez/zkevm-swap-service/etherman"
	"github.com/0xPolygonHermez/zkevm-swap-service/events"
	"github.com/0xPolygonHermez/zkevm-swap-service/finality"
	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/0xPolygonHermez/zkevm-swap-service/localcache"
	"github.com/0xPolygonHermez/zkevm-swap-service/log"
	"github.com/0xPolygonHermez/zkevm-swap-service/messagepush"
	"github.com/0xPolygonHermez/zkevm-swap-service/metrics"
	"github.com/0xPolygonHermez/zkevm-swap-service/pushtask"
	"github.com/0xPolygonHermez/zkevm-swap-service/redisstorage"
	"github.com/0xPolygonHermez/zkevm-swap-service/resolver"
	"github.com/0xPolygonHermez/zkevm-swap-service/safetydeposit"
	"github.com/0xPolygonHermez/zkevm-swap-service/security"
	"github.com/0xPolygonHermez/zkevm-swap-service/server"
	"github.com/0xPolygonHermez/zkevm-swap-service/swapctrl"
	"github.com/0xPolygonHermez/zkevm-swap-service/vault"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

type chainClient interface {
	ChainID() uint64
	BlockNumber(ctx context.Context) (uint64, error)
	SubmitTransfer(ctx context.Context, from, to common.Address, amount *big.Int) (common.Hash, error)
}

func runAPI(ctx *cli.Context) error {
	return startServer(ctx, withAPI())
}

func runTask(ctx *cli.Context) error {
	return startServer(ctx, withTasks())
}

func runAll(ctx *cli.Context) error {
	return startServer(ctx, withAPI(), withTasks())
}

type runOption struct {
	runAPI   bool
	runTasks bool
}

type runOptionFunc func(opt *runOption)

func withAPI() runOptionFunc {
	return func(opt *runOption) {
		opt.runAPI = true
	}
}

func withTasks() runOptionFunc {
	return func(opt *runOption) {
		opt.runTasks = true
	}
}

func startServer(cliCtx *cli.Context, opts ...runOptionFunc) error {
	opt := &runOption{}
	for _, f := range opts {
		f(opt)
	}

	c, err := initCommon(cliCtx)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cliCtx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = db.RunMigrations(c.Database)
	if err != nil {
		log.Error(err)
		return err
	}
	storage, err := db.NewStorage(c.Database)
	if err != nil {
		log.Error(err)
		return err
	}

	var (
		guardStore   security.Store
		redisStorage *redisstorage.RedisStorage
	)
	if len(c.Redis.Addrs) > 0 {
		redisStorage, err = redisstorage.NewRedisStorage(c.Redis)
		if err != nil {
			log.Error(err)
			return err
		}
		defer func() {
			if err := redisStorage.Close(); err != nil {
				log.Errorf("close redis error: %v", err)
			}
		}()
		guardStore = redisStorage
	} else {
		log.Warn("no redis address configured, guard state is kept in process")
		guardStore = security.NewMemoryStore(nil)
	}

	var publisher events.Publisher = events.Nop{}
	if c.MessagePush.Enabled {
		log.Infof("message push producer's switch is open, so init producer!")
		producer, err := messagepush.NewKafkaProducer(c.MessagePush)
		if err != nil {
			log.Error(err)
			return err
		}
		defer func() {
			if err := producer.Close(); err != nil {
				log.Errorf("close kafka producer error: %v", err)
			}
		}()
		publisher = producer
	}

	// Start metrics
	if c.Metrics.Enabled {
		go metrics.StartMetricsHttpServer(ctx, c.Metrics)
	}

	guard, err := security.NewGuard(ctx, c.Security, guardStore)
	if err != nil {
		log.Error(err)
		return err
	}
	clients, err := newChainClients(c.Etherman())
	if err != nil {
		log.Error(err)
		return err
	}
	var (
		chains  []*swapctrl.Chain
		ledgers []*vault.Ledger
		readers = make(map[uint64]finality.ChainReader, len(clients))
		heights = make(map[uint64]pushtask.ChainReader, len(clients))
	)
	for i, cl := range clients {
		ledger := vault.NewLedger(cl.ChainID(), c.Etherman().Chains[i].Custody, storage, cl, guard, publisher, nil)
		ledgers = append(ledgers, ledger)
		chains = append(chains, &swapctrl.Chain{Ledger: ledger, Submitter: cl, Reader: cl})
		readers[cl.ChainID()] = cl
		heights[cl.ChainID()] = cl
	}
	fin, err := finality.NewManager(c.Finality, readers, guard, nil)
	if err != nil {
		log.Error(err)
		return err
	}
	deposits, err := safetydeposit.NewManager(c.SafetyDeposit)
	if err != nil {
		log.Error(err)
		return err
	}
	registry, err := resolver.NewRegistry(c.Resolver, storage, nil)
	if err != nil {
		log.Error(err)
		return err
	}
	coordinator, err := swapctrl.NewCoordinator(c.Coordinator, chains, storage, guard, registry, deposits, fin, publisher, nil)
	if err != nil {
		log.Error(err)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if redisStorage != nil {
		priceCache, err := localcache.NewPriceCache(ctx, redisStorage, c.CoinKafkaConsumer.CacheRefreshInterval.Duration)
		if err != nil {
			log.Error(err)
			return err
		}
		coordinator.WithRateSource(priceCache)
		g.Go(func() error {
			priceCache.Refresh(gctx)
			return nil
		})
	}
	if c.CoinKafkaConsumer.Enabled {
		if redisStorage == nil {
			return errors.Wrap(gerror.ErrInvalidConfig, "the coin price consumer needs redis")
		}
		log.Infof("coin price consumer's switch is open, so init consumer!")
		consumer, err := coinmiddleware.NewKafkaConsumer(c.CoinKafkaConsumer, redisStorage)
		if err != nil {
			log.Error(err)
			return err
		}
		defer func() {
			if err := consumer.Close(); err != nil {
				log.Errorf("close kafka consumer error: %v", err)
			}
		}()
		g.Go(func() error {
			consumer.Start(gctx)
			return nil
		})
	}
	if opt.runAPI {
		vaults := make([]server.VaultReader, 0, len(ledgers))
		for _, l := range ledgers {
			vaults = append(vaults, l)
		}
		swapService := server.NewSwapService(c.SwapServer, coordinator, vaults, guard, registry)
		g.Go(func() error {
			return server.RunServer(gctx, c.SwapServer, swapService)
		})
	}
	if opt.runTasks {
		blockNumTask := pushtask.NewBlockNumTask(heights, guardStore, 0)
		refundTask := pushtask.NewRefundTask(coordinator, guardStore, nil, 0)
		g.Go(func() error {
			blockNumTask.Start(gctx)
			return nil
		})
		g.Go(func() error {
			refundTask.Start(gctx)
			return nil
		})
	}

	err = g.Wait()
	if err != nil {
		log.Error(err)
	}
	log.Info("swap service stopped")
	return err
}

func initCommon(ctx *cli.Context) (*config.Config, error) {
	configFilePath := ctx.String(flagCfg)
	network := ctx.String(flagNetwork)

	c, err := config.Load(configFilePath, network)
	if err != nil {
		return nil, err
	}
	setupLog(c.Log)
	return c, nil
}

func setupLog(c log.Config) {
	log.Init(c)
}

func newChainClients(c etherman.Config) ([]chainClient, error) {
	if len(c.Chains) < 2 { //nolint:gomnd
		return nil, errors.Wrap(gerror.ErrInvalidConfig, "at least two chains are needed to swap")
	}
	clients := make([]chainClient, 0, len(c.Chains))
	for _, chainCfg := range c.Chains {
		if chainCfg.Custody == (common.Address{}) {
			return nil, errors.Wrapf(gerror.ErrInvalidConfig, "chain %d has no custody account", chainCfg.ChainID)
		}
		if chainCfg.Simulated {
			log.Warnf("chain %d is simulated in process", chainCfg.ChainID)
			sc, err := etherman.NewSimulatedChainFromConfig(chainCfg)
			if err != nil {
				return nil, err
			}
			clients = append(clients, sc)
			continue
		}
		client, err := etherman.NewClient(chainCfg)
		if err != nil {
			return nil, errors.Wrapf(err, "chain %d", chainCfg.ChainID)
		}
		clients = append(clients, client)
	}
	return clients, nil
}
