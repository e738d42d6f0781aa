package etherman

import (
	"context"
	"math/big"

	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/0xPolygonHermez/zkevm-swap-service/log"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
)

const transferGas = 21000

type ethClienter interface {
	ethereum.ChainStateReader
	ethereum.TransactionSender
	ethereum.GasPricer
	ethereum.PendingStateReader
	BlockNumber(ctx context.Context) (uint64, error)
}

// Client talks to one EVM node. It reads heights and submits native transfers
// signed with the keys of its keystore.
type Client struct {
	chainID   uint64
	ethClient ethClienter
	ks        *keystore.KeyStore
	password  string
	gasLimit  uint64
}

// NewClient dials the node of cfg and opens its keystore
func NewClient(cfg ChainConfig) (*Client, error) {
	ethClient, err := ethclient.Dial(cfg.URL)
	if err != nil {
		log.Errorf("error connecting to %s: %+v", cfg.URL, err)
		return nil, err
	}
	remoteID, err := ethClient.ChainID(context.Background())
	if err != nil {
		return nil, errors.Wrap(err, "read chain id")
	}
	if remoteID.Uint64() != cfg.ChainID {
		return nil, errors.Wrapf(gerror.ErrUnknownChain, "node %s serves chain %d, configured %d", cfg.URL, remoteID, cfg.ChainID)
	}
	var ks *keystore.KeyStore
	if cfg.KeystoreDir != "" {
		ks = keystore.NewKeyStore(cfg.KeystoreDir, keystore.StandardScryptN, keystore.StandardScryptP)
	}
	return newClient(cfg, ethClient, ks), nil
}

func newClient(cfg ChainConfig, ethClient ethClienter, ks *keystore.KeyStore) *Client {
	gasLimit := cfg.GasLimit
	if gasLimit == 0 {
		gasLimit = transferGas
	}
	return &Client{
		chainID:   cfg.ChainID,
		ethClient: ethClient,
		ks:        ks,
		password:  cfg.KeystorePassword,
		gasLimit:  gasLimit,
	}
}

// ChainID of the node
func (c *Client) ChainID() uint64 {
	return c.chainID
}

// BlockNumber returns the latest block height
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.ethClient.BlockNumber(ctx)
}

// Balance returns the latest balance of account
func (c *Client) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	return c.ethClient.BalanceAt(ctx, account, nil)
}

// SubmitTransfer sends amount from from to to. from must be in the keystore
func (c *Client) SubmitTransfer(ctx context.Context, from, to common.Address, amount *big.Int) (common.Hash, error) {
	if c.ks == nil {
		return common.Hash{}, errors.Wrapf(gerror.ErrUnauthorized, "no keystore to sign for %s", from.Hex())
	}
	account, err := c.ks.Find(accounts.Account{Address: from})
	if err != nil {
		return common.Hash{}, errors.Wrapf(gerror.ErrUnauthorized, "no key for %s", from.Hex())
	}
	nonce, err := c.ethClient.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "read nonce")
	}
	gasPrice, err := c.ethClient.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "suggest gas price")
	}
	tx := types.NewTransaction(nonce, to, amount, c.gasLimit, gasPrice, nil)
	signed, err := c.ks.SignTxWithPassphrase(account, c.password, tx, new(big.Int).SetUint64(c.chainID))
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "sign transfer")
	}
	if err := c.ethClient.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, errors.Wrap(err, "send transfer")
	}
	log.Debugf("chain %d: transfer %s from %s to %s sent in tx %s", c.chainID, amount, from.Hex(), to.Hex(), signed.Hash().Hex())
	return signed.Hash(), nil
}
