// Package chainclient implements the Chain Client (C1): typed access to one
// JSON-RPC endpoint for both source and destination chains — head height,
// range-capped log queries, signed submission, and receipt polling.
package chainclient

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Client wraps one ethclient connection with the operations the relayer
// needs on either side of the bridge.
type Client struct {
	eth *ethclient.Client
	url string
}

// Dial connects to a JSON-RPC endpoint.
func Dial(url string) (*Client, error) {
	eth, err := ethclient.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("chainclient: dial %s: %w", url, err)
	}
	return &Client{eth: eth, url: url}, nil
}

// NetworkID reads the chain's network identifier, used at startup to verify
// the relayer is pointed at the expected endpoint (§4.7).
func (c *Client) NetworkID(ctx context.Context) (*big.Int, error) {
	id, err := c.eth.NetworkID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chainclient: network id: %w", err)
	}
	return id, nil
}

// CurrentHead returns the chain's current tip height.
func (c *Client) CurrentHead(ctx context.Context) (uint64, error) {
	head, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("chainclient: current head: %w", err)
	}
	return head, nil
}

// BalanceAt returns the ETH-equivalent gas balance of an address, used at
// startup to warn about an underfunded destination signer (§7).
func (c *Client) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	bal, err := c.eth.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("chainclient: balance at %s: %w", addr.Hex(), err)
	}
	return bal, nil
}

// providerRangeCapSubstrings match the free-text errors providers return
// when a log query spans too many blocks. The implementation must shrink
// the window and retry rather than silently drop results (§4.1).
var providerRangeCapSubstrings = []string{
	"query returned more than",
	"block range",
	"range limit",
	"exceeds the range",
	"limit exceeded",
}

// QueryLogs fetches logs for one topic0 over an inclusive block range,
// shrinking the window and retrying if the provider reports the range is
// too large. Returned logs are not reordered — callers sort by
// (block, log index) per §3/§5.
func (c *Client) QueryLogs(ctx context.Context, contract common.Address, topic0 common.Hash, from, to uint64) ([]types.Log, error) {
	return c.queryLogsShrinking(ctx, contract, topic0, from, to, 6)
}

func (c *Client) queryLogsShrinking(ctx context.Context, contract common.Address, topic0 common.Hash, from, to uint64, attemptsLeft int) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{contract},
		Topics:    [][]common.Hash{{topic0}},
	}

	logs, err := c.eth.FilterLogs(ctx, query)
	if err == nil {
		return logs, nil
	}

	if attemptsLeft <= 1 || from >= to || !isProviderRangeCap(err) {
		return nil, fmt.Errorf("chainclient: filter logs [%d,%d]: %w", from, to, err)
	}

	// Shrink the window in half and recurse over the two halves, so the
	// caller still receives the full inclusive-inclusive range (§4.1) in
	// ascending block order rather than a silently truncated slice.
	mid := from + (to-from)/2
	first, err := c.queryLogsShrinking(ctx, contract, topic0, from, mid, attemptsLeft-1)
	if err != nil {
		return nil, err
	}
	second, err := c.queryLogsShrinking(ctx, contract, topic0, mid+1, to, attemptsLeft-1)
	if err != nil {
		return nil, err
	}
	return append(first, second...), nil
}

func isProviderRangeCap(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, s := range providerRangeCapSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// SubmitSignedCall builds, signs, and broadcasts a transaction calling data
// against contract, using key and the provider's suggested gas price raised
// to a 1 Gwei floor. It makes a single broadcast attempt; there is no retry
// and no gas price escalation.
//
// Before broadcasting it preflights the call with eth_call (§4.1's
// PreflightRevert(reason) contract): a call that would revert on-chain is
// rejected here with the provider's revert reason intact, so the caller
// can classify e.g. an already-used sequence as Benign without ever mining
// a transaction whose receipt carries nothing but a bare status byte.
func (c *Client) SubmitSignedCall(ctx context.Context, contract common.Address, data []byte, key *ecdsa.PrivateKey, chainID *big.Int, gasLimit uint64) (*types.Transaction, error) {
	fromAddr, err := deriveAddress(key)
	if err != nil {
		return nil, err
	}

	if _, err := c.eth.CallContract(ctx, ethereum.CallMsg{
		From: fromAddr,
		To:   &contract,
		Data: data,
	}, nil); err != nil {
		return nil, fmt.Errorf("chainclient: preflight revert: %w", err)
	}

	nonce, err := c.eth.PendingNonceAt(ctx, fromAddr)
	if err != nil {
		return nil, fmt.Errorf("chainclient: pending nonce: %w", err)
	}

	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("chainclient: suggest gas price: %w", err)
	}
	minGasPrice := big.NewInt(1e9) // 1 Gwei floor
	if gasPrice.Cmp(minGasPrice) < 0 {
		gasPrice = minGasPrice
	}

	tx := types.NewTransaction(nonce, contract, big.NewInt(0), gasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(chainID), key)
	if err != nil {
		return nil, fmt.Errorf("chainclient: sign transaction: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("chainclient: send transaction: %w", err)
	}
	return signedTx, nil
}

// ReplayRevertReason re-runs a mined, reverted transaction as an eth_call
// at the block it was mined in, to recover the provider's revert reason.
// A mined receipt's status byte alone carries no text, so callers that see
// a failed receipt fall back to this rather than defaulting straight to a
// Fatal classification. Returns nil if the replay itself does not error
// (an inconclusive result — the caller should still treat the receipt
// failure as fatal in that case).
func (c *Client) ReplayRevertReason(ctx context.Context, tx *types.Transaction, fromAddr common.Address, blockNumber *big.Int) error {
	to := tx.To()
	if to == nil {
		return nil
	}
	_, err := c.eth.CallContract(ctx, ethereum.CallMsg{
		From: fromAddr,
		To:   to,
		Data: tx.Data(),
	}, blockNumber)
	return err
}

// AwaitReceipt blocks until tx is mined or timeout elapses.
func (c *Client) AwaitReceipt(ctx context.Context, tx *types.Transaction, timeout time.Duration) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, c.eth, tx)
	if err != nil {
		if waitCtx.Err() != nil {
			return nil, fmt.Errorf("chainclient: await receipt %s: timeout: %w", tx.Hash().Hex(), waitCtx.Err())
		}
		return nil, fmt.Errorf("chainclient: await receipt %s: %w", tx.Hash().Hex(), err)
	}
	return receipt, nil
}

// DeriveAddress returns the public address corresponding to an ECDSA key.
func DeriveAddress(key *ecdsa.PrivateKey) (common.Address, error) {
	return deriveAddress(key)
}

func deriveAddress(key *ecdsa.PrivateKey) (common.Address, error) {
	publicKey, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return common.Address{}, fmt.Errorf("chainclient: public key is not ECDSA")
	}
	return crypto.PubkeyToAddress(*publicKey), nil
}
