package starknet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/NethermindEth/starknet.go/account"
	"github.com/NethermindEth/starknet.go/rpc"
	"github.com/NethermindEth/starknet.go/utils"
)

const (
	// DefaultFeeMultiplier scales the node's fee estimate into the resource
	// bounds of the DEPLOY_ACCOUNT v3 transaction.
	DefaultFeeMultiplier = 1.5
	// DefaultReceiptPollInterval is how often the receipt is polled.
	DefaultReceiptPollInterval = 3 * time.Second

	cairoVersion = 2
)

// RPCConfig configures an RPCDeployer.
type RPCConfig struct {
	URL                 string
	FeeMultiplier       float64
	ReceiptPollInterval time.Duration
}

// RPCDeployer deploys accounts through a Starknet JSON-RPC node.
type RPCDeployer struct {
	provider      *rpc.Provider
	feeMultiplier float64
	pollInterval  time.Duration
}

var _ Deployer = (*RPCDeployer)(nil)

// NewRPCDeployer prepares a client for the node at cfg.URL. No request is
// made until the first deploy.
func NewRPCDeployer(cfg RPCConfig) (*RPCDeployer, error) {
	if cfg.URL == "" {
		return nil, errors.New("starknet: rpc url is required")
	}
	provider, err := rpc.NewProvider(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("starknet: connect %s: %w", cfg.URL, err)
	}
	if cfg.FeeMultiplier <= 0 {
		cfg.FeeMultiplier = DefaultFeeMultiplier
	}
	if cfg.ReceiptPollInterval <= 0 {
		cfg.ReceiptPollInterval = DefaultReceiptPollInterval
	}
	return &RPCDeployer{
		provider:      provider,
		feeMultiplier: cfg.FeeMultiplier,
		pollInterval:  cfg.ReceiptPollInterval,
	}, nil
}

// Deploy estimates, signs and broadcasts a DEPLOY_ACCOUNT transaction for
// the account at the address precomputed from salt, class hash and calldata.
func (d *RPCDeployer) Deploy(ctx context.Context, req DeployRequest) (DeployResult, error) {
	pub, err := utils.HexToFelt(req.PublicKey)
	if err != nil {
		return DeployResult{}, fmt.Errorf("public key: %w", err)
	}
	priv, ok := new(big.Int).SetString(strings.TrimPrefix(req.PrivateKey, "0x"), 16)
	if !ok {
		return DeployResult{}, errors.New("private key: not hex")
	}
	classHash, err := utils.HexToFelt(req.ClassHash)
	if err != nil {
		return DeployResult{}, fmt.Errorf("class hash: %w", err)
	}
	salt, err := utils.HexToFelt(req.Salt)
	if err != nil {
		return DeployResult{}, fmt.Errorf("salt: %w", err)
	}
	calldata := make([]*felt.Felt, 0, len(req.ConstructorCalldata))
	for i, v := range req.ConstructorCalldata {
		f, err := utils.HexToFelt(v)
		if err != nil {
			return DeployResult{}, fmt.Errorf("calldata[%d]: %w", i, err)
		}
		calldata = append(calldata, f)
	}

	address := account.PrecomputeAccountAddress(salt, classHash, calldata)

	ks := account.NewMemKeystore()
	ks.Put(pub.String(), priv)
	acc, err := account.NewAccount(d.provider, address, pub.String(), ks, cairoVersion)
	if err != nil {
		return DeployResult{}, fmt.Errorf("starknet: account: %w", err)
	}

	tx, _, err := acc.BuildAndEstimateDeployAccountTxn(ctx, salt, classHash, calldata, d.feeMultiplier)
	if err != nil {
		return DeployResult{}, fmt.Errorf("starknet: estimate: %w", err)
	}

	resp, err := acc.SendTransaction(ctx, tx)
	if err != nil {
		return DeployResult{}, fmt.Errorf("starknet: broadcast: %w", err)
	}

	res := DeployResult{
		TransactionHash: resp.TransactionHash.String(),
		ContractAddress: address.String(),
	}
	if resp.ContractAddress != nil {
		res.ContractAddress = resp.ContractAddress.String()
	}

	if req.WaitForReceipt {
		receipt, err := acc.WaitForTransactionReceipt(ctx, resp.TransactionHash, d.pollInterval)
		if err != nil {
			return res, fmt.Errorf("starknet: wait for %s: %w", res.TransactionHash, err)
		}
		if receipt.ExecutionStatus == rpc.TxnExecutionStatusREVERTED {
			return res, fmt.Errorf("starknet: %s reverted: %s", res.TransactionHash, receipt.RevertReason)
		}
	}
	return res, nil
}
