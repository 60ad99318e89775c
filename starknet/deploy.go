// Package starknet deploys pre-funded OpenZeppelin and Argent X account
// contracts and exposes the deployments as tools.
package starknet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/0xhijo/mcp-twitter/tools"
)

// Account class hashes declared on Starknet.
const (
	OpenZeppelinClassHash = "0x061dac032f228abef9c6626f995015233097ae253a7f72d68552db02f2971b8f"
	ArgentXClassHash      = "0x1a736d6ed154502257f02b1ccdf4d9d1089f80811cd6acad48e6b6a9d1f2003"
)

// Wallet labels reported on success.
const (
	WalletOpenZeppelin = "Open Zeppelin"
	WalletArgentX      = "Argent X"
)

// DeployRequest describes a DEPLOY_ACCOUNT transaction. Values are hex felts.
type DeployRequest struct {
	PrivateKey          string
	PublicKey           string
	ClassHash           string
	ConstructorCalldata []string
	Salt                string
	// WaitForReceipt blocks Deploy until the transaction is accepted.
	WaitForReceipt bool
}

// DeployResult identifies the submitted deployment.
type DeployResult struct {
	TransactionHash string
	ContractAddress string
}

// Deployer submits account deployments to a Starknet node.
type Deployer interface {
	Deploy(ctx context.Context, req DeployRequest) (DeployResult, error)
}

// DeployOZAccount deploys an OpenZeppelin account owned by publicKey and
// returns the result envelope as a JSON string.
func DeployOZAccount(ctx context.Context, d Deployer, privateKey, publicKey string) string {
	return deployOpenZeppelin(ctx, d, privateKey, publicKey).JSON()
}

// DeployArgentAccount deploys an Argent X account owned by publicKeyAX with
// no guardian and returns the result envelope as a JSON string.
func DeployArgentAccount(ctx context.Context, d Deployer, privateKeyAX, publicKeyAX string) string {
	return deployArgent(ctx, d, privateKeyAX, publicKeyAX).JSON()
}

func deployOpenZeppelin(ctx context.Context, d Deployer, privateKey, publicKey string) tools.Result {
	return deploy(ctx, d, WalletOpenZeppelin, DeployRequest{
		PrivateKey:          privateKey,
		PublicKey:           publicKey,
		ClassHash:           OpenZeppelinClassHash,
		ConstructorCalldata: []string{publicKey},
		Salt:                publicKey,
		WaitForReceipt:      true,
	})
}

func deployArgent(ctx context.Context, d Deployer, privateKey, publicKey string) tools.Result {
	return deploy(ctx, d, WalletArgentX, DeployRequest{
		PrivateKey: privateKey,
		PublicKey:  publicKey,
		ClassHash:  ArgentXClassHash,
		// owner, guardian
		ConstructorCalldata: []string{publicKey, "0x0"},
		Salt:                publicKey,
		WaitForReceipt:      true,
	})
}

func deploy(ctx context.Context, d Deployer, wallet string, req DeployRequest) tools.Result {
	if d == nil {
		return tools.Failure(errors.New("starknet deployer is not configured"))
	}
	if err := checkHexKey("private key", req.PrivateKey); err != nil {
		return tools.Failure(err)
	}
	if err := checkHexKey("public key", req.PublicKey); err != nil {
		return tools.Failure(err)
	}

	res, err := d.Deploy(ctx, req)
	if err != nil {
		slog.Warn("account deployment failed", slog.String("wallet", wallet), slog.Any("error", err))
		return tools.Failure(err)
	}
	slog.Info("account deployed",
		slog.String("wallet", wallet),
		slog.String("contract_address", res.ContractAddress),
		slog.String("tx_hash", res.TransactionHash))
	return tools.Success().
		With("wallet", wallet).
		With("contract_address", res.ContractAddress)
}

// checkHexKey accepts 0x-prefixed hex strings that fit in a felt.
func checkHexKey(name, v string) error {
	hex, ok := strings.CutPrefix(strings.TrimSpace(v), "0x")
	if !ok || hex == "" {
		return fmt.Errorf("invalid %s: expected 0x-prefixed hex", name)
	}
	n, ok := new(big.Int).SetString(hex, 16)
	if !ok {
		return fmt.Errorf("invalid %s: not hex", name)
	}
	if n.BitLen() > 252 {
		return fmt.Errorf("invalid %s: exceeds felt range", name)
	}
	return nil
}
