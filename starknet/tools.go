package starknet

import (
	"context"
	"encoding/json"

	"github.com/0xhijo/mcp-twitter/tools"
)

// Plugin names accepted on the starknet server command line.
const (
	PluginOpenZeppelin = "openzeppelin"
	PluginArgent       = "argent"
)

type deployParams struct {
	PrivateKey string `json:"privateKey" jsonschema:"private key of the pre-funded account"`
	PublicKey  string `json:"publicKey" jsonschema:"public key of the pre-funded account"`
}

var deployAnnotations = tools.Annotations{OpenWorld: true}

// Tools returns the account deployment tools.
func Tools() []tools.Tool[Deployer] {
	return []tools.Tool[Deployer]{
		{
			Name:        "deploy_existing_openzeppelin_account",
			Description: "Deploy an existing Open Zeppelin Account return the privateKey/publicKey/contractAddress",
			Plugin:      PluginOpenZeppelin,
			Schema:      tools.SchemaFor[deployParams](),
			Annotations: deployAnnotations,
			Execute: func(ctx context.Context, d Deployer, raw json.RawMessage) tools.Result {
				p, err := tools.Decode[deployParams](raw)
				if err != nil {
					return tools.Failure(err)
				}
				return deployOpenZeppelin(ctx, d, p.PrivateKey, p.PublicKey)
			},
		},
		{
			Name:        "deploy_existing_argent_account",
			Description: "Deploy an existing Argent Account return the privateKey/publicKey/contractAddress",
			Plugin:      PluginArgent,
			Schema:      tools.SchemaFor[deployParams](),
			Annotations: deployAnnotations,
			Execute: func(ctx context.Context, d Deployer, raw json.RawMessage) tools.Result {
				p, err := tools.Decode[deployParams](raw)
				if err != nil {
					return tools.Failure(err)
				}
				return deployArgent(ctx, d, p.PrivateKey, p.PublicKey)
			},
		},
	}
}

// NewRegistry returns the tools allowed by name or plugin. Tools without a
// params schema are not served.
func NewRegistry(allowed []string) (*tools.Registry[Deployer], error) {
	all := tools.NewRegistry[Deployer]()
	if err := all.Register(Tools()...); err != nil {
		return nil, err
	}
	servable := tools.NewRegistry[Deployer]()
	for _, t := range all.Filter(allowed).Tools() {
		if t.Schema == nil {
			continue
		}
		if err := servable.Register(t); err != nil {
			return nil, err
		}
	}
	return servable, nil
}
