// Package proposalfile reads proposals written as YAML documents:
//
//	description: |
//	  # Raise quorum
//	calls:
//	  - target: governor
//	    signature: setGovernorSettings(uint256,uint256,uint256,uint256)
//	    args: ["1", "259200", "100", "10"]
//	  - target: "0x5FbDB2315678afecb367f032d93F642f64180aa3"
//	    value: "1000"
//	    data: "0x"
package proposalfile

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	"github.com/trebuchet-org/govlock/internal/adapters/abi"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/config"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// Document is the on-disk proposal
type Document struct {
	Description string `yaml:"description"`
	Calls       []Call `yaml:"calls"`
}

// Call is one proposal action. Exactly one of Signature or Data is set.
type Call struct {
	Target    string   `yaml:"target"`
	Value     string   `yaml:"value,omitempty"`
	Signature string   `yaml:"signature,omitempty"`
	Args      []string `yaml:"args,omitempty"`
	Data      string   `yaml:"data,omitempty"`
}

// Load reads and resolves the proposal at path
func Load(path string, project *config.ProjectConfig) (usecase.ProposeParams, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return usecase.ProposeParams{}, fmt.Errorf("failed to read proposal file: %w", err)
	}
	return Parse(raw, project)
}

// Parse decodes a YAML proposal and resolves every call
func Parse(raw []byte, project *config.ProjectConfig) (usecase.ProposeParams, error) {
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return usecase.ProposeParams{}, fmt.Errorf("failed to parse proposal file: %w", err)
	}
	return doc.Resolve(project)
}

// Resolve turns the document into the parallel call arrays
func (d *Document) Resolve(project *config.ProjectConfig) (usecase.ProposeParams, error) {
	if strings.TrimSpace(d.Description) == "" {
		return usecase.ProposeParams{}, fmt.Errorf("proposal description is required")
	}
	params := usecase.ProposeParams{Description: d.Description}
	for i, c := range d.Calls {
		effect, err := c.Effect(project)
		if err != nil {
			return usecase.ProposeParams{}, fmt.Errorf("call %d: %w", i, err)
		}
		params.Targets = append(params.Targets, effect.Target)
		params.Values = append(params.Values, effect.Value)
		params.Payloads = append(params.Payloads, effect.Payload)
	}
	return params, nil
}

// Effect resolves the target name and builds the payload
func (c Call) Effect(project *config.ProjectConfig) (domain.Effect, error) {
	target, err := project.ResolveAccount(c.Target)
	if err != nil {
		return domain.Effect{}, err
	}
	value, err := ParseValue(c.Value)
	if err != nil {
		return domain.Effect{}, err
	}
	payload, err := BuildPayload(c.Signature, c.Args, c.Data)
	if err != nil {
		return domain.Effect{}, err
	}
	return domain.Effect{Target: target, Value: value, Payload: payload}, nil
}

// ParseValue accepts decimal or 0x-prefixed hex; empty means zero.
func ParseValue(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(uint256.Int), nil
	}
	var (
		v   *uint256.Int
		err error
	)
	if strings.HasPrefix(s, "0x") {
		v, err = uint256.FromHex(s)
	} else {
		v, err = uint256.FromDecimal(s)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: value %q: %v", domain.ErrInvalidAmount, s, err)
	}
	return v, nil
}

// BuildPayload encodes signature+args, or decodes raw hex data
func BuildPayload(signature string, args []string, data string) ([]byte, error) {
	switch {
	case signature != "" && data != "":
		return nil, fmt.Errorf("signature and data are mutually exclusive")
	case signature != "":
		return abi.EncodeSignature(signature, args)
	case len(args) > 0:
		return nil, fmt.Errorf("args given without a signature")
	}
	data = strings.TrimSpace(data)
	if data == "" || data == "0x" {
		return []byte{}, nil
	}
	if !strings.HasPrefix(data, "0x") {
		data = "0x" + data
	}
	b, err := hexutil.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("invalid call data %q: %w", data, err)
	}
	return b, nil
}
