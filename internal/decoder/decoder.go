package decoder

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"objektFeed/internal/model"
)

// TransferDecoder decodes ERC-721 Transfer logs.
type TransferDecoder struct {
	event abi.Event
}

// NewTransferDecoder builds a decoder for Transfer(address indexed, address indexed, uint256 indexed).
func NewTransferDecoder() (*TransferDecoder, error) {
	parsed, err := ERC721ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc721 abi: %w", err)
	}
	event, ok := parsed.Events["Transfer"]
	if !ok {
		return nil, fmt.Errorf("transfer event missing from abi")
	}
	return &TransferDecoder{event: event}, nil
}

// Topic0 returns the event id used to filter logs.
func (d *TransferDecoder) Topic0() common.Hash {
	return d.event.ID
}

// DecodeLogs returns one entry per input log, in input order. Entries are nil for
// logs that do not match the Transfer signature.
func (d *TransferDecoder) DecodeLogs(logs []model.RawLog) []*model.DecodedTransfer {
	out := make([]*model.DecodedTransfer, len(logs))
	for i, log := range logs {
		decoded, err := d.Decode(log)
		if err != nil {
			continue
		}
		out[i] = decoded
	}
	return out
}

// Decode decodes a single log.
func (d *TransferDecoder) Decode(log model.RawLog) (*model.DecodedTransfer, error) {
	// ERC-20 Transfer shares topic0 but carries the amount in data, so the topic count
	// is what tells the two apart.
	if len(log.Topics) != 4 {
		return nil, fmt.Errorf("expected 4 topics, got %d", len(log.Topics))
	}
	if log.Topics[0] != d.event.ID {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0].Hex())
	}

	values := make(map[string]interface{}, 3)
	if err := abi.ParseTopicsIntoMap(values, indexedInputs(d.event), log.Topics[1:]); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}

	from, err := asAddress(values["from"])
	if err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	to, err := asAddress(values["to"])
	if err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	tokenID, ok := values["tokenId"].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unsupported token id type %T", values["tokenId"])
	}

	return &model.DecodedTransfer{
		From:        from,
		To:          to,
		TokenID:     tokenID,
		BlockNumber: log.BlockNumber,
	}, nil
}

func indexedInputs(event abi.Event) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(event.Inputs))
	for _, input := range event.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}
	return indexed
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}
