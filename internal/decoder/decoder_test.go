package decoder

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"objektFeed/internal/model"
)

func TestTransferTopicMatchesSignature(t *testing.T) {
	d, err := NewTransferDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	want := crypto.Keccak256Hash([]byte(TransferSignature))
	if d.Topic0() != want {
		t.Fatalf("topic0 mismatch: %s != %s", d.Topic0().Hex(), want.Hex())
	}
	if want.Hex() != "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef" {
		t.Fatalf("unexpected transfer topic: %s", want.Hex())
	}
}

func TestDecodeLogs(t *testing.T) {
	d, err := NewTransferDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	contract := common.HexToAddress("0x99Bb83AE9bb0C0A6be865CaCF67760947f91Cb70")

	erc721 := model.RawLog{
		Address: contract,
		Topics: []common.Hash{
			d.Topic0(),
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
			common.BigToHash(big.NewInt(4242)),
		},
		BlockNumber: 77,
	}
	// ERC-20 style transfer: same topic0, amount in data.
	erc20 := model.RawLog{
		Address: contract,
		Topics: []common.Hash{
			d.Topic0(),
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data:        common.BigToHash(big.NewInt(1)).Bytes(),
		BlockNumber: 78,
	}
	unrelated := model.RawLog{
		Address:     contract,
		Topics:      []common.Hash{common.HexToHash("0x01"), {}, {}, {}},
		BlockNumber: 79,
	}

	got := d.DecodeLogs([]model.RawLog{erc721, erc20, unrelated})
	if len(got) != 3 {
		t.Fatalf("expected one slot per log, got %d", len(got))
	}
	if got[1] != nil || got[2] != nil {
		t.Fatalf("unmatched logs should decode to nil")
	}
	if got[0] == nil {
		t.Fatalf("transfer log should decode")
	}
	if got[0].From != from || got[0].To != to {
		t.Fatalf("address mismatch: %+v", got[0])
	}
	if got[0].TokenID.String() != "4242" || got[0].BlockNumber != 77 {
		t.Fatalf("token or block mismatch: %+v", got[0])
	}
}
