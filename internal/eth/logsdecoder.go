package eth

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tokenfeed/salesbot/pkg/nft"
	"go.uber.org/zap"
)

var erc721TransferSig = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")
var tokenNamedSig = crypto.Keccak256Hash([]byte("TokenNamed(uint256,string)"))

var namingABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(`[
    {
        "anonymous": false,
        "inputs": [
            {"indexed": true,  "name": "tokenId", "type": "uint256"},
            {"indexed": false, "name": "name",    "type": "string"}
        ],
        "name": "TokenNamed",
        "type": "event"
    }
	]`))
	if err != nil {
		panic("failed to parse naming ABI")
	}
	namingABI = parsed
}

// LogsDecoder turns raw contract logs into the normalized events the
// pipeline consumes.
type LogsDecoder interface {
	DecodeTransfer(lg types.Log) (*nft.TransferEvent, bool)
	DecodeName(lg types.Log) (*nft.NameEvent, bool)
}

type DefaultLogsDecoder struct{}

func NewDefaultLogsDecoder() *DefaultLogsDecoder {
	return &DefaultLogsDecoder{}
}

// DecodeTransfer decodes an ERC-721 Transfer log. The second return value
// is false when the log is not a token transfer (e.g. an ERC-20 Transfer
// shares the signature but carries only three topics).
func (d *DefaultLogsDecoder) DecodeTransfer(lg types.Log) (*nft.TransferEvent, bool) {
	if len(lg.Topics) != 4 || lg.Topics[0] != erc721TransferSig {
		return nil, false
	}
	from := common.BytesToAddress(lg.Topics[1].Bytes())
	to := common.BytesToAddress(lg.Topics[2].Bytes())
	tokenID := lg.Topics[3].Big()

	return nft.Normalize(&nft.TransferEvent{
		BlockNumber: lg.BlockNumber,
		TxHash:      lg.TxHash.Hex(),
		Contract:    lg.Address.Hex(),
		TokenID:     tokenID.String(),
		From:        from.Hex(),
		To:          to.Hex(),
	}), true
}

// DecodeName decodes a TokenNamed log from the naming contract.
func (d *DefaultLogsDecoder) DecodeName(lg types.Log) (*nft.NameEvent, bool) {
	if len(lg.Topics) != 2 || lg.Topics[0] != tokenNamedSig {
		return nil, false
	}
	var decoded struct {
		Name string
	}
	if err := namingABI.UnpackIntoInterface(&decoded, "TokenNamed", lg.Data); err != nil {
		zap.L().Warn("Failed to decode TokenNamed log",
			zap.Error(err),
			zap.String("txHash", lg.TxHash.Hex()),
		)
		return nil, false
	}
	return &nft.NameEvent{
		BlockNumber: lg.BlockNumber,
		TxHash:      strings.ToLower(lg.TxHash.Hex()),
		Contract:    strings.ToLower(lg.Address.Hex()),
		TokenID:     lg.Topics[1].Big().String(),
		Name:        decoded.Name,
	}, true
}
