package chainsync

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"ordersync/apps/ordersync/internal/events"
)

const ExchangeABI = `[
	{
		"type": "event",
		"name": "OrderValidated",
		"inputs": [
			{"internalType": "bytes32", "name": "orderHash", "type": "bytes32", "indexed": true},
			{"internalType": "address", "name": "offerer", "type": "address", "indexed": true},
			{"internalType": "address", "name": "nftContract", "type": "address", "indexed": false},
			{"internalType": "uint256", "name": "tokenId", "type": "uint256", "indexed": false},
			{"internalType": "uint256", "name": "price", "type": "uint256", "indexed": false}
		]
	},
	{
		"type": "event",
		"name": "OrderFulfilled",
		"inputs": [
			{"internalType": "bytes32", "name": "orderHash", "type": "bytes32", "indexed": true},
			{"internalType": "address", "name": "offerer", "type": "address", "indexed": true},
			{"internalType": "address", "name": "fulfiller", "type": "address", "indexed": true},
			{"internalType": "address", "name": "nftContract", "type": "address", "indexed": false},
			{"internalType": "uint256", "name": "tokenId", "type": "uint256", "indexed": false},
			{"internalType": "uint256", "name": "price", "type": "uint256", "indexed": false}
		]
	},
	{
		"type": "event",
		"name": "OrderCancelled",
		"inputs": [
			{"internalType": "bytes32", "name": "orderHash", "type": "bytes32", "indexed": true},
			{"internalType": "address", "name": "offerer", "type": "address", "indexed": true},
			{"internalType": "address", "name": "nftContract", "type": "address", "indexed": false},
			{"internalType": "uint256", "name": "tokenId", "type": "uint256", "indexed": false}
		]
	}
]`

// Event signatures
var (
	OrderValidatedSig = crypto.Keccak256Hash([]byte("OrderValidated(bytes32,address,address,uint256,uint256)"))
	OrderFulfilledSig = crypto.Keccak256Hash([]byte("OrderFulfilled(bytes32,address,address,address,uint256,uint256)"))
	OrderCancelledSig = crypto.Keccak256Hash([]byte("OrderCancelled(bytes32,address,address,uint256)"))
)

// decoder turns raw exchange logs into normalized order events.
type decoder struct {
	abi           abi.ABI
	priceDecimals int
}

func newDecoder(priceDecimals int) (*decoder, error) {
	parsed, err := abi.JSON(strings.NewReader(ExchangeABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse exchange ABI: %w", err)
	}
	return &decoder{abi: parsed, priceDecimals: priceDecimals}, nil
}

func (d *decoder) decodeValidated(eventLog types.Log) (events.OrderEvent, error) {
	var eventData struct {
		NftContract common.Address
		TokenId     *big.Int
		Price       *big.Int
	}
	if err := d.abi.UnpackIntoInterface(&eventData, "OrderValidated", eventLog.Data); err != nil {
		return events.OrderEvent{}, fmt.Errorf("failed to unpack OrderValidated event data: %w", err)
	}
	if len(eventLog.Topics) < 3 {
		return events.OrderEvent{}, fmt.Errorf("unexpected OrderValidated topics len=%d", len(eventLog.Topics))
	}

	// Topics[0] is the event signature hash
	// Topics[1] is orderHash (bytes32)
	// Topics[2] is offerer (address)
	ev := d.base(events.TypeOrderValidated, eventLog, eventData.NftContract, eventData.TokenId)
	ev.RawPrice = eventData.Price.String()
	return ev, nil
}

func (d *decoder) decodeFulfilled(eventLog types.Log) (events.OrderEvent, error) {
	var eventData struct {
		NftContract common.Address
		TokenId     *big.Int
		Price       *big.Int
	}
	if err := d.abi.UnpackIntoInterface(&eventData, "OrderFulfilled", eventLog.Data); err != nil {
		return events.OrderEvent{}, fmt.Errorf("failed to unpack OrderFulfilled event data: %w", err)
	}
	if len(eventLog.Topics) < 4 {
		return events.OrderEvent{}, fmt.Errorf("unexpected OrderFulfilled topics len=%d", len(eventLog.Topics))
	}

	// Topics[3] is fulfiller (address)
	ev := d.base(events.TypeOrderFulfilled, eventLog, eventData.NftContract, eventData.TokenId)
	ev.Fulfiller = common.BytesToAddress(eventLog.Topics[3].Bytes()).Hex()
	ev.RawPrice = eventData.Price.String()
	return ev, nil
}

func (d *decoder) decodeCancelled(eventLog types.Log) (events.OrderEvent, error) {
	var eventData struct {
		NftContract common.Address
		TokenId     *big.Int
	}
	if err := d.abi.UnpackIntoInterface(&eventData, "OrderCancelled", eventLog.Data); err != nil {
		return events.OrderEvent{}, fmt.Errorf("failed to unpack OrderCancelled event data: %w", err)
	}
	if len(eventLog.Topics) < 3 {
		return events.OrderEvent{}, fmt.Errorf("unexpected OrderCancelled topics len=%d", len(eventLog.Topics))
	}

	return d.base(events.TypeOrderCancelled, eventLog, eventData.NftContract, eventData.TokenId), nil
}

func (d *decoder) base(eventType string, eventLog types.Log, nftContract common.Address, tokenID *big.Int) events.OrderEvent {
	return events.OrderEvent{
		EventType:        eventType,
		OrderHash:        eventLog.Topics[1].Hex(),
		Offerer:          common.BytesToAddress(eventLog.Topics[2].Bytes()).Hex(),
		NFTContract:      nftContract.Hex(),
		ExchangeContract: eventLog.Address.Hex(),
		TokenID:          tokenID.String(),
		PriceDecimals:    d.priceDecimals,
		BlockNumber:      eventLog.BlockNumber,
		LogIndex:         eventLog.Index,
		TxHash:           eventLog.TxHash.Hex(),
	}
}
