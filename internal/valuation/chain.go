package valuation

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/wnt/lptrack/internal/constants"
	"github.com/wnt/lptrack/internal/rpc"
)

// DLMM account layout offsets. PositionV2 stores one liquidity share per bin
// of its range; LbPair carries the active bin and the pair's mints; BinArray
// packs 70 consecutive bins.
const (
	positionLbPairOffset   = 8
	positionOwnerOffset    = 40
	positionSharesOffset   = 72
	positionShareBinCount  = 70
	positionLowerBinOffset = 7912
	positionUpperBinOffset = 7916
	positionAccountMinLen  = positionUpperBinOffset + 4

	pairActiveBinOffset = 76
	pairBinStepOffset   = 80
	pairTokenXOffset    = 88
	pairTokenYOffset    = 120
	pairAccountMinLen   = pairTokenYOffset + 32

	binArrayIndexOffset  = 8
	binArrayHeaderLen    = 56
	binSize              = 144
	binAmountXOffset     = 0
	binAmountYOffset     = 8
	binSupplyOffset      = 32
	binsPerArray         = 70
	mintDecimalsOffset   = 44
	splMintAccountMinLen = mintDecimalsOffset + 1
)

// positionState is the decoded on-chain position account.
type positionState struct {
	Address    solana.PublicKey
	LbPair     solana.PublicKey
	Owner      solana.PublicKey
	LowerBinID int32
	UpperBinID int32
	// Shares holds one liquidity share per bin of [LowerBinID, UpperBinID].
	Shares []*big.Int
}

// pairState is the decoded on-chain LbPair account.
type pairState struct {
	TokenXMint  solana.PublicKey
	TokenYMint  solana.PublicKey
	BinStep     uint16
	ActiveBinID int32
}

// binState is one bin's reserves and total share supply.
type binState struct {
	AmountX         uint64
	AmountY         uint64
	LiquiditySupply *big.Int
}

// tokenHolding is one SPL token account balance owned by an address.
type tokenHolding struct {
	Mint     string
	UIAmount float64
	Decimals uint8
}

// ChainReader fetches and decodes raw DLMM program state over a Solana RPC
// endpoint. All calls go through the standard rate-limit retry policy.
type ChainReader struct {
	client    *solrpc.Client
	programID solana.PublicKey
	retrier   rpc.Retrier
	logger    zerolog.Logger
}

// NewChainReader connects a reader to one RPC endpoint.
func NewChainReader(endpoint string, logger zerolog.Logger) *ChainReader {
	return &ChainReader{
		client:    solrpc.New(endpoint),
		programID: solana.MustPublicKeyFromBase58(constants.MeteoraDLMM),
		retrier:   rpc.NewRetrier(),
		logger:    logger.With().Str("component", "chain_reader").Logger(),
	}
}

// mapChainErr translates transport errors into the core taxonomy: missing
// accounts become ErrNoData, throttling becomes ErrRateLimited.
func mapChainErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, solrpc.ErrNotFound) {
		return rpc.ErrNoData
	}
	msg := err.Error()
	if strings.Contains(msg, "429") || strings.Contains(msg, "Too Many Requests") {
		return fmt.Errorf("%s: %w", msg, rpc.ErrRateLimited)
	}
	return err
}

// fetchAccount returns the raw bytes of one account, or ErrNoData when the
// account does not exist.
func (c *ChainReader) fetchAccount(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	var data []byte
	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		result, err := c.client.GetAccountInfoWithOpts(ctx, address, &solrpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: solrpc.CommitmentConfirmed,
		})
		if err != nil {
			return mapChainErr(err)
		}
		if result == nil || result.Value == nil {
			return rpc.ErrNoData
		}
		data = result.Value.Data.GetBinary()
		return nil
	})
	return data, err
}

// PositionState fetches and decodes one position account.
func (c *ChainReader) PositionState(ctx context.Context, address solana.PublicKey) (*positionState, error) {
	data, err := c.fetchAccount(ctx, address)
	if err != nil {
		return nil, err
	}
	return decodePosition(address, data)
}

// PairState fetches and decodes one LbPair account.
func (c *ChainReader) PairState(ctx context.Context, address solana.PublicKey) (*pairState, error) {
	data, err := c.fetchAccount(ctx, address)
	if err != nil {
		return nil, err
	}
	return decodePair(data)
}

// BinArray fetches the bin-array account covering the given array index and
// decodes its 70 bins.
func (c *ChainReader) BinArray(ctx context.Context, lbPair solana.PublicKey, arrayIndex int64) ([]binState, error) {
	address, err := c.binArrayAddress(lbPair, arrayIndex)
	if err != nil {
		return nil, err
	}
	data, err := c.fetchAccount(ctx, address)
	if err != nil {
		return nil, err
	}
	return decodeBinArray(data)
}

// MintDecimals reads the decimal scale of an SPL mint.
func (c *ChainReader) MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	data, err := c.fetchAccount(ctx, mint)
	if err != nil {
		return 0, err
	}
	if len(data) < splMintAccountMinLen {
		return 0, fmt.Errorf("mint account %s: truncated data (%d bytes)", mint, len(data))
	}
	return data[mintDecimalsOffset], nil
}

// PositionsByOwner queries the accounts index for every position account of
// the liquidity program whose owner field matches the wallet.
func (c *ChainReader) PositionsByOwner(ctx context.Context, owner solana.PublicKey) ([]*positionState, error) {
	var accounts solrpc.GetProgramAccountsResult
	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		result, err := c.client.GetProgramAccountsWithOpts(ctx, c.programID, &solrpc.GetProgramAccountsOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: solrpc.CommitmentConfirmed,
			Filters: []solrpc.RPCFilter{
				{
					Memcmp: &solrpc.RPCFilterMemcmp{
						Offset: positionOwnerOffset,
						Bytes:  solana.Base58(owner.Bytes()),
					},
				},
			},
		})
		if err != nil {
			return mapChainErr(err)
		}
		accounts = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, rpc.ErrNoData
	}

	var positions []*positionState
	for _, keyed := range accounts {
		state, err := decodePosition(keyed.Pubkey, keyed.Account.Data.GetBinary())
		if err != nil {
			c.logger.Warn().Err(err).Str("account", keyed.Pubkey.String()).
				Msg("skipping undecodable position account")
			continue
		}
		positions = append(positions, state)
	}
	if len(positions) == 0 {
		return nil, rpc.ErrNoData
	}
	return positions, nil
}

// TokenAccountsOwnedBy lists SPL token accounts owned by an address with
// their ui balances.
func (c *ChainReader) TokenAccountsOwnedBy(ctx context.Context, owner solana.PublicKey) ([]tokenHolding, error) {
	tokenProgram := solana.TokenProgramID
	var listing *solrpc.GetTokenAccountsResult
	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		result, err := c.client.GetTokenAccountsByOwner(ctx, owner,
			&solrpc.GetTokenAccountsConfig{ProgramId: &tokenProgram},
			&solrpc.GetTokenAccountsOpts{Encoding: solana.EncodingBase64},
		)
		if err != nil {
			return mapChainErr(err)
		}
		listing = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	if listing == nil || len(listing.Value) == 0 {
		return nil, rpc.ErrNoData
	}

	var holdings []tokenHolding
	for _, entry := range listing.Value {
		data := entry.Account.Data.GetBinary()
		if len(data) < 72 {
			continue
		}
		mint := solana.PublicKeyFromBytes(data[0:32])
		decimals, err := c.MintDecimals(ctx, mint)
		if err != nil {
			c.logger.Warn().Err(err).Str("mint", mint.String()).
				Msg("skipping token account with unreadable mint")
			continue
		}
		raw := binary.LittleEndian.Uint64(data[64:72])
		holdings = append(holdings, tokenHolding{
			Mint:     mint.String(),
			UIAmount: float64(raw) / pow10(decimals),
			Decimals: decimals,
		})
	}
	return holdings, nil
}

// binArrayAddress derives the PDA of the bin array at the given index.
func (c *ChainReader) binArrayAddress(lbPair solana.PublicKey, arrayIndex int64) (solana.PublicKey, error) {
	indexBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(indexBytes, uint64(arrayIndex))
	address, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("bin_array"), lbPair.Bytes(), indexBytes},
		c.programID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("deriving bin array %d for pair %s: %w", arrayIndex, lbPair, err)
	}
	return address, nil
}

func decodePosition(address solana.PublicKey, data []byte) (*positionState, error) {
	if len(data) < positionAccountMinLen {
		return nil, fmt.Errorf("position account %s: truncated data (%d bytes)", address, len(data))
	}

	state := &positionState{
		Address:    address,
		LbPair:     solana.PublicKeyFromBytes(data[positionLbPairOffset : positionLbPairOffset+32]),
		Owner:      solana.PublicKeyFromBytes(data[positionOwnerOffset : positionOwnerOffset+32]),
		LowerBinID: int32(binary.LittleEndian.Uint32(data[positionLowerBinOffset : positionLowerBinOffset+4])),
		UpperBinID: int32(binary.LittleEndian.Uint32(data[positionUpperBinOffset : positionUpperBinOffset+4])),
	}

	width := int(state.UpperBinID-state.LowerBinID) + 1
	if width < 1 || width > positionShareBinCount {
		return nil, fmt.Errorf("position account %s: bin range [%d,%d] out of bounds",
			address, state.LowerBinID, state.UpperBinID)
	}
	state.Shares = make([]*big.Int, width)
	for i := 0; i < width; i++ {
		offset := positionSharesOffset + i*16
		state.Shares[i] = uint128LE(data[offset : offset+16])
	}
	return state, nil
}

func decodePair(data []byte) (*pairState, error) {
	if len(data) < pairAccountMinLen {
		return nil, fmt.Errorf("pair account: truncated data (%d bytes)", len(data))
	}
	return &pairState{
		TokenXMint:  solana.PublicKeyFromBytes(data[pairTokenXOffset : pairTokenXOffset+32]),
		TokenYMint:  solana.PublicKeyFromBytes(data[pairTokenYOffset : pairTokenYOffset+32]),
		BinStep:     binary.LittleEndian.Uint16(data[pairBinStepOffset : pairBinStepOffset+2]),
		ActiveBinID: int32(binary.LittleEndian.Uint32(data[pairActiveBinOffset : pairActiveBinOffset+4])),
	}, nil
}

func decodeBinArray(data []byte) ([]binState, error) {
	needed := binArrayHeaderLen + binsPerArray*binSize
	if len(data) < needed {
		return nil, fmt.Errorf("bin array account: truncated data (%d bytes, want %d)", len(data), needed)
	}
	bins := make([]binState, binsPerArray)
	for i := 0; i < binsPerArray; i++ {
		base := binArrayHeaderLen + i*binSize
		bins[i] = binState{
			AmountX:         binary.LittleEndian.Uint64(data[base+binAmountXOffset : base+binAmountXOffset+8]),
			AmountY:         binary.LittleEndian.Uint64(data[base+binAmountYOffset : base+binAmountYOffset+8]),
			LiquiditySupply: uint128LE(data[base+binSupplyOffset : base+binSupplyOffset+16]),
		}
	}
	return bins, nil
}

// uint128LE decodes a little-endian unsigned 128-bit integer.
func uint128LE(b []byte) *big.Int {
	buf := make([]byte, 16)
	for i := 0; i < 16; i++ {
		buf[15-i] = b[i]
	}
	return new(big.Int).SetBytes(buf)
}

func pow10(decimals uint8) float64 {
	scale := 1.0
	for i := uint8(0); i < decimals; i++ {
		scale *= 10
	}
	return scale
}
